package entities

import "time"

type LogType string

const (
	LogTypeInfo  LogType = "INFO"
	LogTypeError LogType = "ERROR"
)

// LogEntry is one row of the user-facing offline log journal.
type LogEntry struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Type      LogType   `gorm:"size:10;index" json:"type"`
	Message   string    `gorm:"type:text" json:"message"`
	Timestamp time.Time `gorm:"index" json:"timestamp"`
}

func (LogEntry) TableName() string {
	return "offline_log_journal"
}
