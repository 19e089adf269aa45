package entities

import (
	"time"
)

type SyncType string

const (
	SyncTypeCatalog      SyncType = "catalog"
	SyncTypeReadProgress SyncType = "read_progress"
)

type SyncStatus string

const (
	SyncStatusRunning   SyncStatus = "running"
	SyncStatusCompleted SyncStatus = "completed"
	SyncStatusFailed    SyncStatus = "failed"
	SyncStatusSkipped   SyncStatus = "skipped"
)

// SyncProgress tracks the most recent reconciliation pass of a given type.
type SyncProgress struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	SyncType    SyncType   `gorm:"size:50;uniqueIndex" json:"sync_type"`
	Status      SyncStatus `gorm:"size:20" json:"status"`
	UserID      string     `gorm:"size:64" json:"user_id"`
	Libraries   int        `json:"libraries"`
	Series      int        `json:"series"`
	Books       int        `json:"books"`
	Tombstoned  int        `json:"tombstoned"`
	Failed      int        `json:"failed"`
	CurrentItem string     `gorm:"size:512" json:"current_item,omitempty"`
	Error       string     `gorm:"type:text" json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (SyncProgress) TableName() string {
	return "sync_progress"
}
