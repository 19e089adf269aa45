package entities

import "time"

type DownloadStatus string

const (
	DownloadStatusQueued    DownloadStatus = "queued"
	DownloadStatusRunning   DownloadStatus = "running"
	DownloadStatusCompleted DownloadStatus = "completed"
	DownloadStatusFailed    DownloadStatus = "failed"
	DownloadStatusCancelled DownloadStatus = "cancelled"
)

// DownloadJob is the keyed record behind a queued book download. Generation
// increases on every enqueue so a superseded task can recognise itself.
type DownloadJob struct {
	BookID     string         `gorm:"primaryKey;size:64" json:"book_id"`
	Generation int64          `json:"generation"`
	Status     DownloadStatus `gorm:"size:20;index" json:"status"`
	TaskID     string         `gorm:"size:64" json:"task_id,omitempty"`
	Attempts   int            `json:"attempts"`
	Completed  int64          `json:"completed_bytes"`
	Total      int64          `json:"total_bytes"`
	LastError  string         `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func (DownloadJob) TableName() string {
	return "download_jobs"
}
