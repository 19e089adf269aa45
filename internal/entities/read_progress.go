package entities

import "time"

type OfflineReadProgress struct {
	BookID     string    `gorm:"primaryKey;size:64" json:"book_id"`
	UserID     string    `gorm:"primaryKey;size:64" json:"user_id"`
	Page       int       `json:"page"`
	Completed  bool      `json:"completed"`
	ReadDate   time.Time `json:"read_date"`
	DeviceID   string    `gorm:"size:128" json:"device_id"`
	DeviceName string    `gorm:"size:256" json:"device_name"`
	// Dirty marks progress recorded locally that has not been pushed to the server.
	Dirty     bool      `gorm:"index" json:"dirty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (OfflineReadProgress) TableName() string {
	return "offline_read_progress"
}
