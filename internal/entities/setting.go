package entities

import (
	"time"
)

type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex;size:100" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}

// Known setting keys
const (
	SettingKeyDataSyncDate   = "offline_data_sync_date"
	SettingKeyOfflineMode    = "offline_mode"
	SettingKeyActiveUserID   = "offline_active_user_id"
	SettingKeyDownloadDir    = "offline_download_dir"
	SettingKeySyncLastStatus = "offline_sync_last_status"
)
