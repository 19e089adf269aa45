package entities

import "time"

// RootUserID identifies the local root identity. It has no remote
// counterpart, sees every downloaded book and its progress is never pushed.
const RootUserID = "0000000000000"

type MediaServer struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	URL       string    `gorm:"uniqueIndex;size:2048" json:"url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (MediaServer) TableName() string {
	return "media_servers"
}

type OfflineUser struct {
	ID          string     `gorm:"primaryKey;size:64" json:"id"`
	ServerID    string     `gorm:"index;size:36" json:"server_id"`
	Email       string     `gorm:"size:255" json:"email"`
	Roles       StringList `gorm:"type:text" json:"roles"`
	SharedAll   bool       `json:"shared_all_libraries"`
	SharedLibs  StringList `gorm:"type:text" json:"shared_libraries"`
	AgeRestrict int        `json:"age_restriction,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (OfflineUser) TableName() string {
	return "offline_users"
}

// IsRoot reports whether the user is the local root identity.
func (u OfflineUser) IsRoot() bool {
	return u.ID == RootUserID
}

type OfflineLibrary struct {
	ID                string    `gorm:"primaryKey;size:64" json:"id"`
	ServerID          string    `gorm:"index;size:36" json:"server_id"`
	Name              string    `gorm:"size:512" json:"name"`
	Root              string    `gorm:"size:2048" json:"root"`
	RemoteUnavailable bool      `json:"remote_unavailable"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (OfflineLibrary) TableName() string {
	return "offline_libraries"
}
