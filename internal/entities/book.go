package entities

import "time"

type OfflineBook struct {
	ID                    string    `gorm:"primaryKey;size:64" json:"id"`
	SeriesID              string    `gorm:"index;size:64" json:"series_id"`
	LibraryID             string    `gorm:"index;size:64" json:"library_id"`
	Name                  string    `gorm:"size:1024" json:"name"`
	URL                   string    `gorm:"size:2048" json:"url"`
	Number                int       `json:"number"`
	SizeBytes             int64     `json:"size_bytes"`
	Oneshot               bool      `json:"oneshot"`
	RemoteCreated         time.Time `json:"remote_created"`
	RemoteLastModified    time.Time `json:"remote_last_modified"`
	FileDownloadPath      string    `gorm:"uniqueIndex;size:2048" json:"file_download_path"`
	LocalFileLastModified time.Time `json:"local_file_last_modified"`
	Deleted               bool      `gorm:"index" json:"deleted"`
	RemoteUnavailable     bool      `gorm:"index" json:"remote_unavailable"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`

	Metadata OfflineBookMetadata `gorm:"foreignKey:BookID" json:"metadata"`
}

func (OfflineBook) TableName() string {
	return "offline_books"
}

type OfflineBookMetadata struct {
	BookID      string     `gorm:"primaryKey;size:64" json:"book_id"`
	Title       string     `gorm:"size:1024" json:"title"`
	Summary     string     `gorm:"type:text" json:"summary"`
	Number      string     `gorm:"size:32" json:"number"`
	NumberSort  float64    `gorm:"index" json:"number_sort"`
	ReleaseDate *time.Time `json:"release_date,omitempty"`
	ISBN        string     `gorm:"size:32" json:"isbn,omitempty"`
	Tags        StringList `gorm:"type:text" json:"tags"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Authors []OfflineBookMetadataAuthor `gorm:"foreignKey:BookID" json:"authors"`
}

func (OfflineBookMetadata) TableName() string {
	return "offline_book_metadata"
}

type OfflineBookMetadataAuthor struct {
	ID     uint   `gorm:"primaryKey" json:"-"`
	BookID string `gorm:"index;size:64" json:"-"`
	Name   string `gorm:"size:512" json:"name"`
	Role   string `gorm:"size:64" json:"role"`
}

func (OfflineBookMetadataAuthor) TableName() string {
	return "offline_book_metadata_author"
}

type OfflineMedia struct {
	BookID       string    `gorm:"primaryKey;size:64" json:"book_id"`
	Status       string    `gorm:"size:32" json:"status"`
	MediaType    string    `gorm:"size:128" json:"media_type"`
	MediaProfile string    `gorm:"size:32" json:"media_profile"`
	PageCount    int       `json:"page_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (OfflineMedia) TableName() string {
	return "offline_media"
}

type OfflineThumbnailBook struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	BookID    string    `gorm:"index;size:64" json:"book_id"`
	Type      string    `gorm:"size:32" json:"type"`
	Selected  bool      `json:"selected"`
	MediaType string    `gorm:"size:64" json:"media_type"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	FileSize  int64     `json:"file_size"`
	Data      []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

func (OfflineThumbnailBook) TableName() string {
	return "offline_thumbnails_book"
}
