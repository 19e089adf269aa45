package entities

import "time"

type OfflineSeries struct {
	ID                string    `gorm:"primaryKey;size:64" json:"id"`
	LibraryID         string    `gorm:"index;size:64" json:"library_id"`
	Name              string    `gorm:"size:1024" json:"name"`
	URL               string    `gorm:"size:2048" json:"url"`
	BooksCount        int       `json:"books_count"`
	Oneshot           bool      `json:"oneshot"`
	Deleted           bool      `json:"deleted"`
	RemoteUnavailable bool      `json:"remote_unavailable"`
	RemoteCreated     time.Time `json:"remote_created"`
	RemoteModified    time.Time `json:"remote_modified"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	Metadata OfflineSeriesMetadata `gorm:"foreignKey:SeriesID" json:"metadata"`
}

func (OfflineSeries) TableName() string {
	return "offline_series"
}

type OfflineSeriesMetadata struct {
	SeriesID  string     `gorm:"primaryKey;size:64" json:"series_id"`
	Title     string     `gorm:"size:1024" json:"title"`
	TitleSort string     `gorm:"index;size:1024" json:"title_sort"`
	Status    string     `gorm:"size:32" json:"status"`
	Summary   string     `gorm:"type:text" json:"summary"`
	Publisher string     `gorm:"size:512" json:"publisher"`
	Language  string     `gorm:"size:32" json:"language"`
	Genres    StringList `gorm:"type:text" json:"genres"`
	Tags      StringList `gorm:"type:text" json:"tags"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (OfflineSeriesMetadata) TableName() string {
	return "offline_series_metadata"
}

type OfflineThumbnailSeries struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	SeriesID  string    `gorm:"index;size:64" json:"series_id"`
	Type      string    `gorm:"size:32" json:"type"`
	Selected  bool      `json:"selected"`
	MediaType string    `gorm:"size:64" json:"media_type"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	FileSize  int64     `json:"file_size"`
	Data      []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

func (OfflineThumbnailSeries) TableName() string {
	return "offline_thumbnails_series"
}
