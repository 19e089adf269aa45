package entities

import "time"

// OfflineBookMetadataAggregation is the per-series summary derived from its books.
type OfflineBookMetadataAggregation struct {
	SeriesID      string     `gorm:"primaryKey;size:64" json:"series_id"`
	ReleaseDate   *time.Time `json:"release_date,omitempty"`
	Summary       string     `gorm:"type:text" json:"summary"`
	SummaryNumber string     `gorm:"size:32" json:"summary_number"`
	UpdatedAt     time.Time  `json:"updated_at"`

	Authors []OfflineAggregationAuthor `gorm:"foreignKey:SeriesID" json:"authors"`
	Tags    []OfflineAggregationTag    `gorm:"foreignKey:SeriesID" json:"tags"`
}

func (OfflineBookMetadataAggregation) TableName() string {
	return "offline_book_metadata_aggregation"
}

type OfflineAggregationAuthor struct {
	ID       uint   `gorm:"primaryKey" json:"-"`
	SeriesID string `gorm:"index;size:64" json:"-"`
	Name     string `gorm:"size:512" json:"name"`
	Role     string `gorm:"size:64" json:"role"`
}

func (OfflineAggregationAuthor) TableName() string {
	return "offline_book_metadata_aggregation_author"
}

type OfflineAggregationTag struct {
	ID       uint   `gorm:"primaryKey" json:"-"`
	SeriesID string `gorm:"index;size:64" json:"-"`
	Tag      string `gorm:"size:256" json:"tag"`
}

func (OfflineAggregationTag) TableName() string {
	return "offline_book_metadata_aggregation_tag"
}
