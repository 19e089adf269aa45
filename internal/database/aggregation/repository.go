// Package aggregation stores the per-series book metadata aggregation: one
// row per series plus author and tag child rows.
package aggregation

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/offlinemirror/internal/database"
	"github.com/mrlokans/offlinemirror/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Find returns the aggregation with authors and tags, or nil when absent.
func (r *Repository) Find(ctx context.Context, seriesID string) (*entities.OfflineBookMetadataAggregation, error) {
	var agg entities.OfflineBookMetadataAggregation
	err := database.Conn(ctx, r.db).
		Preload("Authors", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&agg, "series_id = ?", seriesID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &agg, nil
}

// Exists reports whether the series already has an aggregation row.
func (r *Repository) Exists(ctx context.Context, seriesID string) (bool, error) {
	var count int64
	err := database.Conn(ctx, r.db).Model(&entities.OfflineBookMetadataAggregation{}).
		Where("series_id = ?", seriesID).Count(&count).Error
	return count > 0, err
}

// Save upserts the row and replaces its author and tag children.
func (r *Repository) Save(ctx context.Context, agg *entities.OfflineBookMetadataAggregation) error {
	conn := database.Conn(ctx, r.db)
	if err := conn.Omit(clause.Associations).Save(agg).Error; err != nil {
		return err
	}
	if err := r.deleteChildren(conn, []string{agg.SeriesID}); err != nil {
		return err
	}

	for i := range agg.Authors {
		agg.Authors[i].ID = 0
		agg.Authors[i].SeriesID = agg.SeriesID
	}
	if len(agg.Authors) > 0 {
		if err := conn.Create(&agg.Authors).Error; err != nil {
			return err
		}
	}
	for i := range agg.Tags {
		agg.Tags[i].ID = 0
		agg.Tags[i].SeriesID = agg.SeriesID
	}
	if len(agg.Tags) > 0 {
		if err := conn.Create(&agg.Tags).Error; err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the aggregation rows of the given series.
func (r *Repository) Delete(ctx context.Context, seriesIDs ...string) error {
	if len(seriesIDs) == 0 {
		return nil
	}
	conn := database.Conn(ctx, r.db)
	if err := r.deleteChildren(conn, seriesIDs); err != nil {
		return err
	}
	return conn.Where("series_id IN ?", seriesIDs).Delete(&entities.OfflineBookMetadataAggregation{}).Error
}

func (r *Repository) deleteChildren(conn *gorm.DB, seriesIDs []string) error {
	if err := conn.Where("series_id IN ?", seriesIDs).Delete(&entities.OfflineAggregationAuthor{}).Error; err != nil {
		return err
	}
	return conn.Where("series_id IN ?", seriesIDs).Delete(&entities.OfflineAggregationTag{}).Error
}
