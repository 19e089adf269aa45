// Package series provides database operations for mirrored series, their
// metadata and thumbnails.
package series

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

// Find returns the series with its metadata, or nil when not mirrored.
func (r *Repository) Find(ctx context.Context, id string) (*entities.OfflineSeries, error) {
	var s entities.OfflineSeries
	err := database.Conn(ctx, r.db).Preload("Metadata").First(&s, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// FindByLibraryID lists a library's series in id order.
func (r *Repository) FindByLibraryID(ctx context.Context, libraryID string) ([]entities.OfflineSeries, error) {
	var result []entities.OfflineSeries
	err := database.Conn(ctx, r.db).Where("library_id = ?", libraryID).Order("id ASC").Find(&result).Error
	return result, err
}

// FindByLibraryIDs lists every series of the given libraries.
func (r *Repository) FindByLibraryIDs(ctx context.Context, libraryIDs []string) ([]entities.OfflineSeries, error) {
	if len(libraryIDs) == 0 {
		return nil, nil
	}
	var result []entities.OfflineSeries
	err := database.Conn(ctx, r.db).Where("library_id IN ?", libraryIDs).Order("id ASC").Find(&result).Error
	return result, err
}

// FindAllWithMetadata lists every mirrored series for offline browsing.
func (r *Repository) FindAllWithMetadata(ctx context.Context) ([]entities.OfflineSeries, error) {
	var result []entities.OfflineSeries
	err := database.Conn(ctx, r.db).Preload("Metadata").Where("deleted = ?", false).Order("name ASC").Find(&result).Error
	return result, err
}

// Save upserts the series row and its metadata row.
func (r *Repository) Save(ctx context.Context, s *entities.OfflineSeries) error {
	conn := database.Conn(ctx, r.db)
	if err := conn.Omit(clause.Associations).Save(s).Error; err != nil {
		return err
	}
	s.Metadata.SeriesID = s.ID
	return conn.Save(&s.Metadata).Error
}

// Delete removes series rows and their metadata rows.
func (r *Repository) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	conn := database.Conn(ctx, r.db)
	if err := conn.Where("series_id IN ?", ids).Delete(&entities.OfflineSeriesMetadata{}).Error; err != nil {
		return err
	}
	return conn.Where("id IN ?", ids).Delete(&entities.OfflineSeries{}).Error
}

func (r *Repository) SaveThumbnail(ctx context.Context, thumb *entities.OfflineThumbnailSeries) error {
	return database.Conn(ctx, r.db).Save(thumb).Error
}

func (r *Repository) FindThumbnails(ctx context.Context, seriesID string) ([]entities.OfflineThumbnailSeries, error) {
	var result []entities.OfflineThumbnailSeries
	err := database.Conn(ctx, r.db).Where("series_id = ?", seriesID).Find(&result).Error
	return result, err
}

func (r *Repository) DeleteThumbnails(ctx context.Context, seriesIDs ...string) error {
	if len(seriesIDs) == 0 {
		return nil
	}
	return database.Conn(ctx, r.db).Where("series_id IN ?", seriesIDs).Delete(&entities.OfflineThumbnailSeries{}).Error
}
