// Package books provides database operations for mirrored books, their
// metadata, media info and thumbnails.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	book, err := repo.Find(ctx, bookID)
package books

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/offlinemirror/internal/database"
	"github.com/mrlokans/offlinemirror/internal/entities"
)

// Repository handles all book database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) preloaded(ctx context.Context) *gorm.DB {
	return database.Conn(ctx, r.db).Preload("Metadata").Preload("Metadata.Authors", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	})
}

// Find returns the book with metadata and authors, or nil when not mirrored.
func (r *Repository) Find(ctx context.Context, id string) (*entities.OfflineBook, error) {
	var book entities.OfflineBook
	err := r.preloaded(ctx).First(&book, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// FindBySeriesID lists a series' books with metadata, ordered by sort number.
func (r *Repository) FindBySeriesID(ctx context.Context, seriesID string) ([]entities.OfflineBook, error) {
	return r.FindBySeriesIDs(ctx, []string{seriesID})
}

func (r *Repository) FindBySeriesIDs(ctx context.Context, seriesIDs []string) ([]entities.OfflineBook, error) {
	if len(seriesIDs) == 0 {
		return nil, nil
	}
	var result []entities.OfflineBook
	err := r.preloaded(ctx).
		Joins("LEFT JOIN offline_book_metadata ON offline_book_metadata.book_id = offline_books.id").
		Where("offline_books.series_id IN ?", seriesIDs).
		Order("offline_books.series_id ASC, offline_book_metadata.number_sort ASC, offline_books.id ASC").
		Find(&result).Error
	return result, err
}

// FindAllNotDeleted lists the books of a series that still need reconciling:
// neither deleted locally nor tombstoned. Ordered by id.
func (r *Repository) FindAllNotDeleted(ctx context.Context, seriesID string) ([]entities.OfflineBook, error) {
	var result []entities.OfflineBook
	err := r.preloaded(ctx).
		Where("series_id = ? AND deleted = ? AND remote_unavailable = ?", seriesID, false, false).
		Order("id ASC").
		Find(&result).Error
	return result, err
}

// FindByLibraryID lists every book of a library.
func (r *Repository) FindByLibraryID(ctx context.Context, libraryID string) ([]entities.OfflineBook, error) {
	var result []entities.OfflineBook
	err := database.Conn(ctx, r.db).Where("library_id = ?", libraryID).Order("id ASC").Find(&result).Error
	return result, err
}

// Save upserts the book row, its metadata row and author rows.
func (r *Repository) Save(ctx context.Context, book *entities.OfflineBook) error {
	conn := database.Conn(ctx, r.db)
	if err := conn.Omit(clause.Associations).Save(book).Error; err != nil {
		return err
	}

	meta := &book.Metadata
	meta.BookID = book.ID
	if err := conn.Omit(clause.Associations).Save(meta).Error; err != nil {
		return err
	}

	if err := conn.Where("book_id = ?", book.ID).Delete(&entities.OfflineBookMetadataAuthor{}).Error; err != nil {
		return err
	}
	for i := range meta.Authors {
		meta.Authors[i].ID = 0
		meta.Authors[i].BookID = book.ID
	}
	if len(meta.Authors) > 0 {
		if err := conn.Create(&meta.Authors).Error; err != nil {
			return err
		}
	}
	return nil
}

// MarkRemoteUnavailable tombstones books. Local files are left in place.
func (r *Repository) MarkRemoteUnavailable(ctx context.Context, ids ...string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := database.Conn(ctx, r.db).Model(&entities.OfflineBook{}).
		Where("id IN ?", ids).
		Updates(map[string]any{"remote_unavailable": true, "updated_at": time.Now()})
	return res.RowsAffected, res.Error
}

// Delete removes book rows together with metadata, authors, media and thumbnails.
func (r *Repository) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	conn := database.Conn(ctx, r.db)
	for _, model := range []any{
		&entities.OfflineBookMetadataAuthor{},
		&entities.OfflineBookMetadata{},
		&entities.OfflineMedia{},
		&entities.OfflineThumbnailBook{},
	} {
		if err := conn.Where("book_id IN ?", ids).Delete(model).Error; err != nil {
			return err
		}
	}
	return conn.Where("id IN ?", ids).Delete(&entities.OfflineBook{}).Error
}

func (r *Repository) SaveMedia(ctx context.Context, media *entities.OfflineMedia) error {
	return database.Conn(ctx, r.db).Save(media).Error
}

// FindMedia returns nil without error when no media row exists.
func (r *Repository) FindMedia(ctx context.Context, bookID string) (*entities.OfflineMedia, error) {
	var media entities.OfflineMedia
	err := database.Conn(ctx, r.db).First(&media, "book_id = ?", bookID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &media, nil
}

// ReplaceThumbnails swaps the stored thumbnails of a book for thumbs.
func (r *Repository) ReplaceThumbnails(ctx context.Context, bookID string, thumbs []entities.OfflineThumbnailBook) error {
	conn := database.Conn(ctx, r.db)
	if err := conn.Where("book_id = ?", bookID).Delete(&entities.OfflineThumbnailBook{}).Error; err != nil {
		return err
	}
	if len(thumbs) == 0 {
		return nil
	}
	return conn.Create(&thumbs).Error
}

func (r *Repository) FindThumbnails(ctx context.Context, bookID string) ([]entities.OfflineThumbnailBook, error) {
	var result []entities.OfflineThumbnailBook
	err := database.Conn(ctx, r.db).Where("book_id = ?", bookID).Find(&result).Error
	return result, err
}
