// Package readprogress provides database operations for per-user read progress.
package readprogress

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/mrlokans/offlinemirror/internal/database"
	"github.com/mrlokans/offlinemirror/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Find returns nil without error when the user has no progress on the book.
func (r *Repository) Find(ctx context.Context, bookID, userID string) (*entities.OfflineReadProgress, error) {
	var progress entities.OfflineReadProgress
	err := database.Conn(ctx, r.db).First(&progress, "book_id = ? AND user_id = ?", bookID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

func (r *Repository) Save(ctx context.Context, progress *entities.OfflineReadProgress) error {
	return database.Conn(ctx, r.db).Save(progress).Error
}

// FindDirty lists progress recorded offline by userID that the server has not seen.
func (r *Repository) FindDirty(ctx context.Context, userID string) ([]entities.OfflineReadProgress, error) {
	var result []entities.OfflineReadProgress
	err := database.Conn(ctx, r.db).
		Where("user_id = ? AND dirty = ?", userID, true).
		Order("read_date ASC").
		Find(&result).Error
	return result, err
}

// MarkClean clears the dirty flag only while the row still holds the pushed
// state. It reports false when progress moved on after pushed was read.
func (r *Repository) MarkClean(ctx context.Context, pushed entities.OfflineReadProgress) (bool, error) {
	res := database.Conn(ctx, r.db).Model(&entities.OfflineReadProgress{}).
		Where("book_id = ? AND user_id = ? AND page = ? AND completed = ?",
			pushed.BookID, pushed.UserID, pushed.Page, pushed.Completed).
		Update("dirty", false)
	return res.RowsAffected > 0, res.Error
}

func (r *Repository) DeleteByBookIDs(ctx context.Context, bookIDs ...string) error {
	if len(bookIDs) == 0 {
		return nil
	}
	return database.Conn(ctx, r.db).Where("book_id IN ?", bookIDs).Delete(&entities.OfflineReadProgress{}).Error
}

func (r *Repository) DeleteByUserIDs(ctx context.Context, userIDs ...string) error {
	if len(userIDs) == 0 {
		return nil
	}
	return database.Conn(ctx, r.db).Where("user_id IN ?", userIDs).Delete(&entities.OfflineReadProgress{}).Error
}
