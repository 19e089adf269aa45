// Package downloadjobs stores the keyed records behind queued downloads.
package downloadjobs

import (
	"context"
	"errors"
	"time"

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

// Find returns nil without error when no job exists for the book.
func (r *Repository) Find(ctx context.Context, bookID string) (*entities.DownloadJob, error) {
	var job entities.DownloadJob
	err := database.Conn(ctx, r.db).First(&job, "book_id = ?", bookID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// Bump creates the job or supersedes the existing one, returning the new
// generation. Progress and error state are reset.
func (r *Repository) Bump(ctx context.Context, bookID string) (int64, error) {
	var generation int64
	err := database.Conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		var job entities.DownloadJob
		err := tx.First(&job, "book_id = ?", bookID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			job = entities.DownloadJob{BookID: bookID, Generation: 1, Status: entities.DownloadStatusQueued}
			generation = 1
			return tx.Create(&job).Error
		case err != nil:
			return err
		}

		generation = job.Generation + 1
		return tx.Model(&entities.DownloadJob{}).Where("book_id = ?", bookID).Updates(map[string]any{
			"generation": generation,
			"status":     entities.DownloadStatusQueued,
			"task_id":    "",
			"completed":  0,
			"total":      0,
			"last_error": "",
			"updated_at": time.Now(),
		}).Error
	})
	return generation, err
}

// SetTaskID records the host task id of the current generation.
func (r *Repository) SetTaskID(ctx context.Context, bookID string, generation int64, taskID string) error {
	return r.update(ctx, bookID, generation, map[string]any{"task_id": taskID})
}

// MarkRunning moves the current generation to running and counts the attempt.
func (r *Repository) MarkRunning(ctx context.Context, bookID string, generation int64) error {
	return r.update(ctx, bookID, generation, map[string]any{
		"status":   entities.DownloadStatusRunning,
		"attempts": gorm.Expr("attempts + 1"),
	})
}

func (r *Repository) UpdateProgress(ctx context.Context, bookID string, generation, completed, total int64) error {
	return r.update(ctx, bookID, generation, map[string]any{"completed": completed, "total": total})
}

// Finish records the terminal status of the current generation.
func (r *Repository) Finish(ctx context.Context, bookID string, generation int64, status entities.DownloadStatus, errMsg string) error {
	return r.update(ctx, bookID, generation, map[string]any{"status": status, "last_error": errMsg})
}

// update only touches the row if generation is still current, so a
// superseded run cannot overwrite its successor's state.
func (r *Repository) update(ctx context.Context, bookID string, generation int64, fields map[string]any) error {
	fields["updated_at"] = time.Now()
	return database.Conn(ctx, r.db).Model(&entities.DownloadJob{}).
		Where("book_id = ? AND generation = ?", bookID, generation).
		Updates(fields).Error
}

// List returns jobs, most recently updated first. An empty status lists all.
func (r *Repository) List(ctx context.Context, status entities.DownloadStatus) ([]entities.DownloadJob, error) {
	var result []entities.DownloadJob
	query := database.Conn(ctx, r.db).Order("updated_at DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Find(&result).Error
	return result, err
}

func (r *Repository) Delete(ctx context.Context, bookID string) error {
	return database.Conn(ctx, r.db).Delete(&entities.DownloadJob{}, "book_id = ?", bookID).Error
}
