// Package sync provides database operations for reconciliation pass progress.
//
// # Usage
//
//	repo := sync.NewRepository(db)
//	err := repo.StartSync(ctx, userID)
package sync

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/offlinemirror/internal/database"
	"github.com/mrlokans/offlinemirror/internal/entities"
)

// Counts are the running totals of one reconciliation pass.
type Counts struct {
	Libraries  int
	Series     int
	Books      int
	Tombstoned int
	Failed     int
}

// Repository handles all sync progress database operations.
type Repository struct {
	db       *gorm.DB
	syncType entities.SyncType
}

// NewRepository creates a repository tracking catalog reconciliation.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, syncType: entities.SyncTypeCatalog}
}

// NewRepositoryWithType creates a sync repository for a specific sync type.
func NewRepositoryWithType(db *gorm.DB, syncType entities.SyncType) *Repository {
	return &Repository{db: db, syncType: syncType}
}

// GetSyncProgress returns nil without error when no pass has run yet.
func (r *Repository) GetSyncProgress(ctx context.Context) (*entities.SyncProgress, error) {
	var progress entities.SyncProgress
	err := database.Conn(ctx, r.db).Where("sync_type = ?", r.syncType).First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

// StartSync creates or resets the progress record for a new pass.
func (r *Repository) StartSync(ctx context.Context, userID string) error {
	conn := database.Conn(ctx, r.db)
	var progress entities.SyncProgress
	result := conn.Where("sync_type = ?", r.syncType).First(&progress)

	now := time.Now()
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		progress = entities.SyncProgress{
			SyncType:  r.syncType,
			Status:    entities.SyncStatusRunning,
			UserID:    userID,
			StartedAt: now,
			UpdatedAt: now,
		}
		return conn.Create(&progress).Error
	} else if result.Error != nil {
		return result.Error
	}

	// Reset existing record
	progress.Status = entities.SyncStatusRunning
	progress.UserID = userID
	progress.Libraries = 0
	progress.Series = 0
	progress.Books = 0
	progress.Tombstoned = 0
	progress.Failed = 0
	progress.CurrentItem = ""
	progress.Error = ""
	progress.StartedAt = now
	progress.UpdatedAt = now
	progress.CompletedAt = nil

	return conn.Save(&progress).Error
}

// UpdateProgress records the running totals of the current pass.
func (r *Repository) UpdateProgress(ctx context.Context, counts Counts, currentItem string) error {
	return database.Conn(ctx, r.db).Model(&entities.SyncProgress{}).
		Where("sync_type = ?", r.syncType).
		Updates(map[string]any{
			"libraries":    counts.Libraries,
			"series":       counts.Series,
			"books":        counts.Books,
			"tombstoned":   counts.Tombstoned,
			"failed":       counts.Failed,
			"current_item": currentItem,
			"updated_at":   time.Now(),
		}).Error
}

// CompleteSync marks a pass as finished with the given status.
func (r *Repository) CompleteSync(ctx context.Context, status entities.SyncStatus, errorMsg string) error {
	now := time.Now()
	updates := map[string]any{
		"status":       status,
		"current_item": "",
		"updated_at":   now,
		"completed_at": now,
	}
	if errorMsg != "" {
		updates["error"] = errorMsg
	}
	return database.Conn(ctx, r.db).Model(&entities.SyncProgress{}).
		Where("sync_type = ?", r.syncType).
		Updates(updates).Error
}

// IsSyncRunning checks if a pass is currently in progress.
// A pass is considered stale if not updated in 10 minutes.
func (r *Repository) IsSyncRunning(ctx context.Context) (bool, error) {
	var progress entities.SyncProgress
	err := database.Conn(ctx, r.db).
		Where("sync_type = ? AND status = ?", r.syncType, entities.SyncStatusRunning).
		First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	staleThreshold := time.Now().Add(-10 * time.Minute)
	if progress.UpdatedAt.Before(staleThreshold) {
		_ = r.CompleteSync(ctx, entities.SyncStatusFailed, "sync was interrupted")
		return false, nil
	}

	return true, nil
}
