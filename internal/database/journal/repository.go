// Package journal stores the user-facing offline log journal.
package journal

import (
	"context"
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

// Save appends an entry to the journal.
func (r *Repository) Save(ctx context.Context, entry *entities.LogEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	return database.Conn(ctx, r.db).Create(entry).Error
}

// List retrieves paginated entries, most recent first. An empty logType
// returns every type.
func (r *Repository) List(ctx context.Context, logType entities.LogType, limit, offset int) ([]entities.LogEntry, int64, error) {
	var entries []entities.LogEntry
	var total int64

	query := database.Conn(ctx, r.db).Model(&entities.LogEntry{})
	if logType != "" {
		query = query.Where("type = ?", logType)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	err := query.Order("timestamp DESC").Limit(limit).Offset(offset).Find(&entries).Error
	return entries, total, err
}

// DeleteOlderThan removes entries logged before the cutoff.
// Returns the number of deleted entries.
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := database.Conn(ctx, r.db).Where("timestamp < ?", cutoff).Delete(&entities.LogEntry{})
	return result.RowsAffected, result.Error
}

// DeleteAll clears the journal.
func (r *Repository) DeleteAll(ctx context.Context) error {
	return database.Conn(ctx, r.db).Where("1 = 1").Delete(&entities.LogEntry{}).Error
}
