// Package libraries provides database operations for mirrored libraries.
package libraries

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

// Find returns nil without error when the library is not mirrored.
func (r *Repository) Find(ctx context.Context, id string) (*entities.OfflineLibrary, error) {
	var library entities.OfflineLibrary
	err := database.Conn(ctx, r.db).First(&library, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &library, nil
}

// FindByServerID lists a server's libraries in id order.
func (r *Repository) FindByServerID(ctx context.Context, serverID string) ([]entities.OfflineLibrary, error) {
	var result []entities.OfflineLibrary
	err := database.Conn(ctx, r.db).Where("server_id = ?", serverID).Order("id ASC").Find(&result).Error
	return result, err
}

func (r *Repository) FindAll(ctx context.Context) ([]entities.OfflineLibrary, error) {
	var result []entities.OfflineLibrary
	err := database.Conn(ctx, r.db).Order("name ASC").Find(&result).Error
	return result, err
}

func (r *Repository) Save(ctx context.Context, library *entities.OfflineLibrary) error {
	return database.Conn(ctx, r.db).Save(library).Error
}

func (r *Repository) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return database.Conn(ctx, r.db).Where("id IN ?", ids).Delete(&entities.OfflineLibrary{}).Error
}
