// Package servers provides database operations for mirrored media servers.
package servers

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/mrlokans/offlinemirror/internal/database"
	"github.com/mrlokans/offlinemirror/internal/entities"
)

// Repository handles media server rows.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new servers repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Get returns gorm.ErrRecordNotFound when the server is unknown.
func (r *Repository) Get(ctx context.Context, id string) (*entities.MediaServer, error) {
	var server entities.MediaServer
	if err := database.Conn(ctx, r.db).First(&server, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &server, nil
}

// FindByURL returns nil without error when no server has the URL.
func (r *Repository) FindByURL(ctx context.Context, url string) (*entities.MediaServer, error) {
	var server entities.MediaServer
	err := database.Conn(ctx, r.db).Where("url = ?", url).First(&server).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &server, nil
}

// FindByUserID resolves the server a mirrored user belongs to. Returns nil
// without error when the user or its server is not mirrored.
func (r *Repository) FindByUserID(ctx context.Context, userID string) (*entities.MediaServer, error) {
	var server entities.MediaServer
	err := database.Conn(ctx, r.db).
		Joins("JOIN offline_users ON offline_users.server_id = media_servers.id").
		Where("offline_users.id = ?", userID).
		First(&server).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &server, nil
}

func (r *Repository) FindAll(ctx context.Context) ([]entities.MediaServer, error) {
	var result []entities.MediaServer
	err := database.Conn(ctx, r.db).Order("url ASC").Find(&result).Error
	return result, err
}

func (r *Repository) Save(ctx context.Context, server *entities.MediaServer) error {
	return database.Conn(ctx, r.db).Save(server).Error
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	return database.Conn(ctx, r.db).Delete(&entities.MediaServer{}, "id = ?", id).Error
}
