// Package users provides database operations for mirrored users.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, err := repo.Get(ctx, userID)
package users

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/mrlokans/offlinemirror/internal/database"
	"github.com/mrlokans/offlinemirror/internal/entities"
)

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Get returns gorm.ErrRecordNotFound when the user is not mirrored.
func (r *Repository) Get(ctx context.Context, id string) (*entities.OfflineUser, error) {
	var user entities.OfflineUser
	if err := database.Conn(ctx, r.db).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Find returns nil without error when the user is not mirrored.
func (r *Repository) Find(ctx context.Context, id string) (*entities.OfflineUser, error) {
	user, err := r.Get(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return user, err
}

func (r *Repository) FindByServerID(ctx context.Context, serverID string) ([]entities.OfflineUser, error) {
	var result []entities.OfflineUser
	err := database.Conn(ctx, r.db).Where("server_id = ?", serverID).Order("id ASC").Find(&result).Error
	return result, err
}

func (r *Repository) FindAll(ctx context.Context) ([]entities.OfflineUser, error) {
	var result []entities.OfflineUser
	err := database.Conn(ctx, r.db).Order("email ASC").Find(&result).Error
	return result, err
}

func (r *Repository) Save(ctx context.Context, user *entities.OfflineUser) error {
	return database.Conn(ctx, r.db).Save(user).Error
}

func (r *Repository) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return database.Conn(ctx, r.db).Where("id IN ?", ids).Delete(&entities.OfflineUser{}).Error
}
