package settings

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/offlinemirror/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	dbPath := filepath.Join(t.TempDir(), "settings.db")

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.Setting{})
	require.NoError(t, err)

	repo := NewRepository(db)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	}

	return repo, cleanup
}

func TestRepository_SetSetting_New(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	err := repo.SetSetting(ctx, entities.SettingKeyOfflineMode, "true")
	require.NoError(t, err)

	setting, err := repo.GetSetting(ctx, entities.SettingKeyOfflineMode)
	require.NoError(t, err)
	assert.Equal(t, entities.SettingKeyOfflineMode, setting.Key)
	assert.Equal(t, "true", setting.Value)
}

func TestRepository_SetSetting_Update(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	err := repo.SetSetting(ctx, entities.SettingKeyActiveUserID, "u1")
	require.NoError(t, err)

	err = repo.SetSetting(ctx, entities.SettingKeyActiveUserID, "u2")
	require.NoError(t, err)

	setting, err := repo.GetSetting(ctx, entities.SettingKeyActiveUserID)
	require.NoError(t, err)
	assert.Equal(t, "u2", setting.Value)
}

func TestRepository_GetSetting_NotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.GetSetting(context.Background(), "nonexistent")

	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_DeleteSetting(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	err := repo.SetSetting(ctx, "to-delete", "value")
	require.NoError(t, err)

	err = repo.DeleteSetting(ctx, "to-delete")
	require.NoError(t, err)

	_, err = repo.GetSetting(ctx, "to-delete")
	assert.Error(t, err)

	// Deleting a missing key is not an error
	assert.NoError(t, repo.DeleteSetting(ctx, "nonexistent"))
}
