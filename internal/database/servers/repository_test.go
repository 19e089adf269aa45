package servers

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/offlinemirror/internal/database"
	"github.com/mrlokans/offlinemirror/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, *database.Database, func()) {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "servers.db"))
	require.NoError(t, err)
	return NewRepository(db.DB), db, func() { db.Close() }
}

func TestRepository_FindByURL(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	missing, err := repo.FindByURL(ctx, "http://catalog")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.Save(ctx, &entities.MediaServer{ID: "s1", URL: "http://catalog"}))

	found, err := repo.FindByURL(ctx, "http://catalog")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "s1", found.ID)
}

func TestRepository_FindByUserID(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &entities.MediaServer{ID: "s1", URL: "http://a"}))
	require.NoError(t, repo.Save(ctx, &entities.MediaServer{ID: "s2", URL: "http://b"}))
	require.NoError(t, db.DB.Create(&entities.OfflineUser{ID: "u1", ServerID: "s2", Email: "a@b.c"}).Error)

	server, err := repo.FindByUserID(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, server)
	assert.Equal(t, "s2", server.ID)

	none, err := repo.FindByUserID(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestRepository_Delete(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &entities.MediaServer{ID: "s1", URL: "http://a"}))
	require.NoError(t, repo.Delete(ctx, "s1"))

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
