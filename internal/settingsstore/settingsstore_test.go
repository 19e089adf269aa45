package settingsstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/offlinemirror/internal/database"
	"github.com/mrlokans/offlinemirror/internal/database/settings"
)

func setupStore(t *testing.T) (*settings.Repository, func()) {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "settings.db"))
	require.NoError(t, err)
	return settings.NewRepository(db.DB), func() { db.Close() }
}

func TestLoad_Defaults(t *testing.T) {
	repo, cleanup := setupStore(t)
	defer cleanup()

	s, err := Load(context.Background(), repo)
	require.NoError(t, err)
	assert.True(t, s.LastSync().IsZero())
	assert.False(t, s.OfflineMode())
	assert.Empty(t, s.ActiveUserID())
}

func TestSyncSettings_PersistAndReload(t *testing.T) {
	repo, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	s, err := Load(ctx, repo)
	require.NoError(t, err)

	synced := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.SetLastSync(ctx, synced))
	require.NoError(t, s.SetOfflineMode(ctx, true))
	require.NoError(t, s.SetActiveUserID(ctx, "u1"))

	reloaded, err := Load(ctx, repo)
	require.NoError(t, err)
	assert.True(t, synced.Equal(reloaded.LastSync()))
	assert.True(t, reloaded.OfflineMode())
	assert.Equal(t, "u1", reloaded.ActiveUserID())
}

func TestSyncSettings_LastSyncIsMonotonic(t *testing.T) {
	repo, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	s, err := Load(ctx, repo)
	require.NoError(t, err)

	later := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SetLastSync(ctx, later))
	require.NoError(t, s.SetLastSync(ctx, later.Add(-time.Hour)))

	assert.True(t, later.Equal(s.LastSync()))
}

func TestSyncSettings_CellsNotify(t *testing.T) {
	repo, cleanup := setupStore(t)
	defer cleanup()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := Load(ctx, repo)
	require.NoError(t, err)

	updates := s.OfflineModeCell().Subscribe(ctx)
	assert.False(t, <-updates)

	require.NoError(t, s.SetOfflineMode(ctx, true))
	select {
	case v := <-updates:
		assert.True(t, v)
	case <-time.After(time.Second):
		t.Fatal("no update")
	}
}

func TestGetDownloadDir_Priority(t *testing.T) {
	repo, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	s, err := Load(ctx, repo)
	require.NoError(t, err)

	assert.Equal(t, "./fallback", s.GetDownloadDir(ctx, "./fallback"))

	t.Setenv("DOWNLOAD_DIR", "/env/downloads")
	assert.Equal(t, "/env/downloads", s.GetDownloadDir(ctx, "./fallback"))

	require.NoError(t, s.SetDownloadDir(ctx, "/db/downloads"))
	assert.Equal(t, "/db/downloads", s.GetDownloadDir(ctx, "./fallback"))
}
