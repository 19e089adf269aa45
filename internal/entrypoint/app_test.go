package entrypoint

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/offlinemirror/internal/config"
	"github.com/mrlokans/offlinemirror/internal/syncer"
)

func testConfig(t *testing.T, remoteURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.NewConfig()
	cfg.Database.Path = filepath.Join(dir, "mirror.db")
	cfg.Download.Dir = filepath.Join(dir, "downloads")
	cfg.Remote.URL = remoteURL
	cfg.Remote.Username = ""
	cfg.Remote.Password = ""
	return cfg
}

func TestBootstrap_Offline(t *testing.T) {
	app, err := Bootstrap(context.Background(), testConfig(t, ""))
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })

	assert.False(t, app.Online())
	assert.Nil(t, app.Remote)
	assert.Nil(t, app.Downloads)
	assert.Nil(t, app.Syncer)
	assert.NotNil(t, app.Actions)
	assert.NotNil(t, app.Journal)

	_, err = app.ResolveIdentity(context.Background())
	assert.ErrorIs(t, err, syncer.ErrOffline)
}

func TestBootstrap_Online(t *testing.T) {
	app, err := Bootstrap(context.Background(), testConfig(t, "https://catalog.example.com"))
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })

	assert.True(t, app.Online())
	assert.NotNil(t, app.Downloads)
	assert.NotNil(t, app.Syncer)
	assert.NotNil(t, app.Resolver)
	assert.Nil(t, app.Identity.Get())
	assert.Equal(t, "https://catalog.example.com", app.Remote.BaseURL())
}

func TestBootstrap_InvalidConfig(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.Download.Concurrency = 0

	_, err := Bootstrap(context.Background(), cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Download.Concurrency")
}

func TestApp_ScheduleMaintenance(t *testing.T) {
	app, err := Bootstrap(context.Background(), testConfig(t, ""))
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })

	assert.NoError(t, app.ScheduleMaintenance(context.Background()))
}

func TestNewTree_AppliesDefaults(t *testing.T) {
	tree := NewTree(TreeConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, tree.Serve(ctx))
}
