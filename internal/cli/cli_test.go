package cli

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/offlinemirror/internal/catalog"
	"github.com/mrlokans/offlinemirror/internal/config"
	"github.com/mrlokans/offlinemirror/internal/database/series"
	"github.com/mrlokans/offlinemirror/internal/entrypoint"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.NewConfig()
	cfg.Database.Path = filepath.Join(dir, "mirror.db")
	cfg.Download.Dir = filepath.Join(dir, "downloads")
	cfg.Remote = config.Remote{RateLimit: 10, RateBurst: 5}
	cfg.Logging.Level = "error"
	return cfg
}

// withApp opens the mirror behind cfg for seeding, then closes it.
func withApp(t *testing.T, cfg *config.Config, fn func(app *entrypoint.App)) {
	t.Helper()
	app, err := entrypoint.Bootstrap(context.Background(), cfg)
	require.NoError(t, err)
	fn(app)
	require.NoError(t, app.Close())
}

func TestSyncCommand_ParseFlags(t *testing.T) {
	cmd := NewSyncCommand(testConfig(t), &bytes.Buffer{})

	require.NoError(t, cmd.ParseFlags([]string{"-force", "-db", "/tmp/other.db"}))

	assert.True(t, cmd.Force)
	assert.Equal(t, "/tmp/other.db", cmd.cfg.Database.Path)
}

func TestSyncCommand_RequiresRemote(t *testing.T) {
	cmd := NewSyncCommand(testConfig(t), &bytes.Buffer{})
	require.NoError(t, cmd.ParseFlags(nil))

	err := cmd.Run(context.Background())

	assert.ErrorIs(t, err, ErrNoRemote)
}

func TestDownloadCommand_ParseFlags(t *testing.T) {
	t.Run("book is required", func(t *testing.T) {
		cmd := NewDownloadCommand(testConfig(t), &bytes.Buffer{})
		err := cmd.ParseFlags(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "book is required")
	})

	t.Run("reads book and dir", func(t *testing.T) {
		cmd := NewDownloadCommand(testConfig(t), &bytes.Buffer{})
		require.NoError(t, cmd.ParseFlags([]string{"-book", "b1", "-dir", "/mnt/comics"}))
		assert.Equal(t, "b1", cmd.BookID)
		assert.Equal(t, "/mnt/comics", cmd.Dir)
	})

	t.Run("unknown flag", func(t *testing.T) {
		cmd := NewDownloadCommand(testConfig(t), &bytes.Buffer{})
		assert.Error(t, cmd.ParseFlags([]string{"-bogus"}))
	})
}

func TestDownloadCommand_RequiresRemote(t *testing.T) {
	cmd := NewDownloadCommand(testConfig(t), &bytes.Buffer{})
	require.NoError(t, cmd.ParseFlags([]string{"-book", "b1"}))

	assert.ErrorIs(t, cmd.Run(context.Background()), ErrNoRemote)
}

func TestDeleteSeriesCommand_Run(t *testing.T) {
	cfg := testConfig(t)
	withApp(t, cfg, func(app *entrypoint.App) {
		require.NoError(t, app.Actions.SeriesImport(context.Background(), &catalog.Series{
			ID:        "s1",
			LibraryID: "lib1",
			Name:      "Vinland Saga",
		}))
	})

	var out bytes.Buffer
	cmd := NewDeleteSeriesCommand(cfg, &out)
	require.NoError(t, cmd.ParseFlags([]string{"-series", "s1"}))
	require.NoError(t, cmd.Run(context.Background()))
	assert.Contains(t, out.String(), "Deleted series Vinland Saga (s1)")

	withApp(t, cfg, func(app *entrypoint.App) {
		s, err := series.NewRepository(app.DB.DB).Find(context.Background(), "s1")
		require.NoError(t, err)
		assert.Nil(t, s)
	})

	err := cmd.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not mirrored")
}

func TestDeleteSeriesCommand_RequiresSeries(t *testing.T) {
	cmd := NewDeleteSeriesCommand(testConfig(t), &bytes.Buffer{})
	assert.Error(t, cmd.ParseFlags(nil))
}

func TestLogsCommand_ParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{name: "defaults", args: nil},
		{name: "type is case insensitive", args: []string{"-type", "Error"}},
		{name: "unknown type", args: []string{"-type", "debug"}, wantErr: true},
		{name: "zero limit", args: []string{"-limit", "0"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewLogsCommand(testConfig(t), &bytes.Buffer{})
			err := cmd.ParseFlags(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLogsCommand_Run(t *testing.T) {
	cfg := testConfig(t)
	withApp(t, cfg, func(app *entrypoint.App) {
		ctx := context.Background()
		app.Journal.Info(ctx, "Book downloaded: Vol 1")
		app.Journal.Error(ctx, "Book download error", errors.New("disk full"))
	})

	t.Run("lists filtered entries", func(t *testing.T) {
		var out bytes.Buffer
		cmd := NewLogsCommand(cfg, &out)
		require.NoError(t, cmd.ParseFlags([]string{"-type", "error"}))
		require.NoError(t, cmd.Run(context.Background()))

		assert.Contains(t, out.String(), "disk full")
		assert.NotContains(t, out.String(), "Vol 1")
		assert.Contains(t, out.String(), "1 of 1 entries")
	})

	t.Run("clears the journal", func(t *testing.T) {
		var out bytes.Buffer
		cmd := NewLogsCommand(cfg, &out)
		require.NoError(t, cmd.ParseFlags([]string{"-clear"}))
		require.NoError(t, cmd.Run(context.Background()))
		assert.Contains(t, out.String(), "Log journal cleared")

		out.Reset()
		list := NewLogsCommand(cfg, &out)
		require.NoError(t, list.ParseFlags(nil))
		require.NoError(t, list.Run(context.Background()))
		assert.Contains(t, out.String(), "0 of 0 entries")
	})
}
