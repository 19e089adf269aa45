package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, int32(8080), cfg.HTTP.Port)
	assert.Equal(t, DefaultDatabasePath, cfg.Database.Path)
	assert.Equal(t, 6*time.Hour, cfg.Sync.MinInterval)
	assert.Equal(t, 4, cfg.Download.Concurrency)
	assert.Equal(t, 200*time.Millisecond, cfg.Download.ProgressInterval)
	assert.Equal(t, time.Duration(0), cfg.Tasks.TaskTimeout)
	assert.True(t, cfg.Offline())
	require.NoError(t, cfg.Validate())
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("REMOTE_URL", "http://catalog.local:25600")
	t.Setenv("REMOTE_USERNAME", "reader@example.com")
	t.Setenv("REMOTE_PASSWORD", "secret")
	t.Setenv("DOWNLOAD_CONCURRENCY", "2")
	t.Setenv("SYNC_MIN_INTERVAL", "30m")

	cfg := NewConfig()

	assert.False(t, cfg.Offline())
	assert.Equal(t, "reader@example.com", cfg.Remote.Username)
	assert.Equal(t, 2, cfg.Download.Concurrency)
	assert.Equal(t, 30*time.Minute, cfg.Sync.MinInterval)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:    "bad remote url",
			mutate:  func(c *Config) { c.Remote.URL = "not a url" },
			wantErr: "Remote.URL",
		},
		{
			name:    "zero concurrency",
			mutate:  func(c *Config) { c.Download.Concurrency = 0 },
			wantErr: "Download.Concurrency",
		},
		{
			name:    "password without username",
			mutate:  func(c *Config) { c.Remote.Password = "x" },
			wantErr: "Remote.Username",
		},
		{
			name:    "unknown log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "Logging.Format",
		},
		{
			name:    "bad cron schedule",
			mutate:  func(c *Config) { c.Sync.Schedule = "every day" },
			wantErr: "sync schedule",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
