package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Remote
		Sync
		Download
		Tasks
		Logging
	}

	HTTP struct {
		Port int32  `validate:"min=1,max=65535"`
		Host string `validate:"required"`
	}

	Global struct {
		ShutdownTimeoutInSeconds int `validate:"min=0"`
	}

	Database struct {
		Path string `validate:"required"`
	}

	// Remote describes the catalog server being mirrored. An empty URL
	// starts the engine in offline mode.
	Remote struct {
		URL       string        `validate:"omitempty,url"`
		Username  string        `validate:"required_with=Password"`
		Password  string        `validate:"required_with=Username"`
		APIKey    string
		Timeout   time.Duration `validate:"min=0"`
		RateLimit float64       `validate:"gt=0"` // requests per second
		RateBurst int           `validate:"min=1"`
	}

	Sync struct {
		Enabled     bool
		Schedule    string        `validate:"required"` // Cron format: "0 * * * *" = hourly
		MinInterval time.Duration `validate:"min=0"`
	}

	Download struct {
		Dir              string `validate:"required"`
		Concurrency      int    `validate:"min=1"`
		ProgressInterval time.Duration
	}

	Tasks struct {
		Workers           int `validate:"min=1"`
		MaxRetries        int `validate:"min=1"`
		RetryDelay        time.Duration
		TaskTimeout       time.Duration // 0 runs downloads without a deadline
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}

	Logging struct {
		Level            string `validate:"oneof=trace debug info warn error"`
		Format           string `validate:"oneof=json console"`
		JournalRetention time.Duration
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("http_port", 8080)
	v.SetDefault("http_host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("database_path", DefaultDatabasePath)

	v.SetDefault("remote_url", "")
	v.SetDefault("remote_timeout", "30s")
	v.SetDefault("remote_rate_limit", 10)
	v.SetDefault("remote_rate_burst", 5)

	v.SetDefault("sync_enabled", true)
	v.SetDefault("sync_schedule", "0 * * * *") // Hourly; the min interval gates actual passes
	v.SetDefault("sync_min_interval", "6h")

	v.SetDefault("download_dir", DefaultDownloadDir)
	v.SetDefault("download_concurrency", 4)
	v.SetDefault("download_progress_interval", "200ms")

	v.SetDefault("tasks_workers", 4)
	v.SetDefault("tasks_retries", 3)
	v.SetDefault("tasks_retry_delay", "1m")
	v.SetDefault("tasks_timeout", "0s")
	v.SetDefault("tasks_release_after", "6h")
	v.SetDefault("tasks_cleanup_interval", "1h")
	v.SetDefault("tasks_retention", "24h")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("journal_retention", "720h")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("HTTP_PORT"),
			Host: v.GetString("HTTP_HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Remote: Remote{
			URL:       v.GetString("REMOTE_URL"),
			Username:  v.GetString("REMOTE_USERNAME"),
			Password:  v.GetString("REMOTE_PASSWORD"),
			APIKey:    v.GetString("REMOTE_API_KEY"),
			Timeout:   v.GetDuration("REMOTE_TIMEOUT"),
			RateLimit: v.GetFloat64("REMOTE_RATE_LIMIT"),
			RateBurst: v.GetInt("REMOTE_RATE_BURST"),
		},
		Sync: Sync{
			Enabled:     v.GetBool("SYNC_ENABLED"),
			Schedule:    v.GetString("SYNC_SCHEDULE"),
			MinInterval: v.GetDuration("SYNC_MIN_INTERVAL"),
		},
		Download: Download{
			Dir:              v.GetString("DOWNLOAD_DIR"),
			Concurrency:      v.GetInt("DOWNLOAD_CONCURRENCY"),
			ProgressInterval: v.GetDuration("DOWNLOAD_PROGRESS_INTERVAL"),
		},
		Tasks: Tasks{
			Workers:           v.GetInt("TASKS_WORKERS"),
			MaxRetries:        v.GetInt("TASKS_RETRIES"),
			RetryDelay:        v.GetDuration("TASKS_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASKS_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASKS_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASKS_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASKS_RETENTION"),
		},
		Logging: Logging{
			Level:            v.GetString("LOG_LEVEL"),
			Format:           v.GetString("LOG_FORMAT"),
			JournalRetention: v.GetDuration("JOURNAL_RETENTION"),
		},
	}
}

// Offline reports whether no remote server is configured.
func (c *Config) Offline() bool {
	return c.Remote.URL == ""
}
