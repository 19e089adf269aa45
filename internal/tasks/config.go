package tasks

import (
	"sync/atomic"
	"time"
)

// Config holds configuration for the task queue system.
type Config struct {
	// Workers is the number of concurrent task workers. Default: 4
	Workers int

	// MaxRetries is the maximum attempts for a failed download. Default: 3
	MaxRetries int

	// RetryDelay is the backoff duration between download attempts. Default: 1m
	RetryDelay time.Duration

	// TaskTimeout bounds one download attempt. Zero leaves it at
	// DefaultDownloadTimeout, which the host queue needs to be finite.
	TaskTimeout time.Duration

	// ReleaseAfter is when stuck tasks are released back to queue. Default: 6h
	ReleaseAfter time.Duration

	// CleanupInterval is how often to clean up completed tasks. Default: 1h
	CleanupInterval time.Duration

	// RetentionDuration is how long to keep completed tasks. Default: 24h
	RetentionDuration time.Duration
}

// DefaultDownloadTimeout is the attempt ceiling handed to the host queue
// when no TaskTimeout is configured.
const DefaultDownloadTimeout = 6 * time.Hour

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Workers:           4,
		MaxRetries:        3,
		RetryDelay:        1 * time.Minute,
		ReleaseAfter:      6 * time.Hour,
		CleanupInterval:   1 * time.Hour,
		RetentionDuration: 24 * time.Hour,
	}
}

// queueDefaults is read by the task Config methods, which backlite calls
// without any client state.
var queueDefaults atomic.Pointer[Config]

func init() {
	cfg := DefaultConfig()
	queueDefaults.Store(&cfg)
}

func currentDefaults() Config {
	return *queueDefaults.Load()
}

func (c Config) downloadTimeout() time.Duration {
	if c.TaskTimeout > 0 {
		return c.TaskTimeout
	}
	return DefaultDownloadTimeout
}
