package config

// Default paths
const (
	// DefaultDatabasePath is the default path for the mirror database
	DefaultDatabasePath = "./offline-mirror.db"

	// DefaultDownloadDir is the root under which per-series book directories are created
	DefaultDownloadDir = "./downloads"
)
