package database

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/offlinemirror/internal/entities"
	"github.com/mrlokans/offlinemirror/internal/logging"
)

// Models is the full schema migrated on startup.
var Models = []any{
	&entities.MediaServer{},
	&entities.OfflineUser{},
	&entities.OfflineLibrary{},
	&entities.OfflineSeries{},
	&entities.OfflineSeriesMetadata{},
	&entities.OfflineThumbnailSeries{},
	&entities.OfflineBook{},
	&entities.OfflineBookMetadata{},
	&entities.OfflineBookMetadataAuthor{},
	&entities.OfflineMedia{},
	&entities.OfflineThumbnailBook{},
	&entities.OfflineReadProgress{},
	&entities.OfflineBookMetadataAggregation{},
	&entities.OfflineAggregationAuthor{},
	&entities.OfflineAggregationTag{},
	&entities.LogEntry{},
	&entities.DownloadJob{},
	&entities.SyncProgress{},
	&entities.Setting{},
}

type Database struct {
	DB *gorm.DB
}

// NewDatabase opens the sqlite file at dbPath and migrates the schema.
func NewDatabase(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath+"?_journal_mode=WAL&_busy_timeout=5000"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Warn),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	// sqlite allows one writer; a single connection serializes transactions
	// instead of surfacing SQLITE_BUSY to the caller.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(Models...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logging.Info().Str("path", dbPath).Msg("Database initialized")

	return &Database{DB: db}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
