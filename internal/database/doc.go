// Package database provides the local storage layer of the offline mirror.
//
// # Architecture
//
//	database/
//	├── database.go      # Connection setup and migrations
//	├── transaction.go   # TransactionTemplate, Conn, AfterCommit
//	├── servers/         # Media servers
//	├── users/           # Mirrored users
//	├── libraries/       # Mirrored libraries
//	├── series/          # Series, series metadata and thumbnails
//	├── books/           # Books, book metadata, media and thumbnails
//	├── readprogress/    # Per-user read progress
//	├── aggregation/     # Per-series book metadata aggregation
//	├── journal/         # User-facing offline log journal
//	├── downloadjobs/    # Keyed download job records
//	├── sync/            # Reconciliation pass progress
//	└── settings/        # Key/value settings
//
// # Transactions
//
// Every repository method takes a context and resolves its connection with
// Conn, so a call made inside TransactionTemplate.Execute joins that
// transaction:
//
//	tt := database.NewTransactionTemplate(db.DB)
//	err := tt.Execute(ctx, func(ctx context.Context) error {
//	    if err := seriesRepo.Save(ctx, s); err != nil {
//	        return err
//	    }
//	    database.AfterCommit(ctx, func(ctx context.Context) { bus.Publish(ctx, ...) })
//	    return nil
//	})
//
// # Adding a New Entity
//
//  1. Add the gorm model to internal/entities with a TableName method
//  2. Append it to Models
//  3. Create internal/database/<entity>/ with Repository and NewRepository(db *gorm.DB)
package database
