// Package interfaces documents the core abstractions used throughout the application.
//
// This package consolidates interface documentation to help contributors find
// extension points and see how the pieces of the mirror fit together.
//
// # Interface Categories
//
// ## Data Access Interfaces
//
//   - OfflineSeriesStore: Mirrored series browsing (internal/http/offline.go)
//   - OfflineBookStore: Mirrored book browsing (internal/http/offline.go)
//   - SyncProgressReader: Persisted progress of a reconciliation pass (internal/http/sync.go)
//   - JournalStore: User-facing log journal (internal/http/logs.go)
//
// ## Remote Catalog Interfaces
//
//   - API: Remote catalog operations (internal/catalog/client.go)
//   - BreakerStater: Circuit state for the health check (internal/http/health.go)
//
// ## Follow-up Work Interfaces
//
//   - Scheduler: Deferred aggregation and file deletion (internal/actions/actions.go)
//   - FileRemover: Removal of a stored book file (internal/actions/scheduler.go)
//   - OutputProvider: Where downloaded bytes go (internal/download/output.go)
//   - Downloader: Event stream of one download (internal/tasks/worker.go)
//
// ## Sync Interfaces
//
//   - Syncer: Gated passes for the cron scheduler (internal/scheduler/scheduler.go)
//   - SyncRunner: Manual passes from the API (internal/http/sync.go)
//   - IdentitySettings: Offline mode and active user (internal/syncer/identity.go)
//
// # Adding a New Output Target
//
// To store downloads somewhere other than the local filesystem (e.g., a NAS
// share mounted through an SDK):
//
//  1. Implement OutputProvider in internal/download/
//
//     type ShareOutput struct {
//         client *share.Client
//     }
//
//     func (o *ShareOutput) PrepareOutput(book *catalog.Book, root string) (string, download.Sink, error)
//     func (o *ShareOutput) DeleteFile(handle string) error
//
//     var _ OutputProvider = (*ShareOutput)(nil)
//
//  2. Pass it to download.NewService and tasks.NewDeleteBookFilesQueue in
//     internal/entrypoint/app.go
//
// # Adding a New Background Task
//
//  1. Define the task and its queue config in internal/tasks/
//
//     type RefreshThumbnailsTask struct {
//         SeriesID string `json:"series_id"`
//     }
//
//     func (t RefreshThumbnailsTask) Config() backlite.QueueConfig
//
//  2. Create a processor and queue constructor
//
//  3. Register the queue in internal/entrypoint/app.go
//
// # Adding a New Database Domain
//
//  1. Create sub-package: internal/database/<domain>/
//
//  2. Define repository:
//
//     type Repository struct { db *gorm.DB }
//
//     func NewRepository(db *gorm.DB) *Repository
//
//  3. Use database.Conn(ctx, r.db) in every method so calls join the
//     caller's transaction
//
//  4. Add the entity to the migration list in internal/database/database.go
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go for examples.
package interfaces
