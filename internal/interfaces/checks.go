package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/offlinemirror/internal/actions"
	"github.com/mrlokans/offlinemirror/internal/catalog"
	"github.com/mrlokans/offlinemirror/internal/cli"
	"github.com/mrlokans/offlinemirror/internal/database/books"
	"github.com/mrlokans/offlinemirror/internal/database/series"
	syncdb "github.com/mrlokans/offlinemirror/internal/database/sync"
	"github.com/mrlokans/offlinemirror/internal/download"
	"github.com/mrlokans/offlinemirror/internal/events"
	"github.com/mrlokans/offlinemirror/internal/http"
	"github.com/mrlokans/offlinemirror/internal/journal"
	"github.com/mrlokans/offlinemirror/internal/scheduler"
	"github.com/mrlokans/offlinemirror/internal/settingsstore"
	"github.com/mrlokans/offlinemirror/internal/syncer"
	"github.com/mrlokans/offlinemirror/internal/tasks"
)

// =============================================================================
// Data Access Layer
// =============================================================================

var _ http.OfflineSeriesStore = (*series.Repository)(nil)
var _ http.OfflineBookStore = (*books.Repository)(nil)
var _ http.SyncProgressReader = (*syncdb.Repository)(nil)
var _ http.JournalStore = (*journal.Service)(nil)
var _ tasks.JournalCleaner = (*journal.Service)(nil)

// Settings
var _ http.LastSyncReader = (*settingsstore.SyncSettings)(nil)
var _ http.OfflineModeReader = (*settingsstore.SyncSettings)(nil)
var _ http.ActiveUserReader = (*settingsstore.SyncSettings)(nil)
var _ syncer.IdentitySettings = (*settingsstore.SyncSettings)(nil)

// =============================================================================
// Remote Catalog
// =============================================================================

var _ catalog.API = (*catalog.Client)(nil)
var _ catalog.API = (*catalog.BreakerClient)(nil)
var _ http.BreakerStater = (*catalog.BreakerClient)(nil)

// =============================================================================
// Actions and Follow-up Work
// =============================================================================

var _ http.OfflineActions = (*actions.Actions)(nil)
var _ tasks.SeriesAggregator = (*actions.Actions)(nil)
var _ actions.Scheduler = (*actions.InlineScheduler)(nil)
var _ actions.Scheduler = (*tasks.BackliteScheduler)(nil)
var _ actions.FileRemover = (*download.FilesystemOutput)(nil)
var _ download.OutputProvider = (*download.FilesystemOutput)(nil)

// =============================================================================
// Downloads and Events
// =============================================================================

var _ tasks.Downloader = (*download.Service)(nil)
var _ tasks.DownloadScheduler = (*tasks.DownloadManager)(nil)
var _ http.DownloadQueue = (*tasks.DownloadManager)(nil)
var _ events.Publisher = (*events.Bus)(nil)
var _ http.EventSource = (*events.Bus)(nil)

// =============================================================================
// Sync and Commands
// =============================================================================

var _ http.SyncRunner = (*syncer.Manager)(nil)
var _ scheduler.Syncer = (*syncer.Manager)(nil)

var _ cli.Command = (*cli.SyncCommand)(nil)
var _ cli.Command = (*cli.DownloadCommand)(nil)
var _ cli.Command = (*cli.DeleteSeriesCommand)(nil)
var _ cli.Command = (*cli.LogsCommand)(nil)
