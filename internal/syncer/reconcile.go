// Package syncer keeps the offline mirror in step with the catalog server.
//
// A pass walks the mirrored entities of the active identity's server in id
// order, refreshes what the remote still has and tombstones what it lost.
// Passes are gated by a minimum interval; the gate only affects how often
// work happens, never what a pass does.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/mrlokans/offlinemirror/internal/actions"
	"github.com/mrlokans/offlinemirror/internal/catalog"
	"github.com/mrlokans/offlinemirror/internal/clock"
	"github.com/mrlokans/offlinemirror/internal/database/books"
	"github.com/mrlokans/offlinemirror/internal/database/libraries"
	"github.com/mrlokans/offlinemirror/internal/database/series"
	"github.com/mrlokans/offlinemirror/internal/database/servers"
	syncdb "github.com/mrlokans/offlinemirror/internal/database/sync"
	"github.com/mrlokans/offlinemirror/internal/entities"
	"github.com/mrlokans/offlinemirror/internal/journal"
	"github.com/mrlokans/offlinemirror/internal/logging"
	"github.com/mrlokans/offlinemirror/internal/metrics"
	"github.com/mrlokans/offlinemirror/internal/settingsstore"
)

// DefaultMinInterval is the minimum gap between two reconciliation passes.
const DefaultMinInterval = 6 * time.Hour

var ErrSyncRunning = errors.New("a sync pass is already running")

// Result summarises one reconciliation pass.
type Result struct {
	Skipped    bool   `json:"skipped"`
	Reason     string `json:"reason,omitempty"`
	Libraries  int    `json:"libraries"`
	Series     int    `json:"series"`
	Books      int    `json:"books"`
	Tombstoned int    `json:"tombstoned"`
	Errors     int    `json:"errors"`
}

func (r Result) counts() syncdb.Counts {
	return syncdb.Counts{
		Libraries:  r.Libraries,
		Series:     r.Series,
		Books:      r.Books,
		Tombstoned: r.Tombstoned,
		Failed:     r.Errors,
	}
}

type Config struct {
	MinInterval time.Duration
}

// Reconciler runs reconciliation passes against one catalog server.
type Reconciler struct {
	api      catalog.API
	actions  *actions.Actions
	settings *settingsstore.SyncSettings
	journal  *journal.Service
	clock    clock.Clock

	servers   *servers.Repository
	libraries *libraries.Repository
	series    *series.Repository
	books     *books.Repository
	progress  *syncdb.Repository

	minInterval time.Duration
	log         zerolog.Logger
}

func NewReconciler(db *gorm.DB, api catalog.API, a *actions.Actions, settings *settingsstore.SyncSettings, j *journal.Service, c clock.Clock, cfg Config) *Reconciler {
	if c == nil {
		c = clock.New()
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = DefaultMinInterval
	}
	return &Reconciler{
		api:         api,
		actions:     a,
		settings:    settings,
		journal:     j,
		clock:       c,
		servers:     servers.NewRepository(db),
		libraries:   libraries.NewRepository(db),
		series:      series.NewRepository(db),
		books:       books.NewRepository(db),
		progress:    syncdb.NewRepository(db),
		minInterval: cfg.MinInterval,
		log:         logging.Component("syncer"),
	}
}

// Reconcile runs one gated pass for user.
func (r *Reconciler) Reconcile(ctx context.Context, user *catalog.User) (Result, error) {
	return r.reconcile(ctx, user, false)
}

// ReconcileNow runs a pass regardless of when the last one happened.
func (r *Reconciler) ReconcileNow(ctx context.Context, user *catalog.User) (Result, error) {
	return r.reconcile(ctx, user, true)
}

func (r *Reconciler) reconcile(ctx context.Context, user *catalog.User, force bool) (Result, error) {
	started := r.clock.Now()
	if !force {
		if last := r.settings.LastSync(); !last.IsZero() && started.Sub(last) < r.minInterval {
			metrics.SyncPasses.WithLabelValues("skipped").Inc()
			return Result{Skipped: true, Reason: "last pass at " + last.Format(time.RFC3339)}, nil
		}
	}

	server, err := r.servers.FindByUserID(ctx, user.ID)
	if err != nil {
		return Result{}, fmt.Errorf("resolve server of user %s: %w", user.ID, err)
	}
	if server == nil {
		r.log.Debug().Str("user_id", user.ID).Msg("No mirrored server for user, skipping pass")
		metrics.SyncPasses.WithLabelValues("skipped").Inc()
		return Result{Skipped: true, Reason: "nothing mirrored for this user"}, nil
	}

	if err := r.progress.StartSync(ctx, user.ID); err != nil {
		r.log.Warn().Err(err).Msg("Failed to record sync start")
	}
	r.log.Info().Str("user_id", user.ID).Str("server", server.URL).Msg("Reconciliation pass started")

	result, err := r.pass(ctx, user, server)
	metrics.SyncDuration.Observe(r.clock.Now().Sub(started).Seconds())

	if err != nil {
		metrics.SyncPasses.WithLabelValues("failed").Inc()
		r.complete(ctx, entities.SyncStatusFailed, err.Error())
		if ctx.Err() == nil {
			r.journal.Error(ctx, "Sync aborted", err)
		}
		return result, err
	}

	if err := r.settings.SetLastSync(ctx, started); err != nil {
		return result, fmt.Errorf("save sync timestamp: %w", err)
	}
	metrics.SyncPasses.WithLabelValues("completed").Inc()
	r.complete(ctx, entities.SyncStatusCompleted, "")
	r.log.Info().
		Int("libraries", result.Libraries).
		Int("series", result.Series).
		Int("books", result.Books).
		Int("tombstoned", result.Tombstoned).
		Int("errors", result.Errors).
		Msg("Reconciliation pass finished")
	return result, nil
}

func (r *Reconciler) complete(ctx context.Context, status entities.SyncStatus, msg string) {
	if err := r.progress.CompleteSync(context.WithoutCancel(ctx), status, msg); err != nil {
		r.log.Warn().Err(err).Msg("Failed to record sync completion")
	}
}

// pass returns an error only when the whole pass must stop: the catalog
// refused the identity, ctx ended, or local storage failed.
func (r *Reconciler) pass(ctx context.Context, user *catalog.User, server *entities.MediaServer) (Result, error) {
	var res Result

	if user.ID != entities.RootUserID {
		if err := r.actions.UserImport(ctx, user, server.ID); err != nil {
			return res, err
		}
	}

	libs, err := r.libraries.FindByServerID(ctx, server.ID)
	if err != nil {
		return res, fmt.Errorf("list libraries: %w", err)
	}
	for _, lib := range libs {
		if err := r.library(ctx, &res, user.ID, server, lib); err != nil {
			return res, err
		}
		if err := r.progress.UpdateProgress(ctx, res.counts(), lib.Name); err != nil {
			r.log.Warn().Err(err).Msg("Failed to record sync progress")
		}
	}
	return res, nil
}

func (r *Reconciler) library(ctx context.Context, res *Result, userID string, server *entities.MediaServer, local entities.OfflineLibrary) error {
	remote, err := r.api.GetLibrary(ctx, local.ID)
	switch {
	case err == nil:
	case errors.Is(err, catalog.ErrNotFound):
		all, err := r.books.FindByLibraryID(ctx, local.ID)
		if err != nil {
			return fmt.Errorf("list books of library %s: %w", local.ID, err)
		}
		return r.tombstone(ctx, res, "library", local.ID, live(all))
	case fatal(ctx, err):
		return err
	default:
		r.entityFailed(ctx, res, "library", local.Name, err)
		return nil
	}

	if err := r.actions.LibraryImport(ctx, remote, server.ID); err != nil {
		return err
	}
	res.Libraries++
	metrics.SyncEntities.WithLabelValues("library", "synced").Inc()

	localSeries, err := r.series.FindByLibraryID(ctx, local.ID)
	if err != nil {
		return fmt.Errorf("list series of library %s: %w", local.ID, err)
	}
	for _, s := range localSeries {
		if err := r.seriesPass(ctx, res, userID, s); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reconciler) seriesPass(ctx context.Context, res *Result, userID string, local entities.OfflineSeries) error {
	remote, err := r.api.GetSeries(ctx, local.ID)
	switch {
	case err == nil:
	case errors.Is(err, catalog.ErrNotFound):
		pending, err := r.books.FindAllNotDeleted(ctx, local.ID)
		if err != nil {
			return fmt.Errorf("list books of series %s: %w", local.ID, err)
		}
		return r.tombstone(ctx, res, "series", local.ID, pending)
	case fatal(ctx, err):
		return err
	default:
		r.entityFailed(ctx, res, "series", local.Name, err)
		return nil
	}

	if err := r.actions.SeriesImport(ctx, remote); err != nil {
		return err
	}
	res.Series++
	metrics.SyncEntities.WithLabelValues("series", "synced").Inc()

	pending, err := r.books.FindAllNotDeleted(ctx, local.ID)
	if err != nil {
		return fmt.Errorf("list books of series %s: %w", local.ID, err)
	}
	for _, b := range pending {
		if err := r.book(ctx, res, userID, b); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reconciler) book(ctx context.Context, res *Result, userID string, local entities.OfflineBook) error {
	remote, err := r.api.GetBook(ctx, local.ID)
	switch {
	case err == nil:
	case errors.Is(err, catalog.ErrNotFound):
		return r.tombstone(ctx, res, "book", local.ID, []entities.OfflineBook{local})
	case fatal(ctx, err):
		return err
	default:
		r.entityFailed(ctx, res, "book", local.Name, err)
		return nil
	}

	// Metadata only: the file on disk and its stamp stay as downloaded.
	if err := r.actions.BookImport(ctx, userID, remote, local.FileDownloadPath, local.LocalFileLastModified); err != nil {
		return err
	}
	res.Books++
	metrics.SyncEntities.WithLabelValues("book", "synced").Inc()
	return nil
}

func (r *Reconciler) tombstone(ctx context.Context, res *Result, kind, id string, affected []entities.OfflineBook) error {
	n, err := r.actions.BookMarkRemoteDeleted(ctx, affected...)
	if err != nil {
		return err
	}
	res.Tombstoned += int(n)
	metrics.SyncEntities.WithLabelValues(kind, "tombstoned").Inc()
	r.log.Info().Str("kind", kind).Str("id", id).Int64("books", n).Msg("Remote entity gone, books tombstoned")
	if n > 0 {
		r.journal.Info(ctx, fmt.Sprintf("Marked %d book(s) as deleted on the server (%s %s)", n, kind, id))
	}
	return nil
}

func (r *Reconciler) entityFailed(ctx context.Context, res *Result, kind, name string, err error) {
	res.Errors++
	metrics.SyncEntities.WithLabelValues(kind, "failed").Inc()
	r.log.Error().Err(err).Str("kind", kind).Str("name", name).Msg("Failed to sync entity")
	r.journal.Error(ctx, fmt.Sprintf("Failed to sync %s %s", kind, name), err)
}

// fatal errors end the pass instead of being skipped per entity. A 403 on
// one entity is not fatal; only a refused session is.
func fatal(ctx context.Context, err error) bool {
	return errors.Is(err, catalog.ErrUnauthorized) || ctx.Err() != nil
}

func live(all []entities.OfflineBook) []entities.OfflineBook {
	out := all[:0:0]
	for _, b := range all {
		if !b.Deleted && !b.RemoteUnavailable {
			out = append(out, b)
		}
	}
	return out
}
