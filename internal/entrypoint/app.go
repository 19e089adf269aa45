package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mrlokans/offlinemirror/internal/actions"
	"github.com/mrlokans/offlinemirror/internal/catalog"
	"github.com/mrlokans/offlinemirror/internal/clock"
	"github.com/mrlokans/offlinemirror/internal/config"
	"github.com/mrlokans/offlinemirror/internal/database"
	"github.com/mrlokans/offlinemirror/internal/database/downloadjobs"
	journaldb "github.com/mrlokans/offlinemirror/internal/database/journal"
	"github.com/mrlokans/offlinemirror/internal/database/settings"
	"github.com/mrlokans/offlinemirror/internal/download"
	"github.com/mrlokans/offlinemirror/internal/events"
	"github.com/mrlokans/offlinemirror/internal/journal"
	"github.com/mrlokans/offlinemirror/internal/logging"
	"github.com/mrlokans/offlinemirror/internal/settingsstore"
	"github.com/mrlokans/offlinemirror/internal/state"
	"github.com/mrlokans/offlinemirror/internal/syncer"
	"github.com/mrlokans/offlinemirror/internal/tasks"
)

const defaultShutdownTimeout = 10 * time.Second

// App holds the wired engine. Online components are nil when no remote
// server is configured.
type App struct {
	Config   *config.Config
	DB       *database.Database
	Settings *settingsstore.SyncSettings
	Journal  *journal.Service
	Bus      *events.Bus
	Actions  *actions.Actions
	Tasks    *tasks.Client
	Output   *download.FilesystemOutput

	Remote    *catalog.BreakerClient
	Worker    *tasks.BookWorker
	Downloads *tasks.DownloadManager
	Identity  *state.Cell[*catalog.User]
	Resolver  *syncer.IdentityResolver
	Syncer    *syncer.Manager
}

// Online reports whether a remote catalog is wired.
func (a *App) Online() bool {
	return a.Remote != nil
}

// Bootstrap opens the databases and wires every component. The caller owns
// the returned App and must Close it.
func Bootstrap(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	app := &App{Config: cfg, DB: db, Bus: events.NewBus(), Output: download.NewFilesystemOutput()}

	if err := app.wire(ctx); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) wire(ctx context.Context) error {
	cfg := a.Config
	c := clock.New()

	s, err := settingsstore.Load(ctx, settings.NewRepository(a.DB.DB))
	if err != nil {
		return fmt.Errorf("failed to load sync settings: %w", err)
	}
	a.Settings = s
	a.Journal = journal.NewService(journaldb.NewRepository(a.DB.DB), c)

	a.Tasks, err = tasks.NewClient(cfg.Database.Path, tasks.Config{
		Workers:           cfg.Tasks.Workers,
		MaxRetries:        cfg.Tasks.MaxRetries,
		RetryDelay:        cfg.Tasks.RetryDelay,
		TaskTimeout:       cfg.Tasks.TaskTimeout,
		ReleaseAfter:      cfg.Tasks.ReleaseAfter,
		CleanupInterval:   cfg.Tasks.CleanupInterval,
		RetentionDuration: cfg.Tasks.RetentionDuration,
	})
	if err != nil {
		return fmt.Errorf("failed to create task queue: %w", err)
	}

	a.Actions = actions.New(a.DB.DB, a.Bus, tasks.NewBackliteScheduler(a.Tasks), c)
	a.Tasks.Register(
		tasks.NewAggregateSeriesQueue(a.Actions),
		tasks.NewDeleteBookFilesQueue(a.Output),
		tasks.NewCleanupJournalQueue(a.Journal),
	)

	if cfg.Offline() {
		logging.Warn().Msg("No remote server configured, serving the local mirror only")
		return nil
	}

	client, err := catalog.NewClient(catalog.Config{
		BaseURL:   cfg.Remote.URL,
		Username:  cfg.Remote.Username,
		Password:  cfg.Remote.Password,
		APIKey:    cfg.Remote.APIKey,
		Timeout:   cfg.Remote.Timeout,
		RateLimit: cfg.Remote.RateLimit,
		RateBurst: cfg.Remote.RateBurst,
	})
	if err != nil {
		return fmt.Errorf("failed to create catalog client: %w", err)
	}
	a.Remote = catalog.NewBreakerClient(client, catalog.DefaultBreakerConfig())

	root := func(ctx context.Context) string {
		return a.Settings.GetDownloadDir(ctx, cfg.Download.Dir)
	}
	downloader := download.NewService(a.Remote, a.Actions, a.Output, root, c)
	a.Worker = tasks.NewBookWorker(downloader, a.Bus, a.Journal, tasks.WorkerConfig{
		Concurrency:      cfg.Download.Concurrency,
		ProgressInterval: cfg.Download.ProgressInterval,
	})
	a.Downloads = tasks.NewDownloadManager(a.Tasks, downloadjobs.NewRepository(a.DB.DB), a.Worker)
	a.Tasks.Register(a.Downloads.Queue())

	a.Identity = state.NewCell[*catalog.User](nil)
	reconciler := syncer.NewReconciler(a.DB.DB, a.Remote, a.Actions, a.Settings, a.Journal, c, syncer.Config{
		MinInterval: cfg.Sync.MinInterval,
	})
	a.Syncer = syncer.NewManager(reconciler, a.Actions, a.Remote, a.Identity)
	a.Resolver = syncer.NewIdentityResolver(a.Remote, a.Settings, a.Identity, syncer.DefaultIdentityRetry)
	return nil
}

// ResolveIdentity asks the catalog for the configured user and publishes
// it, for one-shot commands that run without the resolver loop.
func (a *App) ResolveIdentity(ctx context.Context) (*catalog.User, error) {
	if !a.Online() {
		return nil, syncer.ErrOffline
	}
	user, err := a.Remote.GetMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve catalog user: %w", err)
	}
	if err := a.Settings.SetActiveUserID(ctx, user.ID); err != nil {
		return nil, err
	}
	a.Identity.Set(user)
	return user, nil
}

// ScheduleMaintenance enqueues the journal cleanup.
func (a *App) ScheduleMaintenance(ctx context.Context) error {
	_, err := a.Tasks.Add(tasks.CleanupJournalTask{Retention: a.Config.Logging.JournalRetention}).Ctx(ctx).Save()
	return err
}

// StartTasks runs the task queue for a one-shot command. The returned
// func drains it within the shutdown timeout.
func (a *App) StartTasks(ctx context.Context) func() {
	a.Tasks.Start(ctx)
	return func() {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.shutdownTimeout())
		defer cancel()
		if !a.Tasks.Stop(stopCtx) {
			logging.Warn().Msg("Task queue did not drain before exit")
		}
	}
}

func (a *App) shutdownTimeout() time.Duration {
	if a.Config.Global.ShutdownTimeoutInSeconds <= 0 {
		return defaultShutdownTimeout
	}
	return time.Duration(a.Config.Global.ShutdownTimeoutInSeconds) * time.Second
}

// Close releases the bus and both databases.
func (a *App) Close() error {
	var errs []error
	if a.Bus != nil {
		errs = append(errs, a.Bus.Close())
	}
	if a.Tasks != nil {
		errs = append(errs, a.Tasks.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}
