package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mrlokans/offlinemirror/internal/config"
	"github.com/mrlokans/offlinemirror/internal/database/books"
	"github.com/mrlokans/offlinemirror/internal/database/series"
	syncdb "github.com/mrlokans/offlinemirror/internal/database/sync"
	http_controllers "github.com/mrlokans/offlinemirror/internal/http"
	"github.com/mrlokans/offlinemirror/internal/logging"
	"github.com/mrlokans/offlinemirror/internal/scheduler"
	"github.com/mrlokans/offlinemirror/internal/tasks"
)

// InitLogging applies the logging section of cfg.
func InitLogging(cfg *config.Config) {
	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Timestamp: true,
		Output:    os.Stderr,
	})
}

// Run starts the engine and blocks until SIGINT or SIGTERM.
func Run(cfg *config.Config, version string) error {
	InitLogging(cfg)
	logging.Info().Str("version", version).Msg("Starting offline mirror")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := Bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logging.Err(err).Msg("Failed to close resources")
		}
	}()

	tree := NewTree(TreeConfig{ShutdownTimeout: app.shutdownTimeout()})
	tree.AddBackground(tasks.NewService(app.Tasks, app.shutdownTimeout()))

	routes := http_controllers.RouterConfig{
		Database:   app.DB,
		Version:    version,
		Offline:    app.Settings,
		Series:     series.NewRepository(app.DB.DB),
		Books:      books.NewRepository(app.DB.DB),
		Actions:    app.Actions,
		ActiveUser: app.Settings,
		Journal:    app.Journal,
	}

	if app.Online() {
		tree.AddBackground(app.Resolver)
		tree.AddBackground(app.Syncer)

		if cfg.Sync.Enabled {
			sched := scheduler.NewSyncScheduler(app.Syncer, cfg.Sync.Schedule)
			sched.OnMaintenance(app.ScheduleMaintenance)
			tree.AddBackground(sched)
		}

		routes.Remote = app.Remote
		routes.Downloads = app.Downloads
		routes.Events = app.Bus
		routes.Sync = http_controllers.NewSyncController(ctx, app.Syncer, syncdb.NewRepository(app.DB.DB), app.Settings)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: http_controllers.NewRouter(routes),
	}
	tree.AddAPI(http_controllers.NewServerService(srv, app.shutdownTimeout()))

	logging.Info().Str("addr", srv.Addr).Bool("online", app.Online()).Msg("Serving")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logging.Info().Msg("Offline mirror stopped")
	return nil
}
