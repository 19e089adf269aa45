package cli

import (
	"context"
	"errors"
	"io"

	"github.com/mrlokans/offlinemirror/internal/config"
	"github.com/mrlokans/offlinemirror/internal/entrypoint"
)

var ErrNoRemote = errors.New("no remote server configured, set REMOTE_URL")

// SyncCommand runs a single reconciliation pass against the catalog.
type SyncCommand struct {
	base
	Force bool
}

func NewSyncCommand(cfg *config.Config, out io.Writer) *SyncCommand {
	return &SyncCommand{base: newBase(cfg, out)}
}

func (cmd *SyncCommand) ParseFlags(args []string) error {
	fs := cmd.flagSet("sync", "Reconcile the local mirror with the remote catalog once.",
		"sync",
		"sync -force",
	)
	fs.BoolVar(&cmd.Force, "force", false, "Ignore the minimum interval between passes")
	return fs.Parse(args)
}

func (cmd *SyncCommand) Run(ctx context.Context) error {
	entrypoint.InitLogging(cmd.cfg)

	app, err := entrypoint.Bootstrap(ctx, cmd.cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if !app.Online() {
		return ErrNoRemote
	}
	stop := app.StartTasks(ctx)
	defer stop()

	user, err := app.ResolveIdentity(ctx)
	if err != nil {
		return err
	}

	res, err := app.Syncer.SyncNow(ctx, cmd.Force)
	if err != nil {
		return err
	}
	if res.Skipped {
		cmd.printf("Sync skipped: %s\n", res.Reason)
		return nil
	}

	cmd.printf("Synced %s for %s\n", app.Remote.BaseURL(), user.Email)
	cmd.printf("  Libraries:  %d\n", res.Libraries)
	cmd.printf("  Series:     %d\n", res.Series)
	cmd.printf("  Books:      %d\n", res.Books)
	cmd.printf("  Tombstoned: %d\n", res.Tombstoned)
	if status := app.Syncer.LastStatus(); status != nil {
		cmd.printf("  Progress pushed: %d\n", status.Pushed)
	}
	if res.Errors > 0 {
		cmd.printf("  Errors:     %d (see the log journal)\n", res.Errors)
	}
	return nil
}
