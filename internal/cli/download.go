package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/mrlokans/offlinemirror/internal/config"
	"github.com/mrlokans/offlinemirror/internal/entrypoint"
	"github.com/mrlokans/offlinemirror/internal/events"
	"github.com/mrlokans/offlinemirror/internal/tasks"
)

// DownloadCommand mirrors one book in the foreground, printing progress.
type DownloadCommand struct {
	base
	BookID string
	Dir    string
}

func NewDownloadCommand(cfg *config.Config, out io.Writer) *DownloadCommand {
	return &DownloadCommand{base: newBase(cfg, out)}
}

func (cmd *DownloadCommand) ParseFlags(args []string) error {
	fs := cmd.flagSet("download", "Download a book from the remote catalog into the local mirror.",
		"download -book 0B4W1V3JQHZ5T",
		"download -book 0B4W1V3JQHZ5T -dir /mnt/comics",
	)
	fs.StringVar(&cmd.BookID, "book", "", "Remote book ID (required)")
	fs.StringVar(&cmd.Dir, "dir", "", "Download root, stored as the new default when set")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.BookID == "" {
		fs.Usage()
		return fmt.Errorf("book is required")
	}
	return nil
}

func (cmd *DownloadCommand) Run(ctx context.Context) error {
	entrypoint.InitLogging(cmd.cfg)

	app, err := entrypoint.Bootstrap(ctx, cmd.cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if !app.Online() {
		return ErrNoRemote
	}
	if cmd.Dir != "" {
		if err := app.Settings.SetDownloadDir(ctx, cmd.Dir); err != nil {
			return err
		}
	}
	stop := app.StartTasks(ctx)
	defer stop()

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stream, err := app.Bus.Subscribe(subCtx)
	if err != nil {
		return err
	}

	done := make(chan string, 1)
	go func() {
		var failure string
		for e := range stream {
			ev, ok := e.(events.DownloadEvent)
			if !ok || ev.DownloadBookID() != cmd.BookID {
				continue
			}
			switch ev := ev.(type) {
			case events.DownloadProgress:
				cmd.printProgress(ev)
			case events.DownloadCompleted:
				cmd.printf("\nDownloaded %s\n", ev.Book.Title())
			case events.DownloadError:
				failure = ev.Message()
			}
		}
		done <- failure
	}()

	outcome := app.Worker.Run(ctx, cmd.BookID)
	cancel()
	failure := <-done

	switch outcome {
	case tasks.OutcomeSuccess:
		return nil
	case tasks.OutcomeCancelled:
		return fmt.Errorf("download cancelled")
	default:
		if failure == "" {
			failure = "see the log journal for details"
		}
		return fmt.Errorf("download failed: %s", failure)
	}
}

func (cmd *DownloadCommand) printProgress(p events.DownloadProgress) {
	if p.TotalKnown() {
		cmd.printf("\r%s: %d / %d bytes", p.Book.Title(), p.CompletedBytes, p.TotalBytes)
		return
	}
	cmd.printf("\r%s: %d bytes", p.Book.Title(), p.CompletedBytes)
}
