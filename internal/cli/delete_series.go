package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/mrlokans/offlinemirror/internal/config"
	"github.com/mrlokans/offlinemirror/internal/database/series"
	"github.com/mrlokans/offlinemirror/internal/entrypoint"
)

// DeleteSeriesCommand removes a mirrored series with its books and files.
// It works without a remote server.
type DeleteSeriesCommand struct {
	base
	SeriesID string
}

func NewDeleteSeriesCommand(cfg *config.Config, out io.Writer) *DeleteSeriesCommand {
	return &DeleteSeriesCommand{base: newBase(cfg, out)}
}

func (cmd *DeleteSeriesCommand) ParseFlags(args []string) error {
	fs := cmd.flagSet("delete-series", "Delete a series from the local mirror, including downloaded files.",
		"delete-series -series 0B4W1V3JQHZ5T",
	)
	fs.StringVar(&cmd.SeriesID, "series", "", "Series ID (required)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.SeriesID == "" {
		fs.Usage()
		return fmt.Errorf("series is required")
	}
	return nil
}

func (cmd *DeleteSeriesCommand) Run(ctx context.Context) error {
	entrypoint.InitLogging(cmd.cfg)

	app, err := entrypoint.Bootstrap(ctx, cmd.cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	s, err := series.NewRepository(app.DB.DB).Find(ctx, cmd.SeriesID)
	if err != nil {
		return err
	}
	if s == nil {
		return fmt.Errorf("series %s is not mirrored", cmd.SeriesID)
	}

	stop := app.StartTasks(ctx)
	defer stop()

	if err := app.Actions.SeriesDelete(ctx, cmd.SeriesID); err != nil {
		return err
	}
	cmd.printf("Deleted series %s (%s)\n", s.Name, s.ID)
	return nil
}
