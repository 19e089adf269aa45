package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mrlokans/offlinemirror/internal/config"
	"github.com/mrlokans/offlinemirror/internal/entities"
	"github.com/mrlokans/offlinemirror/internal/entrypoint"
)

// LogsCommand prints or clears the log journal.
type LogsCommand struct {
	base
	Type  string
	Limit int
	Clear bool
}

func NewLogsCommand(cfg *config.Config, out io.Writer) *LogsCommand {
	return &LogsCommand{base: newBase(cfg, out)}
}

func (cmd *LogsCommand) ParseFlags(args []string) error {
	fs := cmd.flagSet("logs", "Show the most recent log journal entries.",
		"logs",
		"logs -type error -limit 20",
		"logs -clear",
	)
	fs.StringVar(&cmd.Type, "type", "", "Only show entries of this type (info, error)")
	fs.IntVar(&cmd.Limit, "limit", 50, "Maximum number of entries")
	fs.BoolVar(&cmd.Clear, "clear", false, "Delete every entry instead of listing")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := cmd.logType(); err != nil {
		return err
	}
	if cmd.Limit < 1 {
		return fmt.Errorf("limit must be positive")
	}
	return nil
}

func (cmd *LogsCommand) logType() (entities.LogType, error) {
	switch t := entities.LogType(strings.ToUpper(cmd.Type)); t {
	case "", entities.LogTypeInfo, entities.LogTypeError:
		return t, nil
	default:
		return "", fmt.Errorf("unknown log type %q", cmd.Type)
	}
}

func (cmd *LogsCommand) Run(ctx context.Context) error {
	entrypoint.InitLogging(cmd.cfg)

	app, err := entrypoint.Bootstrap(ctx, cmd.cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if cmd.Clear {
		if err := app.Journal.Clear(ctx); err != nil {
			return err
		}
		cmd.printf("Log journal cleared\n")
		return nil
	}

	logType, err := cmd.logType()
	if err != nil {
		return err
	}
	entries, total, err := app.Journal.List(ctx, logType, cmd.Limit, 0)
	if err != nil {
		return err
	}
	for _, e := range entries {
		cmd.printf("%s  %-5s  %s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Type, e.Message)
	}
	cmd.printf("%d of %d entries\n", len(entries), total)
	return nil
}
