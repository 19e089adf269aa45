// Package cli implements the one-shot subcommands. Each command parses its
// own flags on top of the environment configuration.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mrlokans/offlinemirror/internal/config"
)

// Command is a subcommand run by main.
type Command interface {
	ParseFlags(args []string) error
	Run(ctx context.Context) error
}

// base carries what every command shares.
type base struct {
	cfg *config.Config
	out io.Writer
}

func newBase(cfg *config.Config, out io.Writer) base {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if out == nil {
		out = os.Stdout
	}
	return base{cfg: cfg, out: out}
}

// flagSet registers the flags common to all commands.
func (b *base) flagSet(name, description string, examples ...string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&b.cfg.Database.Path, "db", b.cfg.Database.Path, "Path to the mirror database")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s %s [options]\n\n", os.Args[0], name)
		fmt.Fprintf(os.Stderr, "%s\n\n", description)
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		if len(examples) > 0 {
			fmt.Fprintf(os.Stderr, "\nExamples:\n")
			for _, e := range examples {
				fmt.Fprintf(os.Stderr, "  %s %s\n", os.Args[0], e)
			}
		}
	}
	return fs
}

func (b *base) printf(format string, args ...any) {
	fmt.Fprintf(b.out, format, args...)
}
