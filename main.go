package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mrlokans/offlinemirror/internal/cli"
	"github.com/mrlokans/offlinemirror/internal/config"
	"github.com/mrlokans/offlinemirror/internal/entrypoint"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	// If no arguments or "serve" command, run the mirror
	if len(os.Args) < 2 || os.Args[1] == "serve" {
		if err := entrypoint.Run(config.NewConfig(), Version); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	command := os.Args[1]
	args := os.Args[2:]

	var cmd cli.Command
	switch command {
	case "sync":
		cmd = cli.NewSyncCommand(nil, nil)
	case "download":
		cmd = cli.NewDownloadCommand(nil, nil)
	case "delete-series":
		cmd = cli.NewDeleteSeriesCommand(nil, nil)
	case "logs":
		cmd = cli.NewLogsCommand(nil, nil)

	case "version":
		fmt.Printf("offline-mirror %s (%s)\n", Version, Commit)
		return

	case "-h", "--help", "help":
		printUsage()
		return

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err := cmd.ParseFlags(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := cmd.Run(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve          Run the mirror with its HTTP API (default if no command given)\n")
	fmt.Fprintf(os.Stderr, "  sync           Reconcile the mirror with the remote catalog once\n")
	fmt.Fprintf(os.Stderr, "  download       Download one book into the mirror\n")
	fmt.Fprintf(os.Stderr, "  delete-series  Delete a mirrored series and its files\n")
	fmt.Fprintf(os.Stderr, "  logs           Show or clear the log journal\n")
	fmt.Fprintf(os.Stderr, "  version        Print the version\n")
	fmt.Fprintf(os.Stderr, "\nUse '%s <command> -h' for help on a specific command.\n", os.Args[0])
}
