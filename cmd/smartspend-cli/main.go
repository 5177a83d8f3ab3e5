package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"smartspend/internal/cli"
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	var opts sessionOptions
	cmd := &cobra.Command{
		Use:   "smartspend-cli",
		Short: "Inspect and back up smartspend data from the terminal",
		Long: `smartspend-cli works directly on the configured persistence backend.

It reads the same environment as the API server (.env is loaded when present).
Point it at the server's SQLite database with --db or SQLITE_DB_PATH.`,
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			cli.LoadEnvFile()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Owner, "owner", "", "owner whose data is used (default: $OWNER_ID)")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "SQLite database path; selects the sqlite backend")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	cmd.AddCommand(exportCmd(&opts))
	cmd.AddCommand(importCmd(&opts))
	cmd.AddCommand(reportCmd(&opts))
	cmd.AddCommand(loansCmd(&opts))
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}
}
