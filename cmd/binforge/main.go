package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"binforge/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "binforge",
	Short: "Build a binary corpus from source submissions",
	Long: `binforge ingests programming-contest submissions, compiles every source
with each configured compiler (plain and with randomised obfuscation options),
and packs the resulting executables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(packCmd)
	rootCmd.AddCommand(dedupCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(versionCmd)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "configuration file (default ./binforge.toml)")
	flags.String("log", "binforge.log", "build log file, appended to (\"-\" for stderr)")
	flags.String("log-level", "warn", "build log level (off|error|warn|info|debug)")
	flags.String("log-format", "auto", "build log format (auto|text|ndjson)")
	flags.Duration("log-heartbeat", 0, "emit a heartbeat log event at this interval (0 disables)")
	flags.Bool("quiet", false, "suppress non-essential output")
	flags.Bool("timings", false, "show per-phase timings")
}

// main runs the root command. Setup errors exit 1; an interrupted run exits 130.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "binforge: %v\n", err)
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
