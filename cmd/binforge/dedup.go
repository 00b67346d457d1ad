package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"binforge/internal/dedup"
)

var dedupCmd = &cobra.Command{
	Use:   "dedup [root]",
	Short: "Remove byte-identical submissions",
	Long: `dedup hashes every source under root (default [paths].submissions) and
removes later copies of content already recorded in the dedup store.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDedup,
}

func init() {
	dedupCmd.Flags().Bool("dry-run", false, "report duplicates without deleting them")
}

func runDedup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cleanup, err := setupLog(cmd, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	root := cfg.Paths.Submissions
	if len(args) == 1 {
		root = args[0]
	}
	ctx := cmd.Context()
	store, err := dedup.Open(ctx, cfg.Dedup)
	if err != nil {
		return err
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	checker := &dedup.Checker{Store: store, Ext: cfg.SourceExt, DryRun: dryRun}
	report, runErr := checker.Run(ctx, root)
	if err := store.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("closing dedup store: %w", err)
	}

	if !boolFlag(cmd, "quiet") {
		out := cmd.OutOrStdout()
		for _, d := range report.Duplicates {
			verb := "would remove"
			if d.Removed {
				verb = "removed"
			}
			fmt.Fprintf(out, "%s %s (duplicate of %s/%s)\n", warnColor.Sprint(verb), d.Path, d.Original.User, d.Original.File)
		}
		fmt.Fprintf(out, "%s %d scanned, %s, %d duplicates, %d skipped\n",
			headColor.Sprint("dedup:"), report.Scanned,
			okColor.Sprintf("%d unique", report.Unique),
			len(report.Duplicates), len(report.Skipped))
	}
	return runErr
}
