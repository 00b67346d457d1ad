package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"binforge/internal/observ"
	"binforge/internal/pack"
)

var packCmd = &cobra.Command{
	Use:   "pack",
	Short: "Pack compiled executables (UPX by default)",
	Long: `pack walks {input}/{compiler}/{user}/{year}/*.{ext} and writes
{packed}/{compiler}/{user}/{year}/{stem}-packed.{ext}. Binaries the packer
rejects are reported and skipped.`,
	Args: cobra.NoArgs,
	RunE: runPack,
}

func init() {
	packCmd.Flags().String("input", "", "tree to pack (default [packer].input)")
	packCmd.Flags().Bool("parallel", false, "run every packer process at once")
}

func runPack(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cleanup, err := setupLog(cmd, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	packer, err := pack.NewPacker(cfg.Packer.Command)
	if err != nil {
		return err
	}
	input := cfg.Packer.Input
	if v, _ := cmd.Flags().GetString("input"); v != "" {
		input = v
	}
	parallel := cfg.Packer.Parallel
	if cmd.Flags().Changed("parallel") {
		parallel, _ = cmd.Flags().GetBool("parallel")
	}

	var timer *observ.Timer
	if boolFlag(cmd, "timings") {
		timer = observ.NewTimer()
	}
	end := timer.Begin("pack")
	report, err := pack.Run(cmd.Context(), &pack.Request{
		Input:    input,
		Output:   cfg.Paths.Packed,
		Ext:      cfg.BinaryExt,
		Suffix:   cfg.Packer.Suffix,
		Packer:   packer,
		Parallel: parallel,
	})
	end(fmt.Sprintf("%d binaries", len(report.Results)))
	if !boolFlag(cmd, "quiet") {
		out := cmd.OutOrStdout()
		for _, r := range report.Results {
			if r.Status != pack.StatusPacked {
				detail := r.Stderr
				if r.Err != nil {
					detail = r.Err.Error()
				}
				fmt.Fprintf(out, "%s %s: %s\n", failColor.Sprint(r.Status), r.Job.Input, detail)
			}
		}
		fmt.Fprintf(out, "%s %s, %s, %d errors, %d skipped\n",
			headColor.Sprint("pack:"),
			okColor.Sprintf("%d packed", report.Packed),
			color.New(color.FgRed).Sprintf("%d failed", report.Failed),
			report.Errors, len(report.Skipped))
	}
	if timer != nil {
		fmt.Fprint(cmd.OutOrStdout(), timer.Summary())
	}
	return err
}
