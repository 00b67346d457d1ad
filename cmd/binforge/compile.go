package main

import (
	"fmt"
	"sync/atomic"

	"github.com/spf13/cobra"

	"binforge/internal/buildpipeline"
	"binforge/internal/compiler"
	"binforge/internal/config"
	"binforge/internal/observ"
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile every submission with every configured compiler",
	Long: `compile runs the normal batch and then the obfuscated batch. Each batch
discovers {user}/{year}/{file} sources under its source root and writes
{compiled}/{mode}/{compiler}/{user}/{year}/{stem}.{ext}. Per-file compiler
failures are reported but do not fail the command.`,
	Args: cobra.NoArgs,
	RunE: runCompile,
}

func init() {
	compileCmd.Flags().String("mode", "both", "batches to run (normal|obfuscated|both)")
	compileCmd.Flags().Int("jobs", 0, "concurrent compiler processes (0 = config or one per core)")
	compileCmd.Flags().Uint64("seed", 0, "seed for obfuscation choices (0 = random)")
	compileCmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
	compileCmd.Flags().StringSlice("compiler", nil, "only use these configured compilers")
}

// liveCounter tracks batch progress for heartbeat events.
type liveCounter struct {
	mode  atomic.Value
	done  atomic.Int64
	total atomic.Int64
}

func (c *liveCounter) OnEvent(ev buildpipeline.Event) {
	if ev.File == "" {
		c.mode.Store(ev.Mode.String())
		c.total.Store(int64(ev.Total))
		c.done.Store(0)
		return
	}
	if ev.State == buildpipeline.StateCompleted {
		c.done.Store(int64(ev.Done))
	}
}

func (c *liveCounter) status() string {
	mode, _ := c.mode.Load().(string)
	if mode == "" {
		return "starting"
	}
	return fmt.Sprintf("%s %d/%d", mode, c.done.Load(), c.total.Load())
}

func runCompile(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	modeFlag, _ := cmd.Flags().GetString("mode")
	modes, err := compiler.ParseModes(modeFlag)
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrConfiguration, err)
	}
	uiFlag, _ := cmd.Flags().GetString("ui")
	ui, err := readUIMode(uiFlag)
	if err != nil {
		return err
	}
	set, err := cfg.CompilerSet()
	if err != nil {
		return err
	}
	only, _ := cmd.Flags().GetStringSlice("compiler")
	if set, err = set.Subset(only); err != nil {
		return fmt.Errorf("%w: %v", config.ErrConfiguration, err)
	}

	jobs := cfg.Jobs
	if cmd.Flags().Changed("jobs") {
		jobs, _ = cmd.Flags().GetInt("jobs")
	}
	seed := cfg.Seed
	if cmd.Flags().Changed("seed") {
		seed, _ = cmd.Flags().GetUint64("seed")
	}
	quiet := boolFlag(cmd, "quiet")

	live := &liveCounter{}
	cleanup, err := setupLog(cmd, live.status)
	if err != nil {
		return err
	}
	defer cleanup()

	var timer *observ.Timer
	if boolFlag(cmd, "timings") {
		timer = observ.NewTimer()
	}
	endPhase := func(string) {}
	useTUI := shouldUseTUI(ui, quiet)
	out := cmd.OutOrStdout()

	req := &buildpipeline.BuildRequest{
		Modes: modes,
		Sources: map[compiler.Mode]string{
			compiler.ModeNormal:     cfg.Paths.NormalSrc,
			compiler.ModeObfuscated: cfg.Paths.ObfuscatedSrc,
		},
		SourceExt:  cfg.SourceExt,
		OutputRoot: cfg.Paths.Compiled,
		BinaryExt:  cfg.BinaryExt,
		Compilers:  set,
		Jobs:       jobs,
		Seed:       seed,
		Progress:   live,
		OnBatch: func(mode compiler.Mode) {
			endPhase("")
			endPhase = timer.Begin("compile " + mode.String())
			if !useTUI && !quiet {
				fmt.Fprintf(out, "compiling %s batch...\n", mode)
			}
		},
	}

	ctx := cmd.Context()
	var res buildpipeline.BuildResult
	if useTUI {
		res, err = runBuildWithUI(ctx, "binforge compile", req)
	} else {
		res, err = buildpipeline.Build(ctx, req)
	}
	endPhase("")

	if !quiet {
		printBuildSummary(out, res)
	}
	if timer != nil {
		fmt.Fprint(out, timer.Summary())
	}
	return err
}
