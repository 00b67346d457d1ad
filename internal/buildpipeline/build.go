package buildpipeline

import (
	"context"
	"fmt"

	"binforge/internal/compiler"
	"binforge/internal/corpus"
	"binforge/internal/proc"
)

// BuildRequest configures a full run: one batch per mode, in order.
type BuildRequest struct {
	Modes      []compiler.Mode
	Sources    map[compiler.Mode]string // source root per mode
	SourceExt  string
	OutputRoot string
	BinaryExt  string
	Compilers  *compiler.Set
	Jobs       int
	Launcher   proc.Launcher
	Seed       uint64
	Progress   ProgressSink
	// OnBatch, if set, is called before each batch starts.
	OnBatch func(mode compiler.Mode)
}

// BuildResult collects the batch results in run order.
type BuildResult struct {
	Batches []BatchResult
}

// Total sums the batch totals.
func (r BuildResult) Total() Counts {
	var total Counts
	for _, b := range r.Batches {
		t := b.Summary.Total
		total.Attempted += t.Attempted
		total.Succeeded += t.Succeeded
		total.CompilerFailures += t.CompilerFailures
		total.ProcessErrors += t.ProcessErrors
		total.FilesystemErrors += t.FilesystemErrors
		total.Cancelled += t.Cancelled
	}
	return total
}

// Build runs the batches sequentially. Each batch gets its own, freshly
// sized gate. A setup error or cancellation stops the run.
func Build(ctx context.Context, req *BuildRequest) (BuildResult, error) {
	var result BuildResult
	if req == nil {
		return result, fmt.Errorf("missing build request")
	}
	modes := req.Modes
	if len(modes) == 0 {
		modes = []compiler.Mode{compiler.ModeNormal, compiler.ModeObfuscated}
	}
	layout := corpus.Layout{Root: req.OutputRoot, BinaryExt: req.BinaryExt}
	for _, mode := range modes {
		if req.OnBatch != nil {
			req.OnBatch(mode)
		}
		batch, err := RunBatch(ctx, &BatchRequest{
			Mode:       mode,
			SourceRoot: req.Sources[mode],
			SourceExt:  req.SourceExt,
			Layout:     layout,
			Compilers:  req.Compilers,
			Jobs:       req.Jobs,
			Launcher:   req.Launcher,
			Seed:       req.Seed,
			Progress:   req.Progress,
		})
		if batch.Run != "" {
			result.Batches = append(result.Batches, batch)
		}
		if err != nil {
			return result, err
		}
	}
	return result, nil
}
