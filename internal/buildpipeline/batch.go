// Package buildpipeline compiles a corpus of submissions with every configured
// compiler under a shared concurrency cap.
package buildpipeline

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"binforge/internal/buildlog"
	"binforge/internal/compiler"
	"binforge/internal/config"
	"binforge/internal/corpus"
	"binforge/internal/limiter"
	"binforge/internal/proc"
)

// ErrOutputCollision reports two sources that would write the same binary,
// e.g. a.cpp and a.CPP in one user/year directory.
var ErrOutputCollision = errors.New("output path collision")

// BatchRequest configures one batch: one source root, one mode, all compilers.
type BatchRequest struct {
	Mode       compiler.Mode
	SourceRoot string
	SourceExt  string
	Layout     corpus.Layout
	Compilers  *compiler.Set
	// Jobs sizes a fresh gate when Gate is nil; < 1 means host logical cores.
	Jobs       int
	Gate       *limiter.Gate
	Launcher   proc.Launcher
	// Seed != 0 makes every task's draws reproducible.
	Seed       uint64
	Progress   ProgressSink
}

// BatchResult is what a finished batch reports.
type BatchResult struct {
	Run      string
	Mode     compiler.Mode
	Summary  Summary
	Skipped  []corpus.Skipped
	Outcomes []Outcome
	Capacity int
	Peak     int
	Elapsed  time.Duration
}

// Plan discovers the batch's sources and expands them into tasks, one per
// (unit, compiler). Units with a malformed path or a colliding output path
// contribute no tasks and are returned as skipped.
func Plan(req *BatchRequest) ([]Task, []corpus.Skipped, error) {
	if req == nil {
		return nil, nil, fmt.Errorf("missing batch request")
	}
	if req.Compilers.Len() == 0 {
		return nil, nil, fmt.Errorf("%w: no compilers configured", config.ErrConfiguration)
	}
	info, err := os.Stat(req.SourceRoot)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: source root %q: %v", config.ErrConfiguration, req.SourceRoot, err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("%w: source root %q is not a directory", config.ErrConfiguration, req.SourceRoot)
	}

	units, skipped, err := corpus.Discover(req.SourceRoot, req.SourceExt)
	if err != nil {
		return nil, nil, fmt.Errorf("discover sources under %s: %w", req.SourceRoot, err)
	}

	names := req.Compilers.Names()
	tasks := make([]Task, 0, len(units)*len(names))
	seen := make(map[string]string, len(units))
	for _, u := range units {
		if prev, dup := seen[u.Key()]; dup {
			skipped = append(skipped, corpus.Skipped{
				Path: u.Path,
				Err:  fmt.Errorf("%w: %s and %s", ErrOutputCollision, prev, u.Rel),
			})
			continue
		}
		seen[u.Key()] = u.Rel
		for _, name := range names {
			tasks = append(tasks, Task{Unit: u, Compiler: name, Mode: req.Mode})
		}
	}
	return tasks, skipped, nil
}

// RunBatch runs every task of the batch to completion. Per-task failures are
// data in the result; the returned error is reserved for setup problems
// (wrapping config.ErrConfiguration) and for ctx cancellation.
//
// A fixed pool of workers, one per gate slot, pulls tasks from a queue.
// Each worker resolves the output path, then takes a slot for the duration
// of the compiler process.
func RunBatch(ctx context.Context, req *BatchRequest) (BatchResult, error) {
	tasks, skipped, err := Plan(req)
	if err != nil {
		return BatchResult{}, err
	}

	run := uuid.NewString()
	log := buildlog.FromContext(ctx)
	result := BatchResult{
		Run:     run,
		Mode:    req.Mode,
		Skipped: skipped,
		Summary: newSummary(req.Mode, req.Compilers.Names()),
	}
	result.Summary.Skipped = len(skipped)
	for _, s := range skipped {
		buildlog.Emit(log, buildlog.KindSkipped, run, s.Path, s.Err.Error(), "mode", req.Mode.String())
	}

	gate := req.Gate
	if gate == nil {
		gate = limiter.New(req.Jobs)
	}
	result.Capacity = gate.Capacity()
	launcher := req.Launcher
	if launcher == nil {
		launcher = proc.ExecLauncher{}
	}

	buildlog.Emit(log, buildlog.KindBatchBegin, run, req.SourceRoot, "",
		"mode", req.Mode.String(),
		"tasks", fmt.Sprint(len(tasks)),
		"jobs", fmt.Sprint(gate.Capacity()))
	emit(req.Progress, Event{Run: run, Mode: req.Mode, State: StateQueued, Status: StatusQueued, Total: len(tasks)})

	start := time.Now()
	prog := &progress{run: run, total: len(tasks), sink: req.Progress}
	outcomes := make([]Outcome, len(tasks))

	type job struct {
		idx  int
		task Task
	}
	queue := make(chan job)

	workers := gate.Capacity()
	if workers > len(tasks) {
		workers = len(tasks)
	}

	var g errgroup.Group
	g.Go(func() error {
		defer close(queue)
		for i, t := range tasks {
			queue <- job{idx: i, task: t}
		}
		return nil
	})
	for i := 0; i < workers; i++ {
		w := &Worker{
			ID:        i,
			Gate:      gate,
			Launcher:  launcher,
			Compilers: req.Compilers,
			Layout:    req.Layout,
			Rand:      randFor(req.Seed),
			Log:       log,
			Sink:      req.Progress,
			progress:  prog,
		}
		g.Go(func() error {
			for j := range queue {
				// Indices are unique per task, so no lock is needed.
				outcomes[j.idx] = w.Execute(ctx, j.task)
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range outcomes {
		result.Summary.Add(o)
	}
	result.Outcomes = outcomes
	result.Peak = gate.Peak()
	result.Elapsed = time.Since(start)

	buildlog.Emit(log, buildlog.KindBatchEnd, run, req.SourceRoot, "",
		"mode", req.Mode.String(),
		"attempted", fmt.Sprint(result.Summary.Total.Attempted),
		"succeeded", fmt.Sprint(result.Summary.Total.Succeeded),
		"failed", fmt.Sprint(result.Summary.Total.Failed()),
		"skipped", fmt.Sprint(result.Summary.Skipped))

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("batch %s interrupted: %w", req.Mode, err)
	}
	return result, nil
}

// randFor returns the per-task random source factory. With a seed, each task
// draws from a stream keyed by its identity, so results do not depend on
// which worker picked it up.
func randFor(seed uint64) func(Task) compiler.Rand {
	if seed == 0 {
		return nil
	}
	return func(t Task) compiler.Rand {
		h := fnv.New64a()
		_, _ = h.Write([]byte(t.Mode.String() + "/" + t.Compiler + "/" + t.Unit.Rel))
		return compiler.NewSeededRand(seed, h.Sum64())
	}
}
