package buildpipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"binforge/internal/buildlog"
	"binforge/internal/compiler"
	"binforge/internal/config"
	"binforge/internal/corpus"
	"binforge/internal/limiter"
	"binforge/internal/proc"
)

// progress counts terminal tasks; the counter is the only state workers share.
type progress struct {
	run   string
	total int
	done  atomic.Int64
	sink  ProgressSink
}

func (p *progress) step(o Outcome) {
	n := int(p.done.Add(1))
	status := StatusDone
	if !o.Kind.OK() {
		status = StatusError
	}
	emit(p.sink, Event{
		Run:      p.run,
		File:     o.Task.Unit.Rel,
		Compiler: o.Task.Compiler,
		Mode:     o.Task.Mode,
		State:    StateCompleted,
		Status:   status,
		Outcome:  o.Kind,
		Err:      o.Err,
		Elapsed:  o.Elapsed,
		Done:     n,
		Total:    p.total,
	})
}

// Worker compiles one task at a time. Workers of a batch share the gate,
// the launcher and the progress counter; each has its own random source.
type Worker struct {
	ID        int
	Gate      *limiter.Gate
	Launcher  proc.Launcher
	Compilers *compiler.Set
	Layout    corpus.Layout
	Rand      func(Task) compiler.Rand
	Log       buildlog.Log
	Sink      ProgressSink

	progress *progress
}

// Execute drives task to a terminal outcome. It never panics and never
// returns an error: every failure is folded into the Outcome. The gate slot
// (if taken) is released and progress advances exactly once, whatever happens.
func (w *Worker) Execute(ctx context.Context, task Task) (out Outcome) {
	out = Outcome{Task: task}
	start := time.Now()
	admitted := false

	defer func() {
		if r := recover(); r != nil {
			out.Kind = OutcomeProcessError
			out.Err = fmt.Errorf("compiler launch panicked: %v", r)
		}
		if admitted {
			w.Gate.Release()
		}
		out.Elapsed = time.Since(start)
		w.record(out)
	}()

	if err := ctx.Err(); err != nil {
		out.Kind = OutcomeCancelled
		out.Err = err
		return out
	}

	// Plan only emits tasks for configured compilers; anything else is a
	// setup mistake in the caller, reported without taking a slot.
	if _, err := w.Compilers.Lookup(task.Compiler); err != nil {
		out.Kind = OutcomeProcessError
		out.Err = fmt.Errorf("%w: %w", config.ErrConfiguration, err)
		return out
	}

	output, err := w.Layout.Resolve(task.Unit, task.Mode, task.Compiler)
	if err != nil {
		out.Kind = OutcomeFilesystemError
		out.Err = err
		return out
	}
	out.Output = output

	// Queued -> Admitted
	if err := w.Gate.Acquire(ctx); err != nil {
		out.Kind = OutcomeCancelled
		out.Err = err
		return out
	}
	admitted = true
	w.state(task, StateAdmitted)

	inv, err := w.Compilers.Synthesize(task.Compiler, task.Unit.Path, output, task.Mode, w.random(task))
	if err != nil {
		out.Kind = OutcomeProcessError
		out.Err = err
		return out
	}
	out.Invocation = inv

	// Admitted -> Invoking
	w.state(task, StateInvoking)
	w.logAttempt(task, inv)
	res, err := w.Launcher.Launch(ctx, inv.Args)
	switch {
	case err != nil && ctx.Err() != nil:
		out.Kind = OutcomeCancelled
		out.Err = err
	case err != nil:
		out.Kind = OutcomeProcessError
		out.Err = err
	case res.ExitCode != 0:
		out.Kind = OutcomeCompilerFailure
		out.ExitCode = res.ExitCode
		out.Stderr = res.Diagnostic()
		if out.Stderr == "" {
			out.Stderr = "Unknown error"
		}
	default:
		out.Kind = OutcomeSuccess
	}
	return out
}

func (w *Worker) random(task Task) compiler.Rand {
	if w.Rand == nil {
		return compiler.GlobalRand
	}
	return w.Rand(task)
}

func (w *Worker) state(task Task, s State) {
	total := 0
	if w.progress != nil {
		total = w.progress.total
	}
	emit(w.Sink, Event{
		Run:      w.runID(),
		File:     task.Unit.Rel,
		Compiler: task.Compiler,
		Mode:     task.Mode,
		State:    s,
		Status:   StatusWorking,
		Total:    total,
	})
}

func (w *Worker) runID() string {
	if w.progress == nil {
		return ""
	}
	return w.progress.run
}

func (w *Worker) logAttempt(task Task, inv compiler.Invocation) {
	kv := []string{
		"compiler", task.Compiler,
		"mode", task.Mode.String(),
		"worker", strconv.Itoa(w.ID),
	}
	if inv.Fallback {
		kv = append(kv, "fallback", "true")
	}
	buildlog.Emit(w.Log, buildlog.KindAttempt, w.runID(), task.Unit.Rel, strings.Join(inv.Args, " "), kv...)
}

func (w *Worker) record(out Outcome) {
	run := w.runID()
	name := out.Task.Unit.Rel
	base := []string{"compiler", out.Task.Compiler, "mode", out.Task.Mode.String()}
	switch out.Kind {
	case OutcomeSuccess:
		buildlog.Emit(w.Log, buildlog.KindSuccess, run, name, "", append(base, "output", out.Output)...)
	case OutcomeCompilerFailure:
		buildlog.Emit(w.Log, buildlog.KindCompilerFailure, run, name, out.Stderr,
			append(base, "exit", strconv.Itoa(out.ExitCode))...)
	default:
		detail := ""
		if out.Err != nil {
			detail = out.Err.Error()
		}
		if errors.Is(out.Err, context.Canceled) {
			detail = "cancelled before completion"
		}
		buildlog.Emit(w.Log, buildlog.KindProcessError, run, name, detail, append(base, "outcome", out.Kind.String())...)
	}
	if w.progress != nil {
		w.progress.step(out)
	}
}
