package buildpipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"binforge/internal/compiler"
	"binforge/internal/config"
	"binforge/internal/corpus"
	"binforge/internal/limiter"
	"binforge/internal/proc"
)

func testUnit(t *testing.T) corpus.SourceUnit {
	t.Helper()
	root := t.TempDir()
	writeSource(t, root, "alice/2019/a.cpp")
	u, err := corpus.Decompose(root, filepath.Join(root, "alice", "2019", "a.cpp"))
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}
	return u
}

func TestWorkerStateSequence(t *testing.T) {
	var (
		mu     sync.Mutex
		states []State
	)
	sink := FuncSink(func(e Event) {
		mu.Lock()
		states = append(states, e.State)
		mu.Unlock()
	})
	w := &Worker{
		Gate:      limiter.New(1),
		Launcher:  touchLauncher(),
		Compilers: testCompilers(t),
		Layout:    corpus.Layout{Root: t.TempDir()},
		Sink:      sink,
		progress:  &progress{total: 1, sink: sink},
	}
	out := w.Execute(context.Background(), Task{Unit: testUnit(t), Compiler: "gcc", Mode: compiler.ModeNormal})
	if out.Kind != OutcomeSuccess {
		t.Fatalf("outcome = %+v", out)
	}
	want := []State{StateAdmitted, StateInvoking, StateCompleted}
	if len(states) != len(want) {
		t.Fatalf("states = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("states = %v, want %v", states, want)
		}
	}
	if w.Gate.InFlight() != 0 {
		t.Fatalf("slot not released")
	}
}

func TestWorkerFilesystemError(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	launched := false
	w := &Worker{
		Gate: limiter.New(1),
		Launcher: proc.LauncherFunc(func(context.Context, []string) (proc.Result, error) {
			launched = true
			return proc.Result{}, nil
		}),
		Compilers: testCompilers(t),
		Layout:    corpus.Layout{Root: blocker},
	}
	out := w.Execute(context.Background(), Task{Unit: testUnit(t), Compiler: "gcc", Mode: compiler.ModeNormal})
	if out.Kind != OutcomeFilesystemError || launched {
		t.Fatalf("outcome = %+v, launched = %v", out, launched)
	}
	if w.Gate.Admitted() != 0 {
		t.Fatalf("slot taken before the output path resolved")
	}
}

func TestWorkerUnknownCompilerIsConfigurationError(t *testing.T) {
	out := t.TempDir()
	launched := false
	w := &Worker{
		Gate: limiter.New(1),
		Launcher: proc.LauncherFunc(func(context.Context, []string) (proc.Result, error) {
			launched = true
			return proc.Result{}, nil
		}),
		Compilers: testCompilers(t),
		Layout:    corpus.Layout{Root: out},
	}
	res := w.Execute(context.Background(), Task{Unit: testUnit(t), Compiler: "icc", Mode: compiler.ModeNormal})
	if res.Kind != OutcomeProcessError || !errors.Is(res.Err, config.ErrConfiguration) ||
		!errors.Is(res.Err, compiler.ErrUnsupportedCompiler) {
		t.Fatalf("outcome = %+v", res)
	}
	if launched || w.Gate.Admitted() != 0 || w.Gate.InFlight() != 0 {
		t.Fatalf("launched = %v, admitted = %d", launched, w.Gate.Admitted())
	}
	if _, err := os.Stat(filepath.Join(out, "normal", "icc")); !os.IsNotExist(err) {
		t.Fatalf("output tree created for unknown compiler: %v", err)
	}
}

func TestWorkerEmptyStderrDiagnostic(t *testing.T) {
	w := &Worker{
		Gate: limiter.New(1),
		Launcher: proc.LauncherFunc(func(context.Context, []string) (proc.Result, error) {
			return proc.Result{ExitCode: 3}, nil
		}),
		Compilers: testCompilers(t),
		Layout:    corpus.Layout{Root: t.TempDir()},
	}
	out := w.Execute(context.Background(), Task{Unit: testUnit(t), Compiler: "clang", Mode: compiler.ModeObfuscated})
	if out.Kind != OutcomeCompilerFailure || out.ExitCode != 3 || out.Stderr != "Unknown error" {
		t.Fatalf("outcome = %+v", out)
	}
}
