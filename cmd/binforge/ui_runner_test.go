package main

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"binforge/internal/buildpipeline"
	"binforge/internal/compiler"
	"binforge/internal/proc"
)

func TestRunBuildWithUIQuitCancelsBuild(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "alice", "2019", "a.cpp"), "int main(){}", 0o644)
	writeFile(t, filepath.Join(dir, "src", "bob", "2020", "b.cpp"), "int main(){}", 0o644)
	set, err := compiler.NewSet(compiler.Spec{
		Name: "gcc", Backend: compiler.BackendGCC, Binary: "gcc",
		Catalog: compiler.DefaultCatalog(compiler.BackendGCC),
	})
	if err != nil {
		t.Fatal(err)
	}

	started := make(chan struct{}, 2)
	launcher := proc.LauncherFunc(func(ctx context.Context, _ []string) (proc.Result, error) {
		started <- struct{}{}
		<-ctx.Done()
		return proc.Result{}, ctx.Err()
	})
	req := &buildpipeline.BuildRequest{
		Modes:      []compiler.Mode{compiler.ModeNormal},
		Sources:    map[compiler.Mode]string{compiler.ModeNormal: filepath.Join(dir, "src")},
		OutputRoot: filepath.Join(dir, "out"),
		Compilers:  set,
		Jobs:       1,
		Launcher:   launcher,
	}

	keys, press := io.Pipe()
	defer press.Close()
	go func() {
		<-started
		_, _ = press.Write([]byte("q"))
	}()

	type result struct {
		res buildpipeline.BuildResult
		err error
	}
	done := make(chan result, 1)
	go func() {
		res, err := runBuildWithUI(context.Background(), "compile", req,
			tea.WithInput(keys), tea.WithOutput(io.Discard), tea.WithoutRenderer(), tea.WithoutSignalHandler())
		done <- result{res, err}
	}()

	select {
	case r := <-done:
		if !errors.Is(r.err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", r.err)
		}
		if len(r.res.Batches) != 1 {
			t.Fatalf("batches = %d", len(r.res.Batches))
		}
		total := r.res.Total()
		if total.Cancelled != 2 || total.Attempted != 2 {
			t.Fatalf("counts = %+v", total)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("quitting the UI did not stop the build")
	}
}
