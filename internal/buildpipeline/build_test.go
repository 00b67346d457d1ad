package buildpipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"binforge/internal/compiler"
)

func TestBuildRunsModesInOrder(t *testing.T) {
	normal := t.TempDir()
	obf := t.TempDir()
	out := t.TempDir()
	writeSource(t, normal, "u1/2019/a.cpp")
	writeSource(t, obf, "u1/2019/a.cpp")

	var order []compiler.Mode
	res, err := Build(context.Background(), &BuildRequest{
		Sources: map[compiler.Mode]string{
			compiler.ModeNormal:     normal,
			compiler.ModeObfuscated: obf,
		},
		OutputRoot: out,
		Compilers:  testCompilers(t),
		Jobs:       1,
		Launcher:   touchLauncher(),
		OnBatch:    func(m compiler.Mode) { order = append(order, m) },
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(order) != 2 || order[0] != compiler.ModeNormal || order[1] != compiler.ModeObfuscated {
		t.Fatalf("order = %v", order)
	}
	if len(res.Batches) != 2 || res.Batches[0].Run == res.Batches[1].Run {
		t.Fatalf("batches = %+v", res.Batches)
	}
	if got := res.Total().Succeeded; got != 4 {
		t.Fatalf("succeeded = %d, want 4", got)
	}
	if _, err := os.Stat(filepath.Join(out, "obfuscated", "clang", "u1", "2019", "a.exe")); err != nil {
		t.Fatalf("missing obfuscated output: %v", err)
	}
}

func TestBuildStopsOnSetupError(t *testing.T) {
	res, err := Build(context.Background(), &BuildRequest{
		Modes:      []compiler.Mode{compiler.ModeNormal, compiler.ModeObfuscated},
		Sources:    map[compiler.Mode]string{compiler.ModeNormal: filepath.Join(t.TempDir(), "missing")},
		OutputRoot: t.TempDir(),
		Compilers:  testCompilers(t),
		Launcher:   touchLauncher(),
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(res.Batches) != 0 {
		t.Fatalf("batches = %d, want 0", len(res.Batches))
	}
}
