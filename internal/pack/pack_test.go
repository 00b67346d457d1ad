package pack

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"binforge/internal/config"
	"binforge/internal/proc"
)

func TestPackerArgs(t *testing.T) {
	cases := []struct {
		name    string
		command string
		want    []string
	}{
		{"default", "", []string{"upx", "--best", "-k", "--le", "-o", "/out/a b-packed.exe", "/in/a b.exe"}},
		{"custom", "packer {{.Input}} -> {{.Output}}", []string{"packer", "/in/a", "b.exe", "->", "/out/a", "b-packed.exe"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := NewPacker(tc.command)
			if err != nil {
				t.Fatalf("NewPacker: %v", err)
			}
			got, err := p.Args("/in/a b.exe", "/out/a b-packed.exe")
			if err != nil {
				t.Fatalf("Args: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("args = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNewPackerRejectsBadTemplate(t *testing.T) {
	if _, err := NewPacker("upx {{.Input"); err == nil {
		t.Fatalf("expected template error")
	}
}

func writeBinary(t *testing.T, root, rel string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("ELF"), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestRunPacksTree(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	writeBinary(t, in, "gcc/alice/2019/a.exe")
	writeBinary(t, in, "clang/bob/2020/b.exe")
	writeBinary(t, in, "clang/bob/2020/notes.txt")
	writeBinary(t, in, "clang/stray.exe")

	packer, err := NewPacker("")
	if err != nil {
		t.Fatal(err)
	}
	var (
		mu    sync.Mutex
		calls [][]string
	)
	launcher := proc.LauncherFunc(func(_ context.Context, args []string) (proc.Result, error) {
		mu.Lock()
		calls = append(calls, args)
		mu.Unlock()
		if filepath.Base(args[len(args)-1]) == "b.exe" {
			return proc.Result{ExitCode: 2, Stderr: []byte("NotCompressibleException")}, nil
		}
		return proc.Result{}, nil
	})

	for _, parallel := range []bool{false, true} {
		calls = nil
		report, err := Run(context.Background(), &Request{
			Input:    in,
			Output:   out,
			Ext:      "exe",
			Packer:   packer,
			Parallel: parallel,
			Launcher: launcher,
		})
		if err != nil {
			t.Fatalf("Run(parallel=%v): %v", parallel, err)
		}
		if report.Packed != 1 || report.Failed != 1 || report.Errors != 0 {
			t.Fatalf("report = %+v", report)
		}
		if len(report.Skipped) != 1 || len(calls) != 2 {
			t.Fatalf("skipped=%v calls=%d", report.Skipped, len(calls))
		}
		want := filepath.Join(out, "gcc", "alice", "2019", "a-packed.exe")
		found := false
		for _, r := range report.Results {
			if r.Job.Output == want && r.Status == StatusPacked {
				found = true
			}
			if r.Status == StatusFailed && (r.ExitCode != 2 || r.Stderr != "NotCompressibleException") {
				t.Fatalf("failed result = %+v", r)
			}
		}
		if !found {
			t.Fatalf("missing packed result for %s: %+v", want, report.Results)
		}
		if _, err := os.Stat(filepath.Dir(want)); err != nil {
			t.Fatalf("output dir not created: %v", err)
		}
	}
}

func TestRunLaunchErrorsAreCounted(t *testing.T) {
	in := t.TempDir()
	writeBinary(t, in, "gcc/alice/2019/a.exe")
	packer, _ := NewPacker("")
	report, err := Run(context.Background(), &Request{
		Input:  in,
		Output: t.TempDir(),
		Ext:    "exe",
		Packer: packer,
		Launcher: proc.LauncherFunc(func(context.Context, []string) (proc.Result, error) {
			return proc.Result{}, errors.New("exec: \"upx\": executable file not found in $PATH")
		}),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Errors != 1 || report.Results[0].Status != StatusError {
		t.Fatalf("report = %+v", report)
	}
}

func TestRunMissingInput(t *testing.T) {
	packer, _ := NewPacker("")
	_, err := Run(context.Background(), &Request{
		Input:  filepath.Join(t.TempDir(), "missing"),
		Output: t.TempDir(),
		Packer: packer,
	})
	if !errors.Is(err, config.ErrConfiguration) {
		t.Fatalf("err = %v", err)
	}
}
