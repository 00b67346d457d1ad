package stats

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, root, rel string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestCount(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "alice/2019/a.exe")
	touch(t, root, "alice/2019/b.exe")
	touch(t, root, "alice/2020/c.exe")
	touch(t, root, "bob/2019/a.exe")
	touch(t, root, "README")
	if err := os.Mkdir(filepath.Join(root, "carol"), 0o755); err != nil {
		t.Fatal(err)
	}

	s, err := Count(root)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if s.Users != 3 || s.Files != 4 {
		t.Fatalf("users=%d files=%d", s.Users, s.Files)
	}
	if math.Abs(s.Mean-4.0/3.0) > 1e-9 {
		t.Fatalf("mean = %v", s.Mean)
	}
	// counts 3,1,0: variance = ((5/3)^2 + (1/3)^2 + (4/3)^2) / 3 = 14/9
	if want := math.Sqrt(14.0 / 9.0); math.Abs(s.StdDev-want) > 1e-9 {
		t.Fatalf("stddev = %v, want %v", s.StdDev, want)
	}
	top := s.Top(2)
	if len(top) != 2 || top[0].User != "alice" || top[1].User != "bob" {
		t.Fatalf("top = %+v", top)
	}
}

func TestCountNoUsers(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "loose.exe")
	if _, err := Count(root); !errors.Is(err, ErrNoUsers) {
		t.Fatalf("err = %v, want ErrNoUsers", err)
	}
}
