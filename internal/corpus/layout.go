package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"binforge/internal/compiler"
)

// Layout maps units onto {root}/{mode}/{compiler}/{user}/{year}/{stem}.{ext}.
type Layout struct {
	Root      string
	BinaryExt string // without the leading dot; "exe" when empty
}

func (l Layout) ext() string {
	ext := strings.TrimPrefix(strings.TrimSpace(l.BinaryExt), ".")
	if ext == "" {
		return "exe"
	}
	return ext
}

// Path computes the output path without touching the filesystem.
func (l Layout) Path(u SourceUnit, mode compiler.Mode, compilerName string) (string, error) {
	if u.User == "" || u.Year == "" || u.Name == "" {
		return "", fmt.Errorf("%w: %s", ErrMalformedPath, u.Path)
	}
	if compilerName == "" {
		return "", fmt.Errorf("missing compiler name for %s", u.Rel)
	}
	dir := filepath.Join(l.Root, mode.String(), compilerName, u.User, u.Year)
	return filepath.Join(dir, u.Stem()+"."+l.ext()), nil
}

// Resolve computes the output path and creates its directory.
// Calling it again for the same output is a no-op; concurrent callers racing
// on a shared ancestor are fine since MkdirAll tolerates existing directories.
func (l Layout) Resolve(u SourceUnit, mode compiler.Mode, compilerName string) (string, error) {
	out, err := l.Path(u, mode, compilerName)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o750); err != nil {
		return "", fmt.Errorf("create output dir for %s: %w", u.Rel, err)
	}
	return out, nil
}
