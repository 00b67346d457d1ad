// Package corpus discovers submission sources and maps them onto the
// compiled-output tree.
package corpus

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// ErrMalformedPath reports a source whose path relative to the root is not
// exactly {user}/{year}/{file}.
var ErrMalformedPath = errors.New("malformed submission path")

// ErrUnreadable reports a file or directory under the root that could not be
// read. Its subtree is skipped.
var ErrUnreadable = errors.New("unreadable source path")

// SourceUnit is one discovered source file with its derived identity.
type SourceUnit struct {
	Path string // absolute path
	Rel  string // slash-separated path relative to the source root
	User string
	Year string
	Name string // file name with extension
}

// Stem returns the file name without its extension.
func (u SourceUnit) Stem() string {
	return strings.TrimSuffix(u.Name, filepath.Ext(u.Name))
}

// Key identifies the unit inside one (mode, compiler) subtree.
func (u SourceUnit) Key() string {
	return u.User + "/" + u.Year + "/" + u.Stem()
}

// Skipped is a discovered file that never becomes a unit.
type Skipped struct {
	Path string
	Err  error
}

// Decompose splits path (under root) into a SourceUnit.
func Decompose(root, path string) (SourceUnit, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return SourceUnit{}, fmt.Errorf("resolve root %q: %w", root, err)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return SourceUnit{}, fmt.Errorf("resolve %q: %w", path, err)
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return SourceUnit{}, fmt.Errorf("%w: %s: %v", ErrMalformedPath, path, err)
	}
	rel = filepath.ToSlash(rel)
	parts := strings.Split(rel, "/")
	if len(parts) != 3 {
		return SourceUnit{}, fmt.Errorf("%w: %s has %d segment(s), want user/year/file", ErrMalformedPath, rel, len(parts))
	}
	for _, p := range parts {
		if p == "" || p == "." || p == ".." {
			return SourceUnit{}, fmt.Errorf("%w: %s", ErrMalformedPath, rel)
		}
	}
	return SourceUnit{
		Path: absPath,
		Rel:  rel,
		User: parts[0],
		Year: parts[1],
		Name: parts[2],
	}, nil
}

// Discover walks root and returns every regular file with extension ext,
// decomposed into units. Files with the wrong shape and unreadable entries
// below root are returned as skipped; only an unreadable root is an error.
// Results are sorted by relative path.
func Discover(root, ext string) ([]SourceUnit, []Skipped, error) {
	w := &discovery{root: root, ext: normalizeExt(ext)}
	if err := filepath.WalkDir(root, w.visit); err != nil {
		return nil, nil, err
	}
	sort.Slice(w.units, func(i, j int) bool { return w.units[i].Rel < w.units[j].Rel })
	sort.Slice(w.skipped, func(i, j int) bool { return w.skipped[i].Path < w.skipped[j].Path })
	return w.units, w.skipped, nil
}

type discovery struct {
	root    string
	ext     string
	units   []SourceUnit
	skipped []Skipped
}

func (w *discovery) visit(path string, d fs.DirEntry, err error) error {
	if err != nil {
		if path == w.root {
			return err
		}
		w.skipped = append(w.skipped, Skipped{Path: path, Err: fmt.Errorf("%w: %v", ErrUnreadable, err)})
		if d != nil && d.IsDir() {
			return fs.SkipDir
		}
		return nil
	}
	if !d.Type().IsRegular() {
		return nil
	}
	if !strings.EqualFold(filepath.Ext(path), w.ext) {
		return nil
	}
	unit, decErr := Decompose(w.root, path)
	if decErr != nil {
		w.skipped = append(w.skipped, Skipped{Path: path, Err: decErr})
		return nil
	}
	w.units = append(w.units, unit)
	return nil
}

func normalizeExt(ext string) string {
	ext = strings.TrimSpace(ext)
	if ext == "" {
		return ".cpp"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
