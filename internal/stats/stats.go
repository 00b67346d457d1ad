// Package stats summarises how many files each user contributed to a tree.
package stats

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoUsers reports a root without user directories.
var ErrNoUsers = errors.New("no users detected")

// Summary describes the per-user file distribution under one root.
type Summary struct {
	Root    string
	Users   int
	Files   int
	Mean    float64
	StdDev  float64 // population standard deviation
	PerUser map[string]int
}

// Count walks root, whose children are user directories, and counts the
// regular files beneath each. Loose files at the root are ignored.
func Count(root string) (Summary, error) {
	s := Summary{Root: root, PerUser: make(map[string]int)}
	entries, err := os.ReadDir(root)
	if err != nil {
		return s, err
	}
	for _, e := range entries {
		if e.IsDir() {
			s.PerUser[e.Name()] = 0
		}
	}
	if len(s.PerUser) == 0 {
		return s, fmt.Errorf("%w under %s", ErrNoUsers, root)
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		user, _, nested := strings.Cut(filepath.ToSlash(rel), "/")
		if nested {
			s.PerUser[user]++
		}
		return nil
	})
	if err != nil {
		return s, err
	}

	for _, n := range s.PerUser {
		s.Files += n
	}
	s.Users = len(s.PerUser)
	s.Mean = float64(s.Files) / float64(s.Users)
	var sq float64
	for _, n := range s.PerUser {
		d := float64(n) - s.Mean
		sq += d * d
	}
	s.StdDev = math.Sqrt(sq / float64(s.Users))
	return s, nil
}

// UserCount is one row of Top.
type UserCount struct {
	User  string
	Files int
}

// Top returns the n users with most files, ties broken by name.
func (s Summary) Top(n int) []UserCount {
	rows := make([]UserCount, 0, len(s.PerUser))
	for u, c := range s.PerUser {
		rows = append(rows, UserCount{User: u, Files: c})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Files != rows[j].Files {
			return rows[i].Files > rows[j].Files
		}
		return rows[i].User < rows[j].User
	})
	if n >= 0 && n < len(rows) {
		rows = rows[:n]
	}
	return rows
}
