package dedup

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"

	"binforge/internal/buildlog"
	"binforge/internal/corpus"
)

// Duplicate is a source whose content was already recorded for another file.
type Duplicate struct {
	Path     string
	User     string
	File     string
	Original Entry
	Removed  bool
}

// Report summarises one checker pass.
type Report struct {
	Scanned    int
	Unique     int
	Duplicates []Duplicate
	Skipped    []corpus.Skipped
}

// Checker removes byte-identical submissions from a {user}/{year}/{file}
// tree. The first file in path order owns its hash; later copies are deleted
// unless DryRun is set.
type Checker struct {
	Store  Store
	Ext    string
	DryRun bool
}

// Run scans root once.
func (c *Checker) Run(ctx context.Context, root string) (Report, error) {
	var report Report
	units, skipped, err := corpus.Discover(root, c.Ext)
	if err != nil {
		return report, fmt.Errorf("discover %s: %w", root, err)
	}
	report.Skipped = skipped

	log := buildlog.FromContext(ctx)
	for _, s := range skipped {
		buildlog.Emit(log, buildlog.KindSkipped, "", s.Path, s.Err.Error())
	}

	for _, u := range units {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		sum, err := HashFile(u.Path)
		if err != nil {
			return report, err
		}
		report.Scanned++
		file := path.Join(u.Year, u.Name)

		seen, err := c.Store.AlreadySeen(ctx, sum)
		if err != nil {
			return report, err
		}
		if !seen {
			if _, err := c.Store.Record(ctx, sum, u.User, file); err != nil {
				return report, err
			}
			report.Unique++
			continue
		}
		// Only a repeated hash needs its owner.
		prev, _, err := c.Store.Lookup(ctx, sum)
		if err != nil {
			return report, err
		}
		// A persistent store already knows files from earlier runs.
		if prev.User == u.User && prev.File == file {
			report.Unique++
			continue
		}

		dup := Duplicate{Path: u.Path, User: u.User, File: file, Original: prev}
		if !c.DryRun {
			if err := os.Remove(u.Path); err != nil {
				return report, fmt.Errorf("removing duplicate: %w", err)
			}
			dup.Removed = true
		}
		report.Duplicates = append(report.Duplicates, dup)
		buildlog.Emit(log, buildlog.KindDedup, "", u.Rel,
			fmt.Sprintf("duplicate of %s/%s", prev.User, prev.File),
			"md5", sum,
			"removed", fmt.Sprint(dup.Removed))
	}
	return report, nil
}

// HashFile returns the hex MD5 of the file's content.
func HashFile(name string) (string, error) {
	f, err := os.Open(name)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := md5.New() // #nosec G401 -- content fingerprint, not a security boundary
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", name, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
