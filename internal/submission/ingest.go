package submission

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"binforge/internal/buildlog"
)

// ErrMissingColumn reports a CSV without the columns ingestion needs.
var ErrMissingColumn = errors.New("missing CSV column")

// Request locates one ingestion run.
type Request struct {
	Archives string // gcj<year>.csv.tar.bz2
	Names    string // gcj<year>.txt
	Extract  string // gcj<year>.csv, extracted or pre-existing
	Output   string // {user}/{year}/{user}-{year}-{n}.cpp
	// Years to ingest; when empty, every gcj<year>.txt in Names.
	Years []int
}

// YearReport is the result for one year.
type YearReport struct {
	Year    int
	Rows    int
	Written int
	Users   int
	// Skipped is non-nil when the whole year was skipped.
	Skipped error
}

// Ingest runs every requested year. A year whose inputs are missing is
// skipped with a warning; I/O errors on the output tree stop the run.
func Ingest(ctx context.Context, req *Request) ([]YearReport, error) {
	years := req.Years
	if len(years) == 0 {
		found, err := discoverYears(req.Names)
		if err != nil {
			return nil, err
		}
		years = found
	}
	log := buildlog.FromContext(ctx)

	reports := make([]YearReport, 0, len(years))
	for _, year := range years {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		rep, err := ingestYear(ctx, req, year)
		if err != nil {
			return reports, err
		}
		name := "gcj" + strconv.Itoa(year)
		if rep.Skipped != nil {
			buildlog.Emit(log, buildlog.KindSkipped, "", name, rep.Skipped.Error())
		} else {
			buildlog.Emit(log, buildlog.KindIngest, "", name, "",
				"rows", strconv.Itoa(rep.Rows),
				"written", strconv.Itoa(rep.Written),
				"users", strconv.Itoa(rep.Users))
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

func discoverYears(namesDir string) ([]int, error) {
	entries, err := os.ReadDir(namesDir)
	if err != nil {
		return nil, fmt.Errorf("reading names directory: %w", err)
	}
	var years []int
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "gcj") || !strings.HasSuffix(name, ".txt") {
			continue
		}
		year, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "gcj"), ".txt"))
		if err != nil {
			continue
		}
		years = append(years, year)
	}
	sort.Ints(years)
	return years, nil
}

func ingestYear(ctx context.Context, req *Request, year int) (YearReport, error) {
	rep := YearReport{Year: year}
	base := "gcj" + strconv.Itoa(year)

	names, err := ReadNames(filepath.Join(req.Names, base+".txt"))
	if err != nil {
		rep.Skipped = fmt.Errorf("names file: %w", err)
		return rep, nil
	}

	csvPath := filepath.Join(req.Extract, base+".csv")
	if _, err := os.Stat(csvPath); errors.Is(err, os.ErrNotExist) && req.Archives != "" {
		archive := filepath.Join(req.Archives, base+".csv.tar.bz2")
		if _, err := ExtractArchive(ctx, archive, req.Extract); err != nil {
			rep.Skipped = fmt.Errorf("extract %s: %w", archive, err)
			return rep, nil
		}
	}
	f, err := os.Open(csvPath)
	if err != nil {
		rep.Skipped = fmt.Errorf("csv: %w", err)
		return rep, nil
	}
	defer f.Close()

	w := &yearWriter{root: req.Output, year: strconv.Itoa(year), counts: make(map[string]int)}
	rows, err := filterRows(f, fileColumn(year), names, w.write)
	rep.Rows = rows
	rep.Written = w.written
	rep.Users = len(w.counts)
	if errors.Is(err, ErrMissingColumn) {
		rep.Skipped = err
		return rep, nil
	}
	if err != nil {
		return rep, fmt.Errorf("%s: %w", csvPath, err)
	}
	return rep, nil
}

// fileColumn names the column holding the submitted file name.
func fileColumn(year int) string {
	if year == 2020 {
		return "full_path"
	}
	return "file"
}

// filterRows streams the CSV and calls keep for every C++ row of a listed
// user. It returns the number of data rows read.
func filterRows(r io.Reader, fileCol string, names map[string]struct{}, keep func(user, source string) error) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return 0, fmt.Errorf("reading header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	cols := make([]int, 0, 3)
	for _, want := range []string{"username", fileCol, "flines"} {
		i, ok := idx[want]
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrMissingColumn, want)
		}
		cols = append(cols, i)
	}
	userCol, nameCol, linesCol := cols[0], cols[1], cols[2]

	rows := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		rows++
		if len(rec) <= userCol || len(rec) <= nameCol || len(rec) <= linesCol {
			continue
		}
		if _, ok := names[rec[userCol]]; !ok {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(rec[nameCol]), ".cpp") {
			continue
		}
		if err := keep(rec[userCol], rec[linesCol]); err != nil {
			return rows, err
		}
	}
}

type yearWriter struct {
	root    string
	year    string
	counts  map[string]int
	written int
}

func (w *yearWriter) write(user, source string) error {
	w.counts[user]++
	clean := SanitizeUsername(user)
	dir := filepath.Join(w.root, clean, w.year)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	name := fmt.Sprintf("%s-%s-%d.cpp", clean, w.year, w.counts[user])
	if err := os.WriteFile(filepath.Join(dir, name), []byte(source), 0o600); err != nil {
		return err
	}
	w.written++
	return nil
}
