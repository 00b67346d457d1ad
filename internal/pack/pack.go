package pack

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"binforge/internal/buildlog"
	"binforge/internal/config"
	"binforge/internal/proc"
)

// Status classifies one packing attempt.
type Status uint8

const (
	// StatusPacked means the packer exited zero.
	StatusPacked Status = iota + 1
	// StatusFailed means the packer ran and exited non-zero.
	StatusFailed
	// StatusError means the packer could not run or the output directory
	// could not be created.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusPacked:
		return "packed"
	case StatusFailed:
		return "failed"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Job is one binary to pack.
type Job struct {
	Input    string
	Output   string
	Compiler string
	User     string
	Year     string
}

// Result is the outcome of one Job.
type Result struct {
	Job      Job
	Status   Status
	ExitCode int
	Stderr   string
	Err      error
	Elapsed  time.Duration
}

// Report sums a packing run.
type Report struct {
	Results []Result
	Skipped []string
	Packed  int
	Failed  int
	Errors  int
}

// Request configures a packing run.
type Request struct {
	Input  string // {compiler}/{user}/{year}/*.{ext}
	Output string
	Ext    string // binary extension without the dot
	Suffix string // appended to the stem; "-packed" when empty
	Packer *Packer
	// Parallel packs every binary at once; the default is one at a time.
	Parallel bool
	Launcher proc.Launcher
}

// Plan lists the binaries under req.Input. Files not exactly four levels deep
// are returned as skipped.
func Plan(req *Request) ([]Job, []string, error) {
	info, err := os.Stat(req.Input)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: packer input %q: %v", config.ErrConfiguration, req.Input, err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("%w: packer input %q is not a directory", config.ErrConfiguration, req.Input)
	}
	if strings.TrimSpace(req.Output) == "" {
		return nil, nil, fmt.Errorf("%w: missing packed output directory", config.ErrConfiguration)
	}
	ext := "." + strings.TrimPrefix(req.Ext, ".")
	suffix := req.Suffix
	if suffix == "" {
		suffix = "-packed"
	}

	var (
		jobs    []Job
		skipped []string
	)
	err = filepath.WalkDir(req.Input, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() || filepath.Ext(path) != ext {
			return nil
		}
		rel, err := filepath.Rel(req.Input, path)
		if err != nil {
			return err
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) != 4 {
			skipped = append(skipped, path)
			return nil
		}
		name := parts[3]
		stem := strings.TrimSuffix(name, ext)
		jobs = append(jobs, Job{
			Input:    path,
			Output:   filepath.Join(req.Output, parts[0], parts[1], parts[2], stem+suffix+ext),
			Compiler: parts[0],
			User:     parts[1],
			Year:     parts[2],
		})
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("walk %s: %w", req.Input, err)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Input < jobs[j].Input })
	return jobs, skipped, nil
}

// Run packs every binary of the input tree. A failing binary never stops the
// run; only setup errors and cancellation are returned.
func Run(ctx context.Context, req *Request) (Report, error) {
	var report Report
	if req == nil || req.Packer == nil {
		return report, fmt.Errorf("%w: missing packer", config.ErrConfiguration)
	}
	jobs, skipped, err := Plan(req)
	if err != nil {
		return report, err
	}
	report.Skipped = skipped
	log := buildlog.FromContext(ctx)
	for _, path := range skipped {
		buildlog.Emit(log, buildlog.KindSkipped, "", path, "expected {compiler}/{user}/{year}/file")
	}

	launcher := req.Launcher
	if launcher == nil {
		launcher = proc.ExecLauncher{}
	}
	report.Results = make([]Result, len(jobs))
	packOne := func(i int) {
		r := packJob(ctx, req.Packer, launcher, jobs[i])
		logResult(log, r)
		report.Results[i] = r
	}

	if req.Parallel {
		var g errgroup.Group
		for i := range jobs {
			g.Go(func() error {
				packOne(i)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := range jobs {
			packOne(i)
		}
	}

	for _, r := range report.Results {
		switch r.Status {
		case StatusPacked:
			report.Packed++
		case StatusFailed:
			report.Failed++
		default:
			report.Errors++
		}
	}
	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("packing interrupted: %w", err)
	}
	return report, nil
}

func packJob(ctx context.Context, packer *Packer, launcher proc.Launcher, job Job) (r Result) {
	r = Result{Job: job}
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			r.Status = StatusError
			r.Err = fmt.Errorf("packer panicked: %v", rec)
		}
		r.Elapsed = time.Since(start)
	}()

	if err := ctx.Err(); err != nil {
		r.Status = StatusError
		r.Err = err
		return r
	}
	if err := os.MkdirAll(filepath.Dir(job.Output), 0o750); err != nil {
		r.Status = StatusError
		r.Err = fmt.Errorf("create %s: %w", filepath.Dir(job.Output), err)
		return r
	}
	args, err := packer.Args(job.Input, job.Output)
	if err != nil {
		r.Status = StatusError
		r.Err = err
		return r
	}
	res, err := launcher.Launch(ctx, args)
	switch {
	case err != nil:
		r.Status = StatusError
		r.Err = err
	case res.ExitCode != 0:
		r.Status = StatusFailed
		r.ExitCode = res.ExitCode
		r.Stderr = res.Diagnostic()
	default:
		r.Status = StatusPacked
	}
	return r
}

func logResult(log buildlog.Log, r Result) {
	detail := r.Stderr
	if r.Err != nil {
		detail = r.Err.Error()
		if errors.Is(r.Err, context.Canceled) {
			detail = "cancelled"
		}
	}
	kind := buildlog.KindPack
	if r.Status != StatusPacked {
		kind = buildlog.KindProcessError
	}
	buildlog.Emit(log, kind, "", r.Job.Input, detail,
		"status", r.Status.String(),
		"output", r.Job.Output,
		"exit", strconv.Itoa(r.ExitCode))
}
