// Package proc runs external tools and captures their exit status and output.
package proc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Result is what a finished process left behind. A non-zero ExitCode is not
// an error: only failures to launch or to wait are returned as errors.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Elapsed  time.Duration
}

// Diagnostic returns trimmed stderr, falling back to stdout.
func (r Result) Diagnostic() string {
	msg := strings.TrimSpace(string(r.Stderr))
	if msg == "" {
		msg = strings.TrimSpace(string(r.Stdout))
	}
	return msg
}

// Launcher starts a process for args and waits for it.
type Launcher interface {
	Launch(ctx context.Context, args []string) (Result, error)
}

// LauncherFunc adapts a function to Launcher.
type LauncherFunc func(ctx context.Context, args []string) (Result, error)

// Launch calls f.
func (f LauncherFunc) Launch(ctx context.Context, args []string) (Result, error) {
	return f(ctx, args)
}

// ExecLauncher runs processes with os/exec. Each child gets its own process
// group, which is killed when ctx ends so no grandchildren are orphaned.
type ExecLauncher struct {
	Dir string
	// WaitDelay bounds how long Wait lingers on I/O after a kill.
	WaitDelay time.Duration
}

// Launch implements Launcher.
func (l ExecLauncher) Launch(ctx context.Context, args []string) (Result, error) {
	if len(args) == 0 {
		return Result{}, fmt.Errorf("empty command")
	}
	// #nosec G204 -- the argument vector comes from the validated compiler configuration
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = l.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	setProcessGroup(cmd)
	cmd.WaitDelay = l.WaitDelay
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = 2 * time.Second
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("start %s: %w", args[0], err)
	}
	err := cmd.Wait()
	res := Result{
		ExitCode: 0,
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Elapsed:  time.Since(start),
	}
	if err == nil {
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, fmt.Errorf("%s interrupted: %w", args[0], ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// -1 when the process was killed by a signal.
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	if errors.Is(err, exec.ErrWaitDelay) && cmd.ProcessState != nil && cmd.ProcessState.Success() {
		return res, nil
	}
	return res, fmt.Errorf("wait %s: %w", args[0], err)
}
