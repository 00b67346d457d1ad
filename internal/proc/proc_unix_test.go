//go:build unix

package proc

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestExecLauncherSuccess(t *testing.T) {
	res, err := ExecLauncher{}.Launch(context.Background(), []string{"sh", "-c", "echo hi"})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if res.ExitCode != 0 || strings.TrimSpace(string(res.Stdout)) != "hi" {
		t.Fatalf("res = %+v", res)
	}
}

func TestExecLauncherNonZeroExitIsNotAnError(t *testing.T) {
	res, err := ExecLauncher{}.Launch(context.Background(), []string{"sh", "-c", "echo boom >&2; exit 3"})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if res.ExitCode != 3 {
		t.Fatalf("ExitCode = %d, want 3", res.ExitCode)
	}
	if res.Diagnostic() != "boom" {
		t.Fatalf("Diagnostic() = %q", res.Diagnostic())
	}
}

func TestExecLauncherMissingBinary(t *testing.T) {
	if _, err := (ExecLauncher{}).Launch(context.Background(), []string{"/nonexistent/binforge-cc"}); err == nil {
		t.Fatalf("expected launch error")
	}
	if _, err := (ExecLauncher{}).Launch(context.Background(), nil); err == nil {
		t.Fatalf("expected error for empty command")
	}
}

func TestExecLauncherCancelKillsProcess(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := ExecLauncher{WaitDelay: 100 * time.Millisecond}.Launch(ctx, []string{"sh", "-c", "sleep 10"})
	if err == nil {
		t.Fatalf("expected interruption error")
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("process was not killed promptly")
	}
}
