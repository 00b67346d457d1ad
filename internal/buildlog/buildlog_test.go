package buildlog

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestLevelFiltering(t *testing.T) {
	cases := []struct {
		level Level
		kind  Kind
		want  bool
	}{
		{LevelOff, KindProcessError, false},
		{LevelError, KindCompilerFailure, true},
		{LevelError, KindSkipped, false},
		{LevelWarn, KindSkipped, true},
		{LevelWarn, KindSuccess, false},
		{LevelInfo, KindAttempt, true},
		{LevelInfo, KindHeartbeat, false},
		{LevelDebug, KindHeartbeat, true},
	}
	for _, tc := range cases {
		if got := tc.level.ShouldEmit(tc.kind); got != tc.want {
			t.Fatalf("%s.ShouldEmit(%s) = %v, want %v", tc.level, tc.kind, got, tc.want)
		}
	}
}

func TestStreamLogText(t *testing.T) {
	var buf bytes.Buffer
	l := NewStreamLog(&buf, LevelInfo, FormatText)
	Emit(l, KindAttempt, "run-1", "alice/2019/a.cpp", "", "compiler", "gcc", "mode", "normal")
	Emit(l, KindCompilerFailure, "run-1", "alice/2019/a.cpp", "a.cpp:1: error\nnote: here", "exit", "1")
	Emit(l, KindHeartbeat, "", "#1", "")

	out := buf.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], "INFO attempt alice/2019/a.cpp {compiler=gcc, mode=normal}") {
		t.Fatalf("line 0 = %q", lines[0])
	}
	if !strings.Contains(lines[1], "ERROR compiler-failure") || lines[2] != "    a.cpp:1: error" {
		t.Fatalf("failure lines = %q / %q", lines[1], lines[2])
	}
}

func TestStreamLogNDJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewStreamLog(&buf, LevelWarn, FormatNDJSON)
	Emit(l, KindSkipped, "run-2", "alice/a.cpp", "malformed submission path")
	Emit(l, KindSuccess, "run-2", "bob/2020/b.cpp", "")

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("unmarshal %q: %v", buf.String(), err)
	}
	if rec["kind"] != "skipped" || rec["level"] != "warn" || rec["run"] != "run-2" {
		t.Fatalf("record = %v", rec)
	}
}

func TestNewAppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.ndjson")
	for i := 0; i < 2; i++ {
		l, err := New(Config{Level: LevelInfo, OutputPath: path})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		Emit(l, KindBatchBegin, "run", "normal", "")
		if err := l.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if n := strings.Count(string(data), "\n"); n != 2 {
		t.Fatalf("log has %d lines, want 2 (append mode):\n%s", n, data)
	}
	if !strings.HasPrefix(string(data), "{") {
		t.Fatalf("expected NDJSON for .ndjson path: %s", data)
	}
}

func TestContextDefaultsToNop(t *testing.T) {
	if FromContext(context.Background()).Enabled() {
		t.Fatalf("expected Nop log")
	}
	var buf bytes.Buffer
	ctx := WithLog(context.Background(), NewStreamLog(&buf, LevelInfo, FormatText))
	if !FromContext(ctx).Enabled() {
		t.Fatalf("expected attached log")
	}
}

func TestHeartbeatStops(t *testing.T) {
	var buf syncBuffer
	l := NewStreamLog(&buf, LevelDebug, FormatText)
	h := StartHeartbeat(l, 5*time.Millisecond, func() string { return "3/10" })
	time.Sleep(30 * time.Millisecond)
	h.Stop()
	h.Stop()
	if !strings.Contains(buf.String(), "heartbeat #1 (3/10)") {
		t.Fatalf("no heartbeat in %q", buf.String())
	}
	if StartHeartbeat(Nop, time.Millisecond, nil) != nil {
		t.Fatalf("heartbeat started on disabled log")
	}
}

// syncBuffer guards bytes.Buffer reads against the heartbeat goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
