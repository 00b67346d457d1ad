package buildlog

import (
	"io"
	"sync"
)

// StreamLog writes events immediately to an io.Writer.
type StreamLog struct {
	mu     sync.Mutex
	w      io.Writer
	level  Level
	format Format
}

// NewStreamLog creates a new StreamLog.
func NewStreamLog(w io.Writer, level Level, format Format) *StreamLog {
	return &StreamLog{
		w:      w,
		level:  level,
		format: format,
	}
}

// Emit writes an event to the output.
func (l *StreamLog) Emit(ev *Event) {
	if ev == nil || !l.level.ShouldEmit(ev.Kind) {
		return
	}

	ev.Seq = NextSeq()

	data := FormatEvent(ev, l.format)

	l.mu.Lock()
	defer l.mu.Unlock()

	// Best-effort write - a full disk must not fail the batch
	if _, err := l.w.Write(data); err != nil {
		_ = err
	}
}

// Flush calls the writer's Flush or Sync method when it has one.
func (l *StreamLog) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch w := l.w.(type) {
	case interface{ Flush() error }:
		return w.Flush()
	case interface{ Sync() error }:
		return w.Sync()
	}
	return nil
}

// Close flushes and closes the writer if it implements io.Closer.
func (l *StreamLog) Close() error {
	if err := l.Flush(); err != nil {
		_ = err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if closer, ok := l.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Level returns the current level.
func (l *StreamLog) Level() Level {
	return l.level
}

// Enabled returns true if logging is active.
func (l *StreamLog) Enabled() bool {
	return l.level > LevelOff
}
