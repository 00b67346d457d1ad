package buildlog

// MultiLog fans out events to multiple logs.
type MultiLog struct {
	logs  []Log
	level Level
}

// NewMultiLog creates a new MultiLog that emits to all provided logs.
func NewMultiLog(level Level, logs ...Log) *MultiLog {
	return &MultiLog{
		logs:  logs,
		level: level,
	}
}

// Emit sends a copy of the event to every underlying log.
func (m *MultiLog) Emit(ev *Event) {
	for _, l := range m.logs {
		cp := *ev
		l.Emit(&cp)
	}
}

// Flush flushes all underlying logs.
func (m *MultiLog) Flush() error {
	var firstErr error
	for _, l := range m.logs {
		if err := l.Flush(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close closes all underlying logs.
func (m *MultiLog) Close() error {
	var firstErr error
	for _, l := range m.logs {
		if err := l.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Level returns the configured level.
func (m *MultiLog) Level() Level {
	return m.level
}

// Enabled returns true if logging is active.
func (m *MultiLog) Enabled() bool {
	return m.level > LevelOff
}
