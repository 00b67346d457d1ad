package buildlog

import (
	"fmt"
	"strings"
)

// Level controls log verbosity.
type Level uint8

const (
	// LevelOff disables logging.
	LevelOff Level = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
)

// String returns the string representation of Level.
func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelError:
		return "error"
	case LevelWarn:
		return "warn"
	case LevelInfo:
		return "info"
	case LevelDebug:
		return "debug"
	default:
		return "unknown"
	}
}

// ParseLevel converts a string to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off":
		return LevelOff, nil
	case "error":
		return LevelError, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "info":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	default:
		return LevelOff, fmt.Errorf("invalid log level: %q (expected: off|error|warn|info|debug)", s)
	}
}

// ShouldEmit reports whether an event of kind passes this level.
func (l Level) ShouldEmit(kind Kind) bool {
	if l == LevelOff {
		return false
	}
	return kind.Severity() <= l
}
