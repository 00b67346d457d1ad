package compiler

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupportedCompiler reports a compiler name or backend outside the known set.
var ErrUnsupportedCompiler = errors.New("unsupported compiler")

// Backend is the closed set of compiler families the synthesizer knows how to drive.
type Backend uint8

const (
	// BackendGCC drives g++; only driver flags are sampled.
	BackendGCC Backend = iota + 1
	// BackendClang drives an obfuscating clang++ (OLLVM); LLVM passes go through -mllvm.
	BackendClang
)

// String returns the configuration spelling of the backend.
func (b Backend) String() string {
	switch b {
	case BackendGCC:
		return "gcc"
	case BackendClang:
		return "clang"
	default:
		return "unknown"
	}
}

// ParseBackend converts a configuration value to a Backend.
func ParseBackend(s string) (Backend, error) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "gcc", "g++":
		return BackendGCC, nil
	case "clang", "clang++", "ollvm":
		return BackendClang, nil
	default:
		return 0, fmt.Errorf("%w: backend %q (expected gcc|clang)", ErrUnsupportedCompiler, s)
	}
}

// InferBackend guesses the backend from a compiler binary such as "/usr/bin/clang++-14".
func InferBackend(binary string) (Backend, bool) {
	base := strings.ToLower(filepath.Base(binary))
	base = strings.TrimSuffix(base, ".exe")
	switch {
	case strings.HasPrefix(base, "clang"):
		return BackendClang, true
	case strings.HasPrefix(base, "g++"), strings.HasPrefix(base, "gcc"),
		strings.HasSuffix(base, "-g++"), strings.HasSuffix(base, "-gcc"):
		return BackendGCC, true
	default:
		return 0, false
	}
}

// variant supplies the backend-specific pieces of an invocation.
type variant struct {
	passes   bool
	fallback []string
	toggle   func(t Toggle, value string) []string
	param    func(t Toggle, key, value string) []string
}

var variants = map[Backend]variant{
	BackendGCC: {
		passes:   false,
		fallback: []string{"-s", "-O2"},
		toggle:   renderFlag,
	},
	BackendClang: {
		passes:   true,
		fallback: []string{"-s", "-mllvm", "-sub", "-mllvm", "-fla", "-mllvm", "-bcf"},
		toggle: func(t Toggle, value string) []string {
			if t.Kind != TogglePass {
				return renderFlag(t, value)
			}
			arg := "-" + t.Name
			if value != "" {
				arg += "=" + value
			}
			return []string{"-mllvm", arg}
		},
		param: func(t Toggle, key, value string) []string {
			return []string{"-mllvm", fmt.Sprintf("-%s_%s=%s", t.Name, key, value)}
		},
	},
}

// renderFlag emits a driver flag; a value is appended verbatim ("O" + "2" -> "-O2").
func renderFlag(t Toggle, value string) []string {
	return []string{"-" + t.Name + value}
}

func lookupVariant(b Backend) (variant, error) {
	v, ok := variants[b]
	if !ok {
		return variant{}, fmt.Errorf("%w: backend %d", ErrUnsupportedCompiler, b)
	}
	return v, nil
}

// DefaultFallback returns the fixed obfuscation arguments for a backend.
func DefaultFallback(b Backend) []string {
	v, err := lookupVariant(b)
	if err != nil {
		return nil
	}
	return append([]string(nil), v.fallback...)
}
