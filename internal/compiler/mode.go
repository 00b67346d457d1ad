package compiler

import (
	"fmt"
	"strings"
)

// Mode selects between the plain build and the randomized obfuscated build.
type Mode uint8

const (
	// ModeNormal builds with the bare `{compiler} {src} -o {out}` invocation.
	ModeNormal Mode = iota
	// ModeObfuscated samples the backend's obfuscation catalog.
	ModeObfuscated
)

// String returns the directory name used for the mode in the output tree.
func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeObfuscated:
		return "obfuscated"
	default:
		return "unknown"
	}
}

// ParseModes converts a --mode value into the ordered list of modes to run.
// "both" always yields normal before obfuscated.
func ParseModes(s string) ([]Mode, error) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "", "both", "all":
		return []Mode{ModeNormal, ModeObfuscated}, nil
	case "normal", "nor":
		return []Mode{ModeNormal}, nil
	case "obfuscated", "obf":
		return []Mode{ModeObfuscated}, nil
	default:
		return nil, fmt.Errorf("invalid mode %q (expected normal|obfuscated|both)", s)
	}
}
