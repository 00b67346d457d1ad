// Package compiler synthesizes compiler invocations, including randomized
// obfuscation invocations sampled from a per-backend option catalog.
package compiler

import (
	"math/rand/v2"
)

// Rand is the random source used for sampling. *rand.Rand satisfies it.
// Implementations need not be safe for concurrent use.
type Rand interface {
	IntN(n int) int
}

// globalRand draws from the goroutine-safe top-level math/rand/v2 source.
type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// GlobalRand is the process-wide random source.
var GlobalRand Rand = globalRand{}

// NewSeededRand returns a PCG source; stream separates workers sharing a seed.
func NewSeededRand(seed, stream uint64) Rand {
	return rand.New(rand.NewPCG(seed, stream))
}

// ParamChoice is a realized sub-parameter value.
type ParamChoice struct {
	Key   string
	Value string
}

// Choice records one toggle that was drawn into an invocation.
type Choice struct {
	Toggle string
	Value  string
	Params []ParamChoice
}

// Invocation is a ready-to-exec argument vector plus the draws that produced it.
type Invocation struct {
	Args     []string
	Mode     Mode
	Choices  []Choice
	Fallback bool // the draw selected nothing and the fixed default was used
}

// Command returns the program name.
func (inv Invocation) Command() string {
	if len(inv.Args) == 0 {
		return ""
	}
	return inv.Args[0]
}

func baseArgs(spec *Spec, src, out string) []string {
	return []string{spec.Binary, src, "-o", out}
}

func coin(rng Rand) bool { return rng.IntN(2) == 1 }

func pick(rng Rand, values []string) string {
	return values[rng.IntN(len(values))]
}

// Synthesize builds the invocation for one (source, output) pair.
//
// Normal mode is a pure function of its inputs. Obfuscated mode flips one
// coin per toggle; a toggle with a value domain draws one value uniformly;
// a toggle with params flips a second coin and, on heads, draws every
// param uniformly. If no toggle is drawn the backend fallback is appended,
// so obfuscated invocations never equal the normal one.
func Synthesize(spec *Spec, src, out string, mode Mode, rng Rand) (Invocation, error) {
	if spec == nil {
		return Invocation{}, ErrUnsupportedCompiler
	}
	v, err := lookupVariant(spec.Backend)
	if err != nil {
		return Invocation{}, err
	}
	inv := Invocation{Args: baseArgs(spec, src, out), Mode: mode}
	if mode != ModeObfuscated {
		return inv, nil
	}
	if rng == nil {
		rng = GlobalRand
	}

	for _, t := range spec.Catalog.Toggles {
		if !coin(rng) {
			continue
		}
		choice := Choice{Toggle: t.Name}
		if len(t.Values) > 0 {
			choice.Value = pick(rng, t.Values)
		}
		inv.Args = append(inv.Args, v.toggle(t, choice.Value)...)
		if t.HasParams() && v.param != nil && coin(rng) {
			for _, p := range t.Params {
				pc := ParamChoice{Key: p.Key, Value: pick(rng, p.Values)}
				inv.Args = append(inv.Args, v.param(t, pc.Key, pc.Value)...)
				choice.Params = append(choice.Params, pc)
			}
		}
		inv.Choices = append(inv.Choices, choice)
	}

	if len(inv.Choices) == 0 {
		inv.Args = append(baseArgs(spec, src, out), spec.fallbackArgs()...)
		inv.Fallback = true
	}
	return inv, nil
}
