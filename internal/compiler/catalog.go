package compiler

import (
	"fmt"
	"sort"
	"strings"
)

// ToggleKind says how a toggle reaches the compiler.
type ToggleKind uint8

const (
	// ToggleFlag is a plain driver flag such as -s or -O2.
	ToggleFlag ToggleKind = iota
	// TogglePass is an LLVM pass option forwarded with -mllvm.
	TogglePass
)

// String returns the configuration spelling of the kind.
func (k ToggleKind) String() string {
	switch k {
	case ToggleFlag:
		return "flag"
	case TogglePass:
		return "pass"
	default:
		return "unknown"
	}
}

// ParseToggleKind converts a configuration value; empty means flag.
func ParseToggleKind(s string) (ToggleKind, error) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "", "flag":
		return ToggleFlag, nil
	case "pass", "mllvm":
		return TogglePass, nil
	default:
		return 0, fmt.Errorf("invalid toggle kind %q (expected flag|pass)", s)
	}
}

// Param is a sub-parameter of a toggle with its candidate values.
type Param struct {
	Key    string
	Values []string
}

// Toggle is one independently sampled entry of an obfuscation catalog.
type Toggle struct {
	Name   string
	Kind   ToggleKind
	Values []string // optional value domain of the toggle itself
	Params []Param  // emitted together on a second coin flip
}

// HasParams reports whether the toggle carries sub-parameters.
func (t Toggle) HasParams() bool { return len(t.Params) > 0 }

// Catalog is the ordered option space sampled in obfuscated mode.
// Order is significant: it fixes the argument order for a given sequence of draws.
type Catalog struct {
	Toggles []Toggle
}

// Spec is an immutable compiler backend description.
type Spec struct {
	Name     string // logical name; also the output directory
	Backend  Backend
	Binary   string
	Catalog  Catalog
	Fallback []string
}

// Validate checks the spec against its backend variant.
func (s *Spec) Validate() error {
	if s == nil {
		return fmt.Errorf("missing compiler spec")
	}
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("compiler spec without a name")
	}
	if strings.ContainsAny(s.Name, `/\`) || s.Name == "." || s.Name == ".." {
		return fmt.Errorf("compiler %q: name must be a single path segment", s.Name)
	}
	if strings.TrimSpace(s.Binary) == "" {
		return fmt.Errorf("compiler %q: missing binary", s.Name)
	}
	v, err := lookupVariant(s.Backend)
	if err != nil {
		return fmt.Errorf("compiler %q: %w", s.Name, err)
	}
	seen := make(map[string]struct{}, len(s.Catalog.Toggles))
	for _, t := range s.Catalog.Toggles {
		if strings.TrimSpace(t.Name) == "" {
			return fmt.Errorf("compiler %q: toggle without a name", s.Name)
		}
		if _, dup := seen[t.Name]; dup {
			return fmt.Errorf("compiler %q: duplicate toggle %q", s.Name, t.Name)
		}
		seen[t.Name] = struct{}{}
		if t.Kind == TogglePass && !v.passes {
			return fmt.Errorf("compiler %q: backend %s has no pass toggles (%q)", s.Name, s.Backend, t.Name)
		}
		if t.HasParams() && (t.Kind != TogglePass || v.param == nil) {
			return fmt.Errorf("compiler %q: toggle %q: params require a pass toggle", s.Name, t.Name)
		}
		for _, p := range t.Params {
			if strings.TrimSpace(p.Key) == "" {
				return fmt.Errorf("compiler %q: toggle %q: param without a key", s.Name, t.Name)
			}
			if len(p.Values) == 0 {
				return fmt.Errorf("compiler %q: toggle %q: param %q has no candidate values", s.Name, t.Name, p.Key)
			}
		}
	}
	if s.Fallback != nil && len(s.Fallback) == 0 {
		return fmt.Errorf("compiler %q: fallback must not be empty", s.Name)
	}
	return nil
}

// fallbackArgs returns the configured fallback or the backend default.
func (s *Spec) fallbackArgs() []string {
	if len(s.Fallback) > 0 {
		return s.Fallback
	}
	return DefaultFallback(s.Backend)
}

// SortParams orders params by key; used when the catalog comes from a map.
func SortParams(params []Param) {
	sort.Slice(params, func(i, j int) bool { return params[i].Key < params[j].Key })
}

// Set is the batch-wide, name-indexed collection of compiler specs.
type Set struct {
	specs map[string]*Spec
	names []string
}

// NewSet validates the specs and indexes them by name.
func NewSet(specs ...Spec) (*Set, error) {
	set := &Set{specs: make(map[string]*Spec, len(specs))}
	for i := range specs {
		spec := specs[i]
		if err := spec.Validate(); err != nil {
			return nil, err
		}
		if _, dup := set.specs[spec.Name]; dup {
			return nil, fmt.Errorf("duplicate compiler %q", spec.Name)
		}
		set.specs[spec.Name] = &spec
		set.names = append(set.names, spec.Name)
	}
	sort.Strings(set.names)
	return set, nil
}

// Names returns compiler names in sorted order.
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.names...)
}

// Lookup returns the spec registered under name.
func (s *Set) Lookup(name string) (*Spec, error) {
	if s != nil {
		if spec, ok := s.specs[name]; ok {
			return spec, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedCompiler, name)
}

// Len returns the number of specs.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// Subset keeps only the named compilers, in the set's order.
func (s *Set) Subset(names []string) (*Set, error) {
	if len(names) == 0 {
		return s, nil
	}
	specs := make([]Spec, 0, len(names))
	for _, name := range names {
		spec, err := s.Lookup(name)
		if err != nil {
			return nil, err
		}
		specs = append(specs, *spec)
	}
	return NewSet(specs...)
}

// Synthesize builds an invocation for the compiler registered under name.
func (s *Set) Synthesize(name, src, out string, mode Mode, rng Rand) (Invocation, error) {
	spec, err := s.Lookup(name)
	if err != nil {
		return Invocation{}, err
	}
	return Synthesize(spec, src, out, mode, rng)
}
