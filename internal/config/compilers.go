package config

import (
	"fmt"
	"sort"

	"binforge/internal/compiler"
)

// CompilerSet turns the compilers table into validated compiler specs.
func (c *Config) CompilerSet() (*compiler.Set, error) {
	names := make([]string, 0, len(c.Compilers))
	for name := range c.Compilers {
		names = append(names, name)
	}
	sort.Strings(names)

	specs := make([]compiler.Spec, 0, len(names))
	for _, name := range names {
		spec, err := c.Compilers[name].spec(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
		specs = append(specs, spec)
	}
	set, err := compiler.NewSet(specs...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return set, nil
}

func (cc CompilerConfig) spec(name string) (compiler.Spec, error) {
	binary := cc.Binary
	if binary == "" {
		binary = name
	}
	var (
		backend compiler.Backend
		err     error
	)
	switch {
	case cc.Kind != "":
		backend, err = compiler.ParseBackend(cc.Kind)
		if err != nil {
			return compiler.Spec{}, fmt.Errorf("compiler %q: %w", name, err)
		}
	default:
		var ok bool
		if backend, ok = compiler.InferBackend(binary); !ok {
			if backend, ok = compiler.InferBackend(name); !ok {
				return compiler.Spec{}, fmt.Errorf("compiler %q: cannot infer kind from %q, set kind = \"gcc\" or \"clang\"", name, binary)
			}
		}
	}

	catalog, err := cc.catalog(name, backend)
	if err != nil {
		return compiler.Spec{}, err
	}
	spec := compiler.Spec{
		Name:     name,
		Backend:  backend,
		Binary:   binary,
		Catalog:  catalog,
		Fallback: cc.Fallback,
	}
	return spec, spec.Validate()
}

func (cc CompilerConfig) catalog(name string, backend compiler.Backend) (compiler.Catalog, error) {
	switch {
	case cc.Toggles != nil && cc.Options != nil:
		return compiler.Catalog{}, fmt.Errorf("compiler %q: use either toggles or options, not both", name)
	case cc.Toggles != nil:
		toggles := make([]compiler.Toggle, 0, len(cc.Toggles))
		for _, tc := range cc.Toggles {
			kind, err := compiler.ParseToggleKind(tc.Kind)
			if err != nil {
				return compiler.Catalog{}, fmt.Errorf("compiler %q: toggle %q: %w", name, tc.Name, err)
			}
			t := compiler.Toggle{Name: tc.Name, Kind: kind, Values: tc.Values}
			for _, pc := range tc.Params {
				t.Params = append(t.Params, compiler.Param{Key: pc.Key, Values: pc.Values})
			}
			toggles = append(toggles, t)
		}
		return compiler.Catalog{Toggles: toggles}, nil
	case cc.Options != nil:
		return optionsCatalog(backend, cc.Options), nil
	default:
		return compiler.DefaultCatalog(backend), nil
	}
}

// optionsCatalog builds a catalog from an option table: a strip toggle first,
// then one pass toggle per option in name order.
func optionsCatalog(backend compiler.Backend, options map[string]map[string][]string) compiler.Catalog {
	names := make([]string, 0, len(options))
	for name := range options {
		names = append(names, name)
	}
	sort.Strings(names)

	kind := compiler.ToggleFlag
	if backend == compiler.BackendClang {
		kind = compiler.TogglePass
	}
	toggles := []compiler.Toggle{{Name: "s"}}
	for _, name := range names {
		t := compiler.Toggle{Name: name, Kind: kind}
		for key, values := range options[name] {
			t.Params = append(t.Params, compiler.Param{Key: key, Values: values})
		}
		compiler.SortParams(t.Params)
		toggles = append(toggles, t)
	}
	return compiler.Catalog{Toggles: toggles}
}
