package compiler

import (
	"errors"
	"reflect"
	"testing"
)

// constRand always answers the same index, clamped to the range.
type constRand int

func (c constRand) IntN(n int) int {
	if int(c) >= n {
		return n - 1
	}
	return int(c)
}

// seqRand replays a fixed sequence of draws.
type seqRand struct {
	draws []int
	pos   int
}

func (s *seqRand) IntN(n int) int {
	v := s.draws[s.pos%len(s.draws)] % n
	s.pos++
	return v
}

func gccSpec() *Spec {
	return &Spec{Name: "gcc", Backend: BackendGCC, Binary: "g++", Catalog: DefaultCatalog(BackendGCC)}
}

func clangSpec() *Spec {
	return &Spec{Name: "clang", Backend: BackendClang, Binary: "clang++", Catalog: DefaultCatalog(BackendClang)}
}

func TestSynthesizeNormalIsPure(t *testing.T) {
	for _, spec := range []*Spec{gccSpec(), clangSpec()} {
		first, err := Synthesize(spec, "src/a.cpp", "out/a.exe", ModeNormal, constRand(1))
		if err != nil {
			t.Fatalf("%s: Synthesize: %v", spec.Name, err)
		}
		second, err := Synthesize(spec, "src/a.cpp", "out/a.exe", ModeNormal, constRand(0))
		if err != nil {
			t.Fatalf("%s: Synthesize: %v", spec.Name, err)
		}
		want := []string{spec.Binary, "src/a.cpp", "-o", "out/a.exe"}
		if !reflect.DeepEqual(first.Args, want) {
			t.Fatalf("%s: args = %q, want %q", spec.Name, first.Args, want)
		}
		if !reflect.DeepEqual(first.Args, second.Args) {
			t.Fatalf("%s: normal invocation not deterministic: %q vs %q", spec.Name, first.Args, second.Args)
		}
		if first.Fallback || len(first.Choices) != 0 {
			t.Fatalf("%s: normal invocation carries draws: %+v", spec.Name, first)
		}
	}
}

func TestSynthesizeAllExcludedUsesFallback(t *testing.T) {
	cases := []struct {
		spec *Spec
		want []string
	}{
		{gccSpec(), []string{"g++", "a.cpp", "-o", "a.exe", "-s", "-O2"}},
		{clangSpec(), []string{"clang++", "a.cpp", "-o", "a.exe", "-s", "-mllvm", "-sub", "-mllvm", "-fla", "-mllvm", "-bcf"}},
	}
	for _, tc := range cases {
		inv, err := Synthesize(tc.spec, "a.cpp", "a.exe", ModeObfuscated, constRand(0))
		if err != nil {
			t.Fatalf("%s: Synthesize: %v", tc.spec.Name, err)
		}
		if !inv.Fallback {
			t.Fatalf("%s: expected fallback", tc.spec.Name)
		}
		if !reflect.DeepEqual(inv.Args, tc.want) {
			t.Fatalf("%s: args = %q, want %q", tc.spec.Name, inv.Args, tc.want)
		}
		again, _ := Synthesize(tc.spec, "a.cpp", "a.exe", ModeObfuscated, constRand(0))
		if !reflect.DeepEqual(inv.Args, again.Args) {
			t.Fatalf("%s: fallback is not fixed", tc.spec.Name)
		}
	}
}

func TestSynthesizeConfiguredFallback(t *testing.T) {
	spec := gccSpec()
	spec.Fallback = []string{"-O1"}
	inv, err := Synthesize(spec, "a.cpp", "a.exe", ModeObfuscated, constRand(0))
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	want := []string{"g++", "a.cpp", "-o", "a.exe", "-O1"}
	if !reflect.DeepEqual(inv.Args, want) {
		t.Fatalf("args = %q, want %q", inv.Args, want)
	}
}

func TestSynthesizeAllIncluded(t *testing.T) {
	inv, err := Synthesize(clangSpec(), "a.cpp", "a.exe", ModeObfuscated, constRand(99))
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	want := []string{
		"clang++", "a.cpp", "-o", "a.exe",
		"-s",
		"-mllvm", "-sub", "-mllvm", "-sub_loop=3",
		"-mllvm", "-fla",
		"-mllvm", "-split", "-mllvm", "-split_num=5",
		"-mllvm", "-bcf", "-mllvm", "-bcf_loop=3", "-mllvm", "-bcf_prob=90",
	}
	if !reflect.DeepEqual(inv.Args, want) {
		t.Fatalf("args = %q\nwant   %q", inv.Args, want)
	}
	if inv.Fallback {
		t.Fatalf("unexpected fallback")
	}
	if len(inv.Choices) != 5 {
		t.Fatalf("choices = %d, want 5", len(inv.Choices))
	}
}

func TestSynthesizeToggleWithoutParams(t *testing.T) {
	// s: include; sub: include, params skipped; fla/split/bcf: exclude.
	rng := &seqRand{draws: []int{1, 1, 0, 0, 0, 0}}
	inv, err := Synthesize(clangSpec(), "a.cpp", "a.exe", ModeObfuscated, rng)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	want := []string{"clang++", "a.cpp", "-o", "a.exe", "-s", "-mllvm", "-sub"}
	if !reflect.DeepEqual(inv.Args, want) {
		t.Fatalf("args = %q, want %q", inv.Args, want)
	}
}

func TestSynthesizeGCCOptimizationValue(t *testing.T) {
	// s: exclude; O: include with value index 0.
	rng := &seqRand{draws: []int{0, 1, 0}}
	inv, err := Synthesize(gccSpec(), "a.cpp", "a.exe", ModeObfuscated, rng)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	want := []string{"g++", "a.cpp", "-o", "a.exe", "-O2"}
	if !reflect.DeepEqual(inv.Args, want) {
		t.Fatalf("args = %q, want %q", inv.Args, want)
	}
	if len(inv.Choices) != 1 || inv.Choices[0].Value != "2" {
		t.Fatalf("choices = %+v", inv.Choices)
	}
}

func TestSynthesizeSeededIsReproducible(t *testing.T) {
	spec := clangSpec()
	a, _ := Synthesize(spec, "a.cpp", "a.exe", ModeObfuscated, NewSeededRand(7, 1))
	b, _ := Synthesize(spec, "a.cpp", "a.exe", ModeObfuscated, NewSeededRand(7, 1))
	if !reflect.DeepEqual(a.Args, b.Args) {
		t.Fatalf("same seed produced %q and %q", a.Args, b.Args)
	}
}

func TestSetSynthesizeUnknownCompiler(t *testing.T) {
	set, err := NewSet(*gccSpec())
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	_, err = set.Synthesize("tcc", "a.cpp", "a.exe", ModeNormal, nil)
	if !errors.Is(err, ErrUnsupportedCompiler) {
		t.Fatalf("err = %v, want ErrUnsupportedCompiler", err)
	}
	if _, err := Synthesize(&Spec{Name: "x", Binary: "x"}, "a", "b", ModeNormal, nil); !errors.Is(err, ErrUnsupportedCompiler) {
		t.Fatalf("zero backend err = %v", err)
	}
}

func TestSpecValidate(t *testing.T) {
	cases := []struct {
		name string
		spec Spec
		ok   bool
	}{
		{"gcc default", *gccSpec(), true},
		{"clang default", *clangSpec(), true},
		{"missing binary", Spec{Name: "gcc", Backend: BackendGCC}, false},
		{"nested name", Spec{Name: "a/b", Backend: BackendGCC, Binary: "g++"}, false},
		{"pass on gcc", Spec{Name: "gcc", Backend: BackendGCC, Binary: "g++",
			Catalog: Catalog{Toggles: []Toggle{{Name: "fla", Kind: TogglePass}}}}, false},
		{"params on flag", Spec{Name: "clang", Backend: BackendClang, Binary: "clang++",
			Catalog: Catalog{Toggles: []Toggle{{Name: "s", Params: []Param{{Key: "k", Values: []string{"1"}}}}}}}, false},
		{"empty param domain", Spec{Name: "clang", Backend: BackendClang, Binary: "clang++",
			Catalog: Catalog{Toggles: []Toggle{{Name: "bcf", Kind: TogglePass, Params: []Param{{Key: "prob"}}}}}}, false},
		{"duplicate toggle", Spec{Name: "gcc", Backend: BackendGCC, Binary: "g++",
			Catalog: Catalog{Toggles: []Toggle{{Name: "s"}, {Name: "s"}}}}, false},
		{"empty fallback", Spec{Name: "gcc", Backend: BackendGCC, Binary: "g++", Fallback: []string{}}, false},
	}
	for _, tc := range cases {
		err := tc.spec.Validate()
		if tc.ok && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestParseModes(t *testing.T) {
	cases := []struct {
		in   string
		want []Mode
	}{
		{"both", []Mode{ModeNormal, ModeObfuscated}},
		{"", []Mode{ModeNormal, ModeObfuscated}},
		{"normal", []Mode{ModeNormal}},
		{"OBF", []Mode{ModeObfuscated}},
	}
	for _, tc := range cases {
		got, err := ParseModes(tc.in)
		if err != nil {
			t.Fatalf("ParseModes(%q): %v", tc.in, err)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("ParseModes(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
	if _, err := ParseModes("fast"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestInferBackend(t *testing.T) {
	cases := []struct {
		binary string
		want   Backend
		ok     bool
	}{
		{"clang++", BackendClang, true},
		{"/opt/ollvm/bin/clang-14", BackendClang, true},
		{"g++", BackendGCC, true},
		{"x86_64-w64-mingw32-g++", BackendGCC, true},
		{"tcc", 0, false},
	}
	for _, tc := range cases {
		got, ok := InferBackend(tc.binary)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("InferBackend(%q) = %v, %v; want %v, %v", tc.binary, got, ok, tc.want, tc.ok)
		}
	}
}
