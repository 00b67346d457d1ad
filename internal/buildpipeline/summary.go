package buildpipeline

import (
	"sort"

	"binforge/internal/compiler"
)

// Counts aggregates outcomes.
type Counts struct {
	Attempted        int
	Succeeded        int
	CompilerFailures int
	ProcessErrors    int
	FilesystemErrors int
	Cancelled        int
}

// Failed returns every attempted task that did not succeed.
func (c Counts) Failed() int { return c.Attempted - c.Succeeded }

func (c *Counts) add(kind OutcomeKind) {
	c.Attempted++
	switch kind {
	case OutcomeSuccess:
		c.Succeeded++
	case OutcomeCompilerFailure:
		c.CompilerFailures++
	case OutcomeProcessError:
		c.ProcessErrors++
	case OutcomeFilesystemError:
		c.FilesystemErrors++
	case OutcomeCancelled:
		c.Cancelled++
	}
}

// Summary is the per-batch report: totals, per-compiler counts and the
// number of sources that never became tasks.
type Summary struct {
	Mode        compiler.Mode
	Total       Counts
	PerCompiler map[string]*Counts
	Skipped     int
}

func newSummary(mode compiler.Mode, compilers []string) Summary {
	s := Summary{Mode: mode, PerCompiler: make(map[string]*Counts, len(compilers))}
	for _, name := range compilers {
		s.PerCompiler[name] = &Counts{}
	}
	return s
}

// Add folds one outcome into the summary.
func (s *Summary) Add(o Outcome) {
	s.Total.add(o.Kind)
	if s.PerCompiler == nil {
		s.PerCompiler = make(map[string]*Counts)
	}
	c, ok := s.PerCompiler[o.Task.Compiler]
	if !ok {
		c = &Counts{}
		s.PerCompiler[o.Task.Compiler] = c
	}
	c.add(o.Kind)
}

// Compilers returns the compiler names in sorted order.
func (s Summary) Compilers() []string {
	names := make([]string, 0, len(s.PerCompiler))
	for name := range s.PerCompiler {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
