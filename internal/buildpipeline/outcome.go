package buildpipeline

import (
	"time"

	"binforge/internal/compiler"
	"binforge/internal/corpus"
)

// Task is one (source unit, compiler, mode) unit of compilation work.
type Task struct {
	Unit     corpus.SourceUnit
	Compiler string
	Mode     compiler.Mode
}

// OutcomeKind classifies how a task ended.
type OutcomeKind uint8

const (
	// OutcomeSuccess: the compiler exited with status zero.
	OutcomeSuccess OutcomeKind = iota + 1
	// OutcomeCompilerFailure: the compiler ran and exited non-zero.
	OutcomeCompilerFailure
	// OutcomeProcessError: the compiler could not be launched or awaited.
	OutcomeProcessError
	// OutcomeFilesystemError: the output directory could not be created.
	OutcomeFilesystemError
	// OutcomeCancelled: the batch was interrupted before the task finished.
	OutcomeCancelled
)

// String returns the string representation of OutcomeKind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeCompilerFailure:
		return "compiler-failure"
	case OutcomeProcessError:
		return "process-error"
	case OutcomeFilesystemError:
		return "filesystem-error"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// OK reports whether the outcome is a success.
func (k OutcomeKind) OK() bool { return k == OutcomeSuccess }

// Outcome is the terminal record of one task. It is never mutated after the
// worker returns it.
type Outcome struct {
	Task       Task
	Kind       OutcomeKind
	Output     string
	Invocation compiler.Invocation
	ExitCode   int
	Stderr     string
	Err        error
	Elapsed    time.Duration
}
