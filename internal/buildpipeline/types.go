package buildpipeline

import (
	"time"

	"binforge/internal/compiler"
)

// State is a worker's position in the life of one task.
type State string

const (
	// StateQueued means the task waits for a gate slot.
	StateQueued State = "queued"
	// StateAdmitted means a slot is held and the invocation is being built.
	StateAdmitted State = "admitted"
	// StateInvoking means the external compiler is running.
	StateInvoking State = "invoking"
	// StateCompleted is terminal; the Outcome says how it ended.
	StateCompleted State = "completed"
)

// Status captures progress state for display.
type Status string

const (
	// StatusQueued indicates the task is waiting to start.
	StatusQueued Status = "queued"
	// StatusWorking indicates the task is currently working.
	StatusWorking Status = "working"
	// StatusDone indicates the task is done.
	StatusDone Status = "done"
	// StatusError indicates the task encountered an error.
	StatusError Status = "error"
)

// Event reports progress for one task, or for the whole batch when File is empty.
type Event struct {
	Run      string
	File     string
	Compiler string
	Mode     compiler.Mode
	State    State
	Status   Status
	Outcome  OutcomeKind
	Err      error
	Elapsed  time.Duration
	Done     int
	Total    int
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}
