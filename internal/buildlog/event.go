package buildlog

import (
	"sync/atomic"
	"time"
)

// Kind is the type of a log event.
type Kind uint8

const (
	KindBatchBegin Kind = iota + 1
	KindBatchEnd
	KindAttempt
	KindSuccess
	KindCompilerFailure
	KindProcessError
	KindSkipped
	KindPack
	KindDedup
	KindIngest
	KindHeartbeat
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindBatchBegin:
		return "batch-begin"
	case KindBatchEnd:
		return "batch-end"
	case KindAttempt:
		return "attempt"
	case KindSuccess:
		return "success"
	case KindCompilerFailure:
		return "compiler-failure"
	case KindProcessError:
		return "process-error"
	case KindSkipped:
		return "skipped"
	case KindPack:
		return "pack"
	case KindDedup:
		return "dedup"
	case KindIngest:
		return "ingest"
	case KindHeartbeat:
		return "heartbeat"
	default:
		return "unknown"
	}
}

// Severity returns the least verbose level at which kind is emitted.
func (k Kind) Severity() Level {
	switch k {
	case KindCompilerFailure, KindProcessError:
		return LevelError
	case KindSkipped:
		return LevelWarn
	case KindHeartbeat:
		return LevelDebug
	default:
		return LevelInfo
	}
}

// Event is a single log record.
type Event struct {
	Time   time.Time         // wall-clock timestamp
	Seq    uint64            // global sequence number (monotonic)
	Kind   Kind              // event kind
	Run    string            // batch run ID
	Name   string            // subject, usually a source or binary path
	Detail string            // optional message, e.g. captured stderr
	Extra  map[string]string // extensible key-value pairs
}

var globalSeq uint64

// NextSeq returns a monotonically increasing sequence number.
func NextSeq() uint64 {
	return atomic.AddUint64(&globalSeq, 1)
}

// Emit builds an event stamped with the current time and sends it to l.
// kv is a flat list of key/value pairs; a trailing odd key is dropped.
func Emit(l Log, kind Kind, run, name, detail string, kv ...string) {
	if l == nil || !l.Enabled() || !l.Level().ShouldEmit(kind) {
		return
	}
	ev := &Event{
		Time:   time.Now(),
		Kind:   kind,
		Run:    run,
		Name:   name,
		Detail: detail,
	}
	if len(kv) >= 2 {
		ev.Extra = make(map[string]string, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			ev.Extra[kv[i]] = kv[i+1]
		}
	}
	l.Emit(ev)
}
