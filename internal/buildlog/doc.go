// Package buildlog provides the append-only audit log of a binforge run.
//
// Every compilation attempt is recorded: when it starts, whether it
// succeeded, and, on failure, the compiler's diagnostic output or the
// reason the process could not be launched. The log is for post-hoc
// auditing only; nothing reads it back to make decisions.
//
// # Usage
//
//	binforge compile --log=build.ndjson --log-level=info
//
// # Implementations
//
//   - Nop: discards everything
//   - StreamLog: immediate, mutex-guarded writes to a file or stderr
//   - MultiLog: fans events out to several logs
//
// # Levels
//
//   - LevelOff: nothing
//   - LevelError: compiler failures and process errors
//   - LevelWarn: plus skipped submissions
//   - LevelInfo: plus attempt starts, successes and batch boundaries
//   - LevelDebug: plus heartbeats and realized obfuscation draws
//
// # Context Propagation
//
//	ctx = buildlog.WithLog(ctx, l)
//	buildlog.FromContext(ctx).Emit(ev)
package buildlog
