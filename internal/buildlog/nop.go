package buildlog

// nopLog is a no-op implementation for when logging is disabled.
type nopLog struct{}

func (nopLog) Emit(*Event)   {}
func (nopLog) Flush() error  { return nil }
func (nopLog) Close() error  { return nil }
func (nopLog) Level() Level  { return LevelOff }
func (nopLog) Enabled() bool { return false }

// Nop is the package-level singleton nop log.
var Nop Log = nopLog{}
