package buildlog

import "context"

// ctxKey is the key type for storing Log in context.
type ctxKey struct{}

// FromContext extracts the Log from context.
// If not found, returns Nop.
func FromContext(ctx context.Context) Log {
	if ctx == nil {
		return Nop
	}
	if l, ok := ctx.Value(ctxKey{}).(Log); ok {
		return l
	}
	return Nop
}

// WithLog attaches a Log to context.
func WithLog(ctx context.Context, l Log) context.Context {
	if l == nil {
		l = Nop
	}
	return context.WithValue(ctx, ctxKey{}, l)
}
