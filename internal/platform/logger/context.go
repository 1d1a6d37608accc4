package logger

import (
	"context"
	"log/slog"
)

// ctxKey is the private context key for the request-scoped logger.
type ctxKey struct{}

// WithContext returns a child context carrying the given logger. Handlers and
// stores retrieve it with FromContext so run- and request-scoped attributes
// (run_id, request_id) follow the call chain without plumbing a logger
// parameter through every signature.
func WithContext(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

// FromContext returns the logger stored in ctx, or slog.Default() when the
// context carries none. It never returns nil.
func FromContext(ctx context.Context) *slog.Logger {
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return slog.Default()
}
