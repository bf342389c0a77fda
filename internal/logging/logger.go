// Package logging defines the structured-logging interface shared by the
// trial editor, the draft engine and the reference record store. The
// default implementation wraps log/slog.
package logging

import "context"

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key–value pairs, e.g.:
//
//	log.Warn(ctx, "unparseable date", "section", key, "field", name)
type Logger interface {
	// Debug logs low-level diagnostics (schema recoveries, cache hits).
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs an informational message.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs a recovered anomaly, e.g. malformed wire data or a failed
	// draft write that was ignored.
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs an error message for failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value pairs.
	With(args ...any) Logger
}
