package relational

import "log/slog"

// Logger receives the warnings and diagnostics of a build.
// *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NopLogger returns a logger that discards everything.
func NopLogger() Logger {
	return slog.New(slog.DiscardHandler)
}
