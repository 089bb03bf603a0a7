package types

import "log/slog"

// slogAdapter wraps *slog.Logger to satisfy the Logger interface.
type slogAdapter struct {
	l *slog.Logger
}

// NewSlogLogger wraps a *slog.Logger in the Logger interface.
func NewSlogLogger(l *slog.Logger) Logger {
	return &slogAdapter{l: l}
}

func (a *slogAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }
func (a *slogAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }

func (a *slogAdapter) With(args ...any) Logger {
	return &slogAdapter{l: a.l.With(args...)}
}

// NopLogger is a Logger that discards everything. Useful as a default in
// constructors and in tests that don't assert on log output.
type NopLogger struct{}

func (NopLogger) Info(msg string, args ...any)  {}
func (NopLogger) Warn(msg string, args ...any)  {}
func (NopLogger) Error(msg string, args ...any) {}
func (NopLogger) Debug(msg string, args ...any) {}
func (NopLogger) With(args ...any) Logger       { return NopLogger{} }
