package logging

import "log/slog"

// SlogAdapter - Logger поверх *slog.Logger.
type SlogAdapter struct {
	l *slog.Logger
}

// NewSlogAdapter оборачивает l, при nil - slog.Default().
func NewSlogAdapter(l *slog.Logger) *SlogAdapter {
	if l == nil {
		l = slog.Default()
	}
	return &SlogAdapter{l: l}
}

// NewNopLogger возвращает Logger, который отбрасывает все записи.
func NewNopLogger() Logger {
	return NewSlogAdapter(slog.New(slog.DiscardHandler))
}

func (a *SlogAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a *SlogAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a *SlogAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a *SlogAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }

// With возвращает логгер с дополнительными атрибутами.
func (a *SlogAdapter) With(args ...any) Logger {
	return &SlogAdapter{l: a.l.With(args...)}
}
