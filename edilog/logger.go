// Package edilog provides the structured logging interface shared by
// edipipe's packages.
//
// The interface is minimal yet compatible with popular logging
// libraries including log/slog and zap. It uses variadic key-value
// pairs for structured attributes, following the same convention as
// log/slog.
//
//	logger.Debug("message dequeued", "index", 42, "queue_depth", 3)
//
// # Usage with log/slog
//
//	handler := slog.NewJSONHandler(os.Stdout, nil)
//	logger := edilog.NewSlogAdapter(slog.New(handler))
//
// # Usage with zap
//
//	zl, _ := zap.NewProduction()
//	logger := edilog.NewZapAdapter(zl.Sugar())
package edilog

import "log/slog"

// Logger is implemented by every logging backend edipipe's packages
// accept through a functional option.
type Logger interface {
	Debug(msg string, attrs ...any)
	Info(msg string, attrs ...any)
	Warn(msg string, attrs ...any)
	Error(msg string, attrs ...any)

	// With returns a new Logger with the given attributes prepended
	// to every subsequent log call.
	With(attrs ...any) Logger
}

// NopLogger discards everything logged to it. It is the default
// logger used when no logger is configured.
type NopLogger struct{}

func (NopLogger) Debug(_ string, _ ...any) {}
func (NopLogger) Info(_ string, _ ...any)  {}
func (NopLogger) Warn(_ string, _ ...any)  {}
func (NopLogger) Error(_ string, _ ...any) {}
func (n NopLogger) With(_ ...any) Logger   { return n }

var _ Logger = NopLogger{}

// SlogAdapter wraps a *slog.Logger to implement Logger.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a SlogAdapter. A nil logger falls back to slog.Default().
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAdapter{logger: logger}
}

func (s *SlogAdapter) Debug(msg string, attrs ...any) { s.logger.Debug(msg, attrs...) }
func (s *SlogAdapter) Info(msg string, attrs ...any)  { s.logger.Info(msg, attrs...) }
func (s *SlogAdapter) Warn(msg string, attrs ...any)  { s.logger.Warn(msg, attrs...) }
func (s *SlogAdapter) Error(msg string, attrs ...any) { s.logger.Error(msg, attrs...) }
func (s *SlogAdapter) With(attrs ...any) Logger {
	return &SlogAdapter{logger: s.logger.With(attrs...)}
}

var _ Logger = (*SlogAdapter)(nil)
