package composite

import (
	"log/slog"
	"sync/atomic"
)

var defaultLogger atomic.Pointer[slog.Logger]

func init() {
	defaultLogger.Store(slog.New(slog.DiscardHandler))
}

// SetLogger replaces the package logger. A nil logger discards output.
func SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	defaultLogger.Store(logger)
}

// Logger returns the package logger.
func Logger() *slog.Logger {
	return defaultLogger.Load()
}
