package fluxion

import (
	"log/slog"
	"sync/atomic"
)

// loggerPtr holds the package logger. Swappable at runtime via SetLogger.
var loggerPtr atomic.Pointer[slog.Logger]

// SetLogger replaces the logger used for panic reports and misuse warnings.
// Passing nil restores the default logger.
func SetLogger(l *slog.Logger) {
	if l == nil {
		loggerPtr.Store(nil)
		return
	}
	loggerPtr.Store(l)
}

func logger() *slog.Logger {
	if l := loggerPtr.Load(); l != nil {
		return l
	}
	return slog.Default().With("component", "fluxion")
}
