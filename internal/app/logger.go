package app

import "github.com/charmbracelet/log"

// Logger receives structured diagnostics from the service and its adapters.
type Logger interface {
	Info(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
}

// charmLogger forwards to a charm logger, whose methods take an untyped message.
type charmLogger struct {
	logger *log.Logger
}

// Info logs at info level.
func (l charmLogger) Info(msg string, keyvals ...any) {
	l.logger.Info(msg, keyvals...)
}

// Warn logs at warn level.
func (l charmLogger) Warn(msg string, keyvals ...any) {
	l.logger.Warn(msg, keyvals...)
}

// DefaultLogger returns the process-wide charm logger.
func DefaultLogger() Logger {
	return charmLogger{logger: log.Default()}
}

// OrDefault returns logger, or DefaultLogger when logger is nil.
func OrDefault(logger Logger) Logger {
	if logger == nil {
		return DefaultLogger()
	}
	return logger
}
