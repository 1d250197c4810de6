// Package logger provides the process-wide structured logger.
// Components log through Get() or a child created by With(); before Init
// runs they get a no-op logger so nothing panics in tests.
package logger

import "sync"

var (
	mu            sync.RWMutex
	defaultLogger Logger
)

// Init installs the global logger
func Init(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = NewSlogLogger(cfg)
}

// Get returns the global logger
func Get() Logger {
	mu.RLock()
	defer mu.RUnlock()

	if defaultLogger == nil {
		return NullLogger{}
	}
	return defaultLogger
}

// With creates a child logger with preset attributes
func With(args ...any) Logger {
	return Get().With(args...)
}

// NullLogger discards everything
type NullLogger struct{}

func (NullLogger) Debug(msg string, args ...any) {}
func (NullLogger) Info(msg string, args ...any)  {}
func (NullLogger) Warn(msg string, args ...any)  {}
func (NullLogger) Error(msg string, args ...any) {}
func (NullLogger) With(args ...any) Logger       { return NullLogger{} }
