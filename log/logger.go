// Package log is a thin leveled wrapper over log/slog. Every call site
// passes a module tag so output can be filtered per subsystem. The pure
// verification packages never log; only the storage boundary and tooling do.
package log

import (
	"log/slog"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	level   = new(slog.LevelVar)
	current = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
)

// SetLevel adjusts the global log level.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// SetLogger swaps the backing logger, for tests and embedders.
func SetLogger(l *slog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	current = l
}

func get() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

func Debug(module, msg string, args ...any) {
	get().Debug(msg, append([]any{"module", module}, args...)...)
}

func Info(module, msg string, args ...any) {
	get().Info(msg, append([]any{"module", module}, args...)...)
}

func Warn(module, msg string, args ...any) {
	get().Warn(msg, append([]any{"module", module}, args...)...)
}

func Error(module, msg string, args ...any) {
	get().Error(msg, append([]any{"module", module}, args...)...)
}
