// Copyright 2025 Certen Protocol
//
// Process-wide structured logging, built on log/slog the way the teacher's
// lite-client logger (accumulate-lite-client-2/liteclient/logging/logger.go)
// wraps slog: one default logger, level parsed from config, component loggers
// derived via With().

package logging

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu      sync.RWMutex
	current = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
)

// Init (re)configures the process-wide default logger from a level string
// ("debug", "info", "warn", "error"). Unknown levels fall back to info.
func Init(level string) {
	mu.Lock()
	defer mu.Unlock()
	current = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(level)}))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Default returns the process-wide logger.
func Default() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Component returns a logger scoped to the named component.
func Component(name string) *slog.Logger {
	return Default().With(slog.String("component", name))
}
