// Package logger provides structured logging for the keyword-watch process.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

// L is the global default logger; replace it with Init at startup.
var L = slog.Default()

// Init initializes the global logger with the given level and format
// ("text" or "json").
func Init(level, format string) {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	// Logs go to stderr so stdout stays free for stdio transports.
	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	L = slog.New(handler)
	slog.SetDefault(L)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
