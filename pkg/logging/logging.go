// Package logging installs the default slog logger for the binaries.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var logLevelMapping = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Level reads LOG_LEVEL, falling back to info.
func Level() slog.Level {
	logLevel, ok := logLevelMapping[strings.ToLower(os.Getenv("LOG_LEVEL"))]
	if !ok {
		return slog.LevelInfo
	}
	return logLevel
}

// NewHandler builds a "json" or text handler writing to w.
func NewHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// Init replaces the default logger, writing to stderr.
func Init(format string) {
	slog.SetDefault(slog.New(NewHandler(os.Stderr, format, Level())))
}
