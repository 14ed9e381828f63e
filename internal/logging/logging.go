// Package logging installs the process-wide slog handler.
package logging

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/log"
)

// Setup builds a charmbracelet/log backed slog.Logger at the given level,
// installs it as the slog default, and returns it.
func Setup(level slog.Level, w io.Writer) *slog.Logger {
	handler := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Level:           toCharmLevel(level),
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func toCharmLevel(level slog.Level) log.Level {
	switch {
	case level <= slog.LevelDebug:
		return log.DebugLevel
	case level <= slog.LevelInfo:
		return log.InfoLevel
	case level <= slog.LevelWarn:
		return log.WarnLevel
	default:
		return log.ErrorLevel
	}
}
