package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

func Setup(w io.Writer, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler)
}

// SetupDefault installs the JSON logger globally. A nil writer means stdout.
func SetupDefault(w io.Writer, level string) {
	if w == nil {
		w = os.Stdout
	}
	slog.SetDefault(Setup(w, level))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
