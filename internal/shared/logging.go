package shared

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// InitLogger installs the process-wide logger. Logs go to stderr so that
// command output on stdout stays machine readable.
func InitLogger(format, level string) *slog.Logger {
	return initLogger(os.Stderr, format, level)
}

func initLogger(w io.Writer, format, level string) *slog.Logger {
	var h slog.Handler
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.ToLower(format) == "text" {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}
