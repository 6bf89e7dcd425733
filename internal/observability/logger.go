package observability

import (
	"io"
	"log/slog"
	"os"

	"github.com/couchcryptid/storm-overlay-engine/internal/config"
)

// NewLogger builds the process logger from config, writing to stderr.
func NewLogger(cfg *config.Config) *slog.Logger {
	return NewLoggerTo(cfg, os.Stderr)
}

// NewLoggerTo builds a logger writing to w. Full-screen terminal frontends
// pass a log file here so output does not tear the display.
func NewLoggerTo(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}

	var handler slog.Handler
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

func parseLevel(s string) slog.Level {
	switch s {
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
