package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/couchcryptid/control-room/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogOutput picks where logs go. A configured LOG_FILE always wins and is
// rotated. Otherwise logs go to stderr, except when a full-screen display owns
// the terminal, in which case they are dropped.
func LogOutput(cfg *config.Config, ownsTerminal bool) io.WriteCloser {
	if cfg.LogFile != "" {
		return &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    1,
			MaxBackups: 2,
		}
	}
	if ownsTerminal {
		return nopCloser{io.Discard}
	}
	return nopCloser{os.Stderr}
}

// NewLogger builds the service logger from LOG_LEVEL and LOG_FORMAT.
func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.LogLevel)}

	var handler slog.Handler
	if strings.EqualFold(cfg.LogFormat, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler).With("service", "controlroom")
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
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

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
