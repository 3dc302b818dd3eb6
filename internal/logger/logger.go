// Package logger configures the process-wide slog logger.
package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/zcox/messagedb-agent/internal/config"
)

// Setup builds the root logger from config, installs it as the slog default
// and returns it along with a Closer that flushes the async pipeline (a
// no-op in synchronous mode).
func Setup(cfg config.Logging) (*slog.Logger, Closer) {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	closer := Closer(nopCloser{})
	if cfg.Async {
		async := NewAsyncHandler(handler, 1024, 1)
		handler = async
		closer = async
	}

	log := slog.New(handler)
	slog.SetDefault(log)
	return log, closer
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
