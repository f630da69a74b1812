// Package log provides the shared logging infrastructure for the assistant.
//
// Loggers are injected, never global: each component receives a Logger via
// its constructor and may add context with logger.With(). The Logger type is
// an alias for *slog.Logger so components stay compatible with the slog
// ecosystem without a custom interface.
package log

import (
	"io"
	"log/slog"
	"os"
)

// Logger is an alias for *slog.Logger. Components should accept log.Logger
// as a dependency and use With() to attach component context.
type Logger = *slog.Logger

// Config defines logger configuration options.
type Config struct {
	// Level sets the minimum log level. Default: slog.LevelInfo
	Level slog.Level

	// JSON enables JSON output. Default: false (text format)
	JSON bool

	// AddSource adds source file information to log entries.
	AddSource bool
}

// New creates a logger that writes to os.Stderr.
func New(cfg Config) Logger {
	return NewWithWriter(os.Stderr, cfg)
}

// NewWithWriter creates a logger that writes to w. Useful for tests that
// want to inspect output.
func NewWithWriter(w io.Writer, cfg Config) Logger {
	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// NewNop creates a logger that discards all output. Test use only.
func NewNop() Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
