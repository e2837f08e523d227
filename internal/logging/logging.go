// Package logging builds the slog loggers used by the elements commands.
//
// Loggers write to stderr, default to INFO, and carry module and version
// attributes. The level comes from configuration or the LOG_LEVEL
// environment variable; debug loggers record source locations.
package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
)

// EnvLevel is the environment variable consulted for the log level.
const EnvLevel = "LOG_LEVEL"

// Output formats.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Options configure a logger.
type Options struct {
	Module  string
	Version string

	// Level is a level name; empty falls back to LOG_LEVEL, then INFO.
	Level string

	// Format is FormatJSON (default) or FormatText.
	Format string

	// Writer defaults to os.Stderr.
	Writer io.Writer
}

// ParseLevel converts a level name to a slog.Level. Unknown names map to
// INFO.
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

// New builds a logger from opts.
func New(opts Options) *slog.Logger {
	level := opts.Level
	if level == "" {
		level = os.Getenv(EnvLevel)
	}
	lvl := ParseLevel(level)

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	hopts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl <= slog.LevelDebug,
	}
	var h slog.Handler
	if strings.EqualFold(opts.Format, FormatText) {
		h = slog.NewTextHandler(w, hopts)
	} else {
		h = slog.NewJSONHandler(w, hopts)
	}

	logger := slog.New(h)
	if opts.Module != "" {
		logger = logger.With(slog.String("module", opts.Module))
	}
	if opts.Version != "" {
		logger = logger.With(slog.String("version", opts.Version))
	}
	return logger
}

// NewLogLogger returns a standard library logger writing through l at
// level, for APIs such as http.Server.ErrorLog.
func NewLogLogger(l *slog.Logger, level slog.Level) *log.Logger {
	return slog.NewLogLogger(l.Handler(), level)
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
