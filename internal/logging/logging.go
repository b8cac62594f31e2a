// Package logging builds the structured loggers internal/uci.Context and
// cmd/uci hand around: a slog text handler over an arbitrary writer, a file
// variant, a discard variant for quiet mode, and the level-selection helpers
// a CLI's verbosity/quiet flags need. No log rotation, no remote shipping,
// no per-subsystem routing table — a single-process config tool doesn't
// need them.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds a text-handler slog.Logger writing to w at level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewFileLogger opens path in append mode (creating it if necessary) and
// returns a logger writing to it, plus the file so the caller can Close it.
func NewFileLogger(path string, level slog.Level) (*slog.Logger, *os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, err
	}
	return NewLogger(f, level), f, nil
}

// NewDiscardLogger returns a logger that drops everything, for tests and the
// `-q` CLI flag.
func NewDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(100)}))
}

// LevelFromString parses a config/flag string into a slog.Level, defaulting
// to Info for anything unrecognized.
func LevelFromString(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LevelFromVerbosity maps the CLI's `-q`/repeated-verbosity convention onto
// a slog.Level: quiet wins outright, otherwise more repeats means more
// detail.
func LevelFromVerbosity(verbosity int, quiet bool) slog.Level {
	if quiet {
		return slog.Level(100)
	}
	switch {
	case verbosity <= 0:
		return slog.LevelWarn
	case verbosity == 1:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
