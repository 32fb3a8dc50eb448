// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package logging provides the structured logger used across the router
// core. The shape of this API (Logger.{Info,Warn,Error,Debug} taking a
// message plus key/value pairs, logging.New(logging.Config{...})) is
// reconstructed from its call sites elsewhere in the original codebase,
// whose own source was not part of this retrieval; see DESIGN.md.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Level mirrors the verbosity levels the router core checks against
// GlobalParams::verbose_mode in the original simulator.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config controls logger construction.
type Config struct {
	Level  Level
	Output io.Writer
	JSON   bool
}

// DefaultConfig returns the logger configuration used when none is given.
func DefaultConfig() Config {
	return Config{Level: LevelInfo, Output: os.Stderr}
}

// Logger is a thin, leveled wrapper over log/slog used uniformly by the
// router core and its supporting infrastructure.
type Logger struct {
	inner *slog.Logger
	level Level
}

// New builds a Logger from cfg.
func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level.slogLevel()}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return &Logger{inner: slog.New(handler), level: cfg.Level}
}

// With returns a Logger that always includes the given key/value pairs.
func (l *Logger) With(kv ...any) *Logger {
	return &Logger{inner: l.inner.With(kv...), level: l.level}
}

// Debug logs a debug-level message, visible only in verbose mode.
func (l *Logger) Debug(msg string, kv ...any) { l.inner.Debug(msg, kv...) }

// Info logs an info-level message.
func (l *Logger) Info(msg string, kv ...any) { l.inner.Info(msg, kv...) }

// Warn logs a warning, e.g. a deadlock-watchdog advisory.
func (l *Logger) Warn(msg string, kv ...any) { l.inner.Warn(msg, kv...) }

// Error logs an error.
func (l *Logger) Error(msg string, kv ...any) { l.inner.Error(msg, kv...) }

// Enabled reports whether messages at lvl would actually be emitted,
// letting callers skip building an expensive per-cycle trace string.
func (l *Logger) Enabled(lvl Level) bool {
	return lvl >= l.level
}
