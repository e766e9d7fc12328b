/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

// Package log provides the process-wide structured logger.
// It wraps slog with a charmbracelet/log handler.
package log

import (
	"io"
	"log/slog"
	"os"
	"sync"

	charm "github.com/charmbracelet/log"
)

var (
	logger *slog.Logger
	once   sync.Once
)

// Init initializes the global logger with the specified level.
// Valid levels: "debug", "info", "warn", "error".
func Init(level string) {
	InitWriter(os.Stderr, level)
}

// InitWriter is Init with an explicit destination.
func InitWriter(w io.Writer, level string) {
	once.Do(func() {
		logger = New(w, level)
		slog.SetDefault(logger)
	})
}

// New builds a logger without touching the global one.
func New(w io.Writer, level string) *slog.Logger {
	lvl, err := charm.ParseLevel(level)
	if err != nil {
		lvl = charm.InfoLevel
	}

	opts := charm.Options{
		Level:           lvl,
		Prefix:          "hdx",
		ReportTimestamp: true,
	}
	// JSON in production, coloured text otherwise
	if os.Getenv("HDX_ENV") == "production" {
		opts.Formatter = charm.JSONFormatter
	}

	return slog.New(charm.NewWithOptions(w, opts))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return New(io.Discard, "error")
}

// L returns the global logger instance.
func L() *slog.Logger {
	// no-op once a level has been chosen
	Init("info")
	return logger
}

// Or returns l when set, otherwise the global logger.
func Or(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return L()
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	L().Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	L().Info(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	L().Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	L().Error(msg, args...)
}

// With returns a logger with the given attributes.
func With(args ...any) *slog.Logger {
	return L().With(args...)
}
