// Package logging configures the process-wide slog logger.
//
// Logs go to stderr unless a file is configured, in which case lumberjack
// rotates it. Every record carries the front end that produced it ("cli" or
// "mcp") so a shared log file can be split afterwards.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds logging configuration.
type Config struct {
	Level      string // debug, info, warn (or warning), error
	Format     string // text or json
	Mode       string // front end name added to every record; empty to omit
	FilePath   string // empty logs to stderr
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool // gzip rotated files
}

// Setup installs the default slog logger for cfg and returns a function that
// closes the log file, if any.
func Setup(cfg Config) (func() error, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	w, cleanup, err := openWriter(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	slog.SetDefault(slog.New(newHandler(w, cfg.Format, cfg.Mode, level)))
	return cleanup, nil
}

// NewHandler returns the handler Setup would install, writing to w.
// An unknown level falls back to warn.
func NewHandler(w io.Writer, cfg Config) slog.Handler {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		level = slog.LevelWarn
	}
	return newHandler(w, cfg.Format, cfg.Mode, level)
}

func newHandler(w io.Writer, format, mode string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	if mode != "" {
		h = h.WithAttrs([]slog.Attr{slog.String("mode", mode)})
	}
	return h
}

func openWriter(cfg Config) (io.Writer, func() error, error) {
	if cfg.FilePath == "" {
		return os.Stderr, func() error { return nil }, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
		return nil, nil, err
	}
	lj := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
		LocalTime:  true,
	}
	return lj, lj.Close, nil
}

// ParseLevel maps a level name to a slog level. Empty means warn.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelWarn, fmt.Errorf("unknown log level %q (want debug, info, warn or error)", s)
	}
}
