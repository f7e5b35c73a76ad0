// Package logging builds the process logger from configuration.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/runnerr0/nclock/internal/config"
)

// ParseLevel maps a config level name to a slog level. Unknown names are
// an error.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
}

// New returns a logger writing to cfg.File under dir, rotated by size, or
// to stderr when no file is configured. verbose forces debug level. The
// returned closer releases the log file.
func New(cfg config.LoggingConfig, dir string, verbose bool) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.File == "" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nopCloser{}, nil
	}

	path := cfg.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	}
	return slog.New(slog.NewJSONHandler(w, opts)), w, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
