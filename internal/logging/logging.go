// Package logging builds the process logger: JSON lines on stdout, and
// optionally a rotated file.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls logger construction
type Config struct {
	Level string
	// File enables a rotated log file next to stdout when set
	File string
	// Stdout defaults to os.Stdout
	Stdout io.Writer
}

// Logger is the process logger plus whatever sink it must close
type Logger struct {
	*slog.Logger
	file *lumberjack.Logger
}

// New creates the logger. The file directory is created when missing.
func New(cfg Config) (*Logger, error) {
	out := cfg.Stdout
	if out == nil {
		out = os.Stdout
	}

	var file *lumberjack.Logger
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, err
		}
		file = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    25,
			MaxBackups: 10,
			MaxAge:     14,
			Compress:   true,
		}
		out = io.MultiWriter(out, file)
	}

	h := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: ParseLevel(cfg.Level)})
	return &Logger{Logger: slog.New(h), file: file}, nil
}

// Close flushes and closes the log file, if any
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// ParseLevel maps a level name to a slog level, defaulting to info
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
