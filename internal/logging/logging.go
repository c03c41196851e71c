// Package logging builds the application logger: a rotating log file,
// optionally mirrored to stderr.
package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"racecalc/internal/config"
)

// Logger owns the rotating file behind a *log.Logger
type Logger struct {
	*log.Logger
	file *lumberjack.Logger
}

// New opens the log described by cfg. Logs go to ~/.racecalc/racecalc.log
// unless cfg.File is set; Verbose also writes to stderr.
func New(cfg config.LogConfig) (*Logger, error) {
	path := cfg.File
	if path == "" {
		dir, err := config.GetConfigDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "racecalc.log")
	}
	return newLogger(cfg, path, os.Stderr)
}

func newLogger(cfg config.LogConfig, path string, stderr io.Writer) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}

	var out io.Writer = file
	if cfg.Verbose {
		out = io.MultiWriter(file, stderr)
	}
	return &Logger{
		Logger: log.New(out, "racecalc ", log.LstdFlags|log.Lmsgprefix),
		file:   file,
	}, nil
}

// Close flushes and closes the log file
func (l *Logger) Close() error {
	return l.file.Close()
}

// Discard returns a logger that writes nowhere, for tests
func Discard() *log.Logger {
	return log.New(io.Discard, "", 0)
}
