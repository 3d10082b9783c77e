// Package logging builds the process logger.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Options selects where and how much is logged.
type Options struct {
	// File is always written (JSON lines, appended). Empty disables it.
	File string
	// Verbose switches to debug level and adds a console writer on Console.
	Verbose bool
	Console io.Writer
}

// New returns the logger and a close function for the log file.
func New(opts Options) (zerolog.Logger, func() error, error) {
	closeFn := func() error { return nil }
	var writers []io.Writer
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return zerolog.Nop(), closeFn, err
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Nop(), closeFn, err
		}
		writers = append(writers, f)
		closeFn = f.Close
	}
	level := zerolog.InfoLevel
	if opts.Verbose {
		level = zerolog.DebugLevel
		console := opts.Console
		if console == nil {
			console = os.Stderr
		}
		writers = append(writers, zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339})
	}
	if len(writers) == 0 {
		writers = append(writers, os.Stderr)
	}
	var w io.Writer = writers[0]
	if len(writers) > 1 {
		w = zerolog.MultiLevelWriter(writers...)
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return log, closeFn, nil
}
