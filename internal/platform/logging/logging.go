// Package logging builds the process-wide zerolog logger.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where log lines go.
type Options struct {
	// Console switches stdout to zerolog's human-readable writer.
	Console bool

	// File, when set, receives JSON lines rotated by size and age.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New returns a timestamped logger writing to stdout and, if configured, a
// rotating file. The returned closer flushes and closes the file.
func New(opts Options) (zerolog.Logger, io.Closer) {
	var stdout io.Writer = os.Stdout
	if opts.Console {
		stdout = zerolog.ConsoleWriter{Out: os.Stdout}
	}

	if opts.File == "" {
		return zerolog.New(stdout).With().Timestamp().Logger(), nopCloser{}
	}

	file := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		LocalTime:  true,
		Compress:   true,
	}
	w := zerolog.MultiLevelWriter(stdout, file)
	return zerolog.New(w).With().Timestamp().Logger(), file
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
