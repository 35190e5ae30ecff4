// Package logging builds the zerolog logger shared by a process
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Options selects the log destination and verbosity
type Options struct {
	// Verbose enables debug output. Trace also dumps every display flush.
	Verbose bool
	Trace   bool
	// File redirects the log to a file, appended to
	File    string
	NoColor bool
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a logger for opts and a closer for its destination
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	var out io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}
	noColor := opts.NoColor

	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = f
		closer = f
		noColor = true
	}

	return NewWriter(out, opts.level(), noColor), closer, nil
}

// NewWriter returns a console logger writing to w at level
func NewWriter(w io.Writer, level zerolog.Level, noColor bool) zerolog.Logger {
	console := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    noColor,
		TimeFormat: time.StampMilli,
	}
	return zerolog.New(console).Level(level).With().Timestamp().Logger()
}

func (o Options) level() zerolog.Level {
	switch {
	case o.Trace:
		return zerolog.TraceLevel
	case o.Verbose:
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}
