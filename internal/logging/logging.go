// Package logging builds the process-wide structured logger.
package logging

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a JSON slog.Logger at the given level ("debug", "info", "warn",
// "error"; anything else means info). When file is non-empty, records are
// also written to a size-rotated file at that path.
//
// The returned closer flushes and closes the rotated file; it is a no-op when
// file is empty.
func New(level, file string) (*slog.Logger, io.Closer) {
	var w io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}
	if file != "" {
		rotator := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    10, // megabytes
			MaxBackups: 7,
			MaxAge:     7, // days
			Compress:   true,
		}
		w = io.MultiWriter(os.Stdout, rotator)
		closer = rotator
	}
	return NewWithWriter(w, level), closer
}

// NewWithWriter is New without rotation, for tests and for callers that own
// their writer.
func NewWithWriter(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
