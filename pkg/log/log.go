// Package log configures structured logging for convergectl.
// It wraps zerolog with the small surface the CLI needs: a leveled logger
// writing to a chosen stream in JSON or console format, and a no-op logger
// for tests. Operator-facing output never goes through here; stdout belongs
// to the command contract and logs go to stderr.
package log

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// New creates a logger with the given level and format writing to w.
// Level is one of debug, info, warn, error; anything else means info.
// Format is json or console; anything else means json.
func New(level, format string, w io.Writer) zerolog.Logger {
	var output io.Writer = w
	if format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}
	}

	return zerolog.New(output).
		Level(ParseLevel(level)).
		With().Timestamp().Logger()
}

// Nop returns a logger that discards everything. Useful for tests.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

// ParseLevel converts a string level to zerolog.Level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch level {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
