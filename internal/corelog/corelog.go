// Package corelog builds the zerolog.Logger threaded through CoreRuntime
// and every component constructor. There is deliberately no package
// global here: each component gets its own child logger carrying a
// "component" field, the way cuemby-warren's pkg/log and
// zUZWqEHF-cocoon wire zerolog through their services, generalized from
// a global Logger var (appropriate for a CLI) to an explicit value
// passed down (appropriate for a library embedded by a daemon).
package corelog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Level mirrors the handful of levels a daemon operator configures.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config controls how New builds the root logger.
type Config struct {
	Level  Level
	JSON   bool
	Output io.Writer
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case DebugLevel:
		return zerolog.DebugLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New builds the root logger for a CoreRuntime. Every component
// constructor that logs (datamanager.New, notify.NewProcessor,
// reqproc.NewProcessor) takes a zerolog.Logger and attaches its own "component" field via
// With().Str(...).Logger(), so this is the single place level and output
// format are decided.
func New(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	var base zerolog.Logger
	if cfg.JSON {
		base = zerolog.New(out)
	} else {
		base = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	}
	return base.Level(cfg.Level.zerolog()).With().Timestamp().Logger()
}
