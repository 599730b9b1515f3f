/*
recorder.go - Narrow observability sink for the order/stock core

PURPOSE:
  The core reports terminal failures and deferred-commit outcomes through
  this one interface instead of logging directly. Handlers and the commit
  runner stay testable (tests plug in a spy), and the logging library is
  an implementation detail confined to this package.

IMPLEMENTATIONS:
  ZerologRecorder: production sink backed by rs/zerolog
  NopRecorder:     discards everything (default when none is wired)
*/
package observe

import "github.com/rs/zerolog"

// Level classifies a recorded event.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Fields carries structured context alongside a message.
type Fields map[string]any

// Recorder is the outbound observability contract of the core.
// Implementations must be safe for concurrent use.
type Recorder interface {
	Record(level Level, message string, fields Fields)
}

// =============================================================================
// ZEROLOG RECORDER
// =============================================================================

// ZerologRecorder writes records through a zerolog.Logger.
type ZerologRecorder struct {
	Logger zerolog.Logger
}

func NewZerologRecorder(logger zerolog.Logger) *ZerologRecorder {
	return &ZerologRecorder{Logger: logger}
}

func (r *ZerologRecorder) Record(level Level, message string, fields Fields) {
	var event *zerolog.Event
	switch level {
	case LevelError:
		event = r.Logger.Error()
	case LevelWarn:
		event = r.Logger.Warn()
	default:
		event = r.Logger.Info()
	}
	if len(fields) > 0 {
		event = event.Fields(map[string]any(fields))
	}
	event.Msg(message)
}

// =============================================================================
// NOP RECORDER
// =============================================================================

// NopRecorder discards all records.
type NopRecorder struct{}

func (NopRecorder) Record(Level, string, Fields) {}
