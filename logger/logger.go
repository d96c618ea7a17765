package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// ZeroLogger wraps zerolog.Logger to implement the Logger interface.
type ZeroLogger struct {
	zlog *zerolog.Logger
}

// Ensure ZeroLogger implements the interface
var _ Logger = (*ZeroLogger)(nil)

// New creates a new ZeroLogger instance with the specified log level and
// formatting options. If pretty is true, output is formatted for human
// readability.
func New(level string, pretty bool) *ZeroLogger {
	var out io.Writer = os.Stdout
	if pretty {
		out = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}

	l := zerolog.New(out).With().Timestamp().Logger()

	zLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		zLevel = zerolog.InfoLevel
	}
	l = l.Level(zLevel)

	return &ZeroLogger{zlog: &l}
}

// NewWithWriter creates a ZeroLogger writing to the given writer. Useful for
// capturing output in tests.
func NewWithWriter(level string, w io.Writer) *ZeroLogger {
	l := zerolog.New(w).With().Timestamp().Logger()

	zLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		zLevel = zerolog.InfoLevel
	}
	l = l.Level(zLevel)

	return &ZeroLogger{zlog: &l}
}

// WithFields returns a logger with additional fields attached to all entries.
func (l *ZeroLogger) WithFields(fields map[string]any) Logger {
	log := l.zlog.With().Fields(fields).Logger()
	return &ZeroLogger{zlog: &log}
}

// Info creates an info-level log event
func (l *ZeroLogger) Info() LogEvent {
	return &eventAdapter{event: l.zlog.Info()}
}

// Error creates an error-level log event
func (l *ZeroLogger) Error() LogEvent {
	return &eventAdapter{event: l.zlog.Error()}
}

// Debug creates a debug-level log event
func (l *ZeroLogger) Debug() LogEvent {
	return &eventAdapter{event: l.zlog.Debug()}
}

// Warn creates a warning-level log event
func (l *ZeroLogger) Warn() LogEvent {
	return &eventAdapter{event: l.zlog.Warn()}
}

// eventAdapter adapts zerolog events to the LogEvent interface
type eventAdapter struct {
	event *zerolog.Event
}

func (ea *eventAdapter) Msg(msg string) {
	ea.event.Msg(msg)
}

func (ea *eventAdapter) Msgf(format string, args ...any) {
	ea.event.Msgf(format, args...)
}

func (ea *eventAdapter) Err(err error) LogEvent {
	return &eventAdapter{event: ea.event.Err(err)}
}

func (ea *eventAdapter) Str(key, value string) LogEvent {
	return &eventAdapter{event: ea.event.Str(key, value)}
}

func (ea *eventAdapter) Int(key string, value int) LogEvent {
	return &eventAdapter{event: ea.event.Int(key, value)}
}

func (ea *eventAdapter) Int64(key string, value int64) LogEvent {
	return &eventAdapter{event: ea.event.Int64(key, value)}
}

func (ea *eventAdapter) Dur(key string, d time.Duration) LogEvent {
	return &eventAdapter{event: ea.event.Dur(key, d)}
}

func (ea *eventAdapter) Interface(key string, i any) LogEvent {
	return &eventAdapter{event: ea.event.Interface(key, i)}
}

func (ea *eventAdapter) Bytes(key string, val []byte) LogEvent {
	return &eventAdapter{event: ea.event.Bytes(key, val)}
}
