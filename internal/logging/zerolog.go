package logging

import "github.com/rs/zerolog"

// EventLogger writes dispatcher diagnostics through zerolog. Key/value pairs
// become fields in the order given; a non-string key drops its pair.
type EventLogger struct {
	logger zerolog.Logger
}

// NewEventLogger wraps logger.
func NewEventLogger(logger zerolog.Logger) *EventLogger {
	return &EventLogger{logger: logger}
}

func (l *EventLogger) Debug(msg string, keysAndValues ...any) {
	withPairs(l.logger.Debug(), keysAndValues).Msg(msg)
}

func (l *EventLogger) Info(msg string, keysAndValues ...any) {
	withPairs(l.logger.Info(), keysAndValues).Msg(msg)
}

func (l *EventLogger) Error(msg string, keysAndValues ...any) {
	withPairs(l.logger.Error(), keysAndValues).Msg(msg)
}

func withPairs(ev *zerolog.Event, keysAndValues []any) *zerolog.Event {
	// disabled levels return a nil event
	if ev == nil {
		return ev
	}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		switch v := keysAndValues[i+1].(type) {
		case error:
			ev = ev.AnErr(key, v)
		default:
			ev = ev.Interface(key, v)
		}
	}
	return ev
}
