package adapters

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

// WatermillLogger routes watermill's internal logging into zerolog so bus
// noise shows up in the same stream as everything else.
type WatermillLogger struct {
	logger zerolog.Logger
}

// NewWatermillLogger wraps a zerolog logger as a watermill.LoggerAdapter.
func NewWatermillLogger(logger zerolog.Logger) *WatermillLogger {
	return &WatermillLogger{logger: logger.With().Str("component", "bus").Logger()}
}

func (l *WatermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	l.event(l.logger.Error().Err(err), msg, fields)
}

func (l *WatermillLogger) Info(msg string, fields watermill.LogFields) {
	l.event(l.logger.Info(), msg, fields)
}

func (l *WatermillLogger) Debug(msg string, fields watermill.LogFields) {
	l.event(l.logger.Debug(), msg, fields)
}

func (l *WatermillLogger) Trace(msg string, fields watermill.LogFields) {
	l.event(l.logger.Trace(), msg, fields)
}

func (l *WatermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	ctx := l.logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &WatermillLogger{logger: ctx.Logger()}
}

func (l *WatermillLogger) event(ev *zerolog.Event, msg string, fields watermill.LogFields) {
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

var _ watermill.LoggerAdapter = (*WatermillLogger)(nil)
