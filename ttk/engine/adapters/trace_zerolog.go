package adapters

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	ports "github.com/tabletalkhq/tabletalk/ttk/engine/ports"
)

// spanLoggerKey carries the span logger through the context.
type spanLoggerKey struct{}

// ZerologTracer implements the Tracer interface using zerolog.
type ZerologTracer struct {
	logger zerolog.Logger
}

// NewZerologTracer creates a new zerolog tracer.
func NewZerologTracer(logger zerolog.Logger) *ZerologTracer {
	return &ZerologTracer{
		logger: logger,
	}
}

// StartSpan starts a tracing span and returns the context and finish function.
func (t *ZerologTracer) StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error)) {
	spanLogger := t.logger.With().Str("span", name).Logger()

	for k, v := range attrs {
		spanLogger = spanLogger.With().Interface(k, v).Logger()
	}

	// Store logger in context for use in events
	ctx = context.WithValue(ctx, spanLoggerKey{}, spanLogger)

	startTime := time.Now()
	spanLogger.Debug().Str("event", "span_start").Msg("starting span")

	finish := func(err error) {
		duration := time.Since(startTime)

		event := spanLogger.Debug()
		if err != nil {
			event = spanLogger.Error().Err(err)
		}

		event.
			Str("event", "span_end").
			Dur("duration", duration).
			Msg("ending span")
	}

	return ctx, finish
}

// Event logs a tracing event against the current span context.
func (t *ZerologTracer) Event(ctx context.Context, name string, attrs map[string]any) {
	logger, ok := ctx.Value(spanLoggerKey{}).(zerolog.Logger)
	if !ok {
		// Fallback to main logger if no span context
		logger = t.logger
	}

	event := logger.Debug()
	for k, v := range attrs {
		event = event.Interface(k, v)
	}
	event.Str("event", name).Msg("tracing event")
}

// Ensure ZerologTracer implements the Tracer interface.
var _ ports.Tracer = (*ZerologTracer)(nil)
