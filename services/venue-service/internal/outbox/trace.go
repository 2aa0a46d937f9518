package outbox

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const (
	fieldTraceparent = "traceparent"
	fieldTracestate  = "tracestate"
)

// TraceFields captures the span context of a write so the publisher can
// continue the same trace when the event leaves the outbox.
func TraceFields(ctx context.Context) (traceparent, tracestate string) {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return carrier.Get(fieldTraceparent), carrier.Get(fieldTracestate)
}

// SpanContext restores the trace stored with r on top of ctx.
func (r Record) SpanContext(ctx context.Context) context.Context {
	if r.Traceparent == "" {
		return ctx
	}
	carrier := propagation.MapCarrier{fieldTraceparent: r.Traceparent}
	if r.Tracestate != "" {
		carrier.Set(fieldTracestate, r.Tracestate)
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
