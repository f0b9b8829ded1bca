package oteladapters

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AntonStoeckl/library-chain-mirror/mirror"
)

const (
	attrStatus           = "status"
	descriptionFailed    = "operation failed"
	descriptionCanceled  = "operation canceled"
	descriptionAbandoned = "foreign entity never appeared"
)

// TracingCollector implements mirror.TracingCollector with an OpenTelemetry tracer.
type TracingCollector struct {
	tracer trace.Tracer
}

// NewTracingCollector creates a TracingCollector. The tracer should come from the process TracerProvider.
func NewTracingCollector(tracer trace.Tracer) *TracingCollector {
	return &TracingCollector{tracer: tracer}
}

// StartSpan starts a span named name carrying attrs and returns the derived context.
func (t *TracingCollector) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, mirror.SpanContext) {
	spanCtx, span := t.tracer.Start(ctx, name, trace.WithAttributes(toAttributes(attrs)...))

	return spanCtx, &SpanContext{span: span}
}

// FinishSpan sets the final attributes and status, then ends the span.
// Span contexts not created by this collector are ignored.
func (t *TracingCollector) FinishSpan(spanCtx mirror.SpanContext, status string, attrs map[string]string) {
	otelSpanCtx, ok := spanCtx.(*SpanContext)
	if !ok {
		return
	}

	otelSpanCtx.span.SetAttributes(toAttributes(attrs)...)
	otelSpanCtx.SetStatus(status)
	otelSpanCtx.span.End()
}

// SpanContext wraps an OpenTelemetry span as a mirror.SpanContext.
type SpanContext struct {
	span trace.Span
}

// SetStatus maps the status strings used across the mirror to OpenTelemetry status codes.
// Unknown statuses are kept as a span attribute.
func (s *SpanContext) SetStatus(status string) {
	switch status {
	case "success", "ok", "created":
		s.span.SetStatus(codes.Ok, "")
	case "error", "failed":
		s.span.SetStatus(codes.Error, descriptionFailed)
	case "canceled", "cancelled":
		s.span.SetStatus(codes.Error, descriptionCanceled)
	case "abandoned":
		s.span.SetStatus(codes.Error, descriptionAbandoned)
	default:
		s.span.SetAttributes(attribute.String(attrStatus, status))
	}
}

// AddAttribute adds a string attribute to the span.
func (s *SpanContext) AddAttribute(key, value string) {
	s.span.SetAttributes(attribute.String(key, value))
}

var (
	_ mirror.TracingCollector = (*TracingCollector)(nil)
	_ mirror.SpanContext      = (*SpanContext)(nil)
)
