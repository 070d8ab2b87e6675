package oteladapters

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AntonStoeckl/dynamic-patient-lists-go/patientlist"
)

const (
	statusAttribute     = "status"
	statusDescError     = "operation failed"
	statusDescCancelled = "operation canceled"
	statusDescTimeout   = "operation timed out"
)

// TracingCollector implements patientlist.TracingCollector with an OpenTelemetry tracer.
type TracingCollector struct {
	tracer trace.Tracer
}

// NewTracingCollector creates a collector starting spans on the given tracer.
func NewTracingCollector(tracer trace.Tracer) *TracingCollector {
	return &TracingCollector{tracer: tracer}
}

// StartSpan starts a child span of the span in ctx and returns the context carrying the new span.
func (t *TracingCollector) StartSpan(
	ctx context.Context,
	name string,
	attrs map[string]string,
) (context.Context, patientlist.SpanContext) {
	spanCtx, span := t.tracer.Start(ctx, name, trace.WithAttributes(attributes(attrs)...))

	return spanCtx, &OTelSpanContext{span: span}
}

// FinishSpan sets the final attributes and status and ends the span. Foreign SpanContext values are ignored.
func (t *TracingCollector) FinishSpan(spanCtx patientlist.SpanContext, status string, attrs map[string]string) {
	otelSpanCtx, ok := spanCtx.(*OTelSpanContext)
	if !ok {
		return
	}

	otelSpanCtx.span.SetAttributes(attributes(attrs)...)
	otelSpanCtx.SetStatus(status)
	otelSpanCtx.span.End()
}

var _ patientlist.TracingCollector = (*TracingCollector)(nil)

// OTelSpanContext wraps an OpenTelemetry span as a patientlist.SpanContext.
type OTelSpanContext struct {
	span trace.Span
}

// SetStatus maps status strings onto span status codes. Unknown strings become a status attribute.
func (s *OTelSpanContext) SetStatus(status string) {
	switch status {
	case patientlist.StatusSuccess, "ok", "completed":
		s.span.SetStatus(codes.Ok, "")
	case patientlist.StatusError, "failed", "failure":
		s.span.SetStatus(codes.Error, statusDescError)
	case "canceled", "cancelled":
		s.span.SetStatus(codes.Error, statusDescCancelled)
	case "timeout":
		s.span.SetStatus(codes.Error, statusDescTimeout)
	default:
		s.span.SetAttributes(attribute.String(statusAttribute, status))
	}
}

func (s *OTelSpanContext) AddAttribute(key, value string) {
	s.span.SetAttributes(attribute.String(key, value))
}

var _ patientlist.SpanContext = (*OTelSpanContext)(nil)
