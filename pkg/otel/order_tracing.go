package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// Span names
	SpanSubmitOrder  = "submit_order"
	SpanProcessOrder = "process_order"
	SpanPublishMatch = "publish_match"

	// Attribute keys
	AttributeOrderID         = "order.id"
	AttributeOrderSide       = "order.side"
	AttributeOrderPrice      = "order.price"
	AttributeOrderAmount     = "order.amount"
	AttributeExecutedAmount  = "order.executed_amount"
	AttributeRemainingAmount = "order.remaining_amount"
	AttributeMatchCount      = "match.count"
)

// StartOrderSpan starts a new span for order processing. When tracing is
// disabled the returned span is a no-op.
func StartOrderSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := GetEngineTracer()
	if tracer == nil {
		return ctx, trace.SpanFromContext(context.Background())
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// AddAttributes adds attributes to a span
func AddAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	if span == nil {
		return
	}
	span.SetAttributes(attrs...)
}

// SetSpanStatus sets the status of a span
func SetSpanStatus(span trace.Span, code codes.Code, description string) {
	if span == nil {
		return
	}
	span.SetStatus(code, description)
}
