package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names the tracer used by application services
const TracerName = "artisanmarket"

// StartServiceSpan starts an internal span named {service}.{method}. The
// caller must End it.
//
//	ctx, span := telemetry.StartServiceSpan(ctx, "checkout", "place_order",
//	    attribute.String(telemetry.SpanAttrCustomerID, id.String()))
//	defer span.End()
func StartServiceSpan(ctx context.Context, service, method string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx,
		fmt.Sprintf("%s.%s", service, method),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// RecordError marks the span failed
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// TraceID returns the current trace ID, or "" outside a sampled span
func TraceID(ctx context.Context) string {
	traceID := trace.SpanFromContext(ctx).SpanContext().TraceID()
	if !traceID.IsValid() {
		return ""
	}
	return traceID.String()
}

// Span attribute keys used by application services
const (
	SpanAttrOrderID     = "order.id"
	SpanAttrOrderNumber = "order.number"
	SpanAttrCustomerID  = "customer.id"
	SpanAttrVendorID    = "vendor.id"
	SpanAttrItemCount   = "order.item_count"
	SpanAttrPayment     = "payment.method"
)
