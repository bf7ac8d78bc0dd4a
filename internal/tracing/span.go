package tracing

import (
	"context"
	"net/http"
	"regexp"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// numericSegment matches record ids in API paths.
var numericSegment = regexp.MustCompile(`/[0-9]+(/|$)`)

// StartRequestSpan starts a client span for one API attempt. Record ids are
// replaced with "{id}" in the span name to keep cardinality low; the full
// path is kept as an attribute.
func StartRequestSpan(ctx context.Context, tracer trace.Tracer, method, path string, attempt int) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, method+" "+Route(path),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.path", path),
		attribute.Int("zohobooks.attempt", attempt),
	)
	return ctx, span
}

// Route replaces numeric path segments with "{id}".
func Route(path string) string {
	for numericSegment.MatchString(path) {
		path = numericSegment.ReplaceAllString(path, "/{id}$1")
	}
	return path
}

// EndSpan finishes a span, recording error status if applicable.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// InjectHTTPHeaders injects W3C trace context into HTTP headers.
func InjectHTTPHeaders(ctx context.Context, headers http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(headers))
}
