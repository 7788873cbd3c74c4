package server

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/livetree-go/livetree/pkg/server"

// startEventSpan opens a span covering one event's handler invocation,
// render, and diff. The span uses the globally configured tracer provider,
// so it is a no-op unless the host application installs one.
func startEventSpan(ctx context.Context, sessionID, handler string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "livetree.event",
		trace.WithAttributes(
			attribute.String("livetree.session_id", sessionID),
			attribute.String("livetree.handler", handler),
		))
}

// endEventSpan records the outcome and closes the span.
func endEventSpan(span trace.Span, patchCount int, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("livetree.patch_count", patchCount))
	}
	span.End()
}
