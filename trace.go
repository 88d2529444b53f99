package loom

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/loomkit/loom"

func tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// startRenderSpan opens a span for one render call. The returned finish
// function records the outcome and ends the span.
func startRenderSpan(ctx context.Context, template string) (context.Context, func(error)) {
	return startSpan(ctx, "loom.render", template)
}

// startResolveSpan opens a span for one inheritance chain walk.
func startResolveSpan(ctx context.Context, template string) (context.Context, func(error)) {
	return startSpan(ctx, "loom.resolve", template)
}

func startSpan(ctx context.Context, name, template string) (context.Context, func(error)) {
	ctx, span := tracer().Start(ctx, name,
		trace.WithAttributes(attribute.String("loom.template", template)))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}
