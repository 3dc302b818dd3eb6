package otelx

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "messagedb-agent"

// StartPassSpan starts a span covering one processing pass over a thread.
func StartPassSpan(ctx context.Context, threadID, streamName string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "process_thread",
		trace.WithAttributes(
			attribute.String("thread.id", threadID),
			attribute.String("stream.name", streamName),
		),
	)
}

// StartLLMSpan starts a span for one model call (including retries).
func StartLLMSpan(ctx context.Context, model string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "llm_call",
		trace.WithAttributes(attribute.String("llm.model", model)),
	)
}

// StartToolSpan starts a span for one tool execution.
func StartToolSpan(ctx context.Context, callID, toolName string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "tool_execution",
		trace.WithAttributes(
			attribute.String("toolcall.id", callID),
			attribute.String("toolcall.tool", toolName),
		),
	)
}
