package contextutil

import "context"

type contextKey string

const TraceIDKey contextKey = "traceID"

// TraceIDHeader carries the trace id between services and back to clients.
const TraceIDHeader = "X-Request-ID"

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

func TraceIDFromContext(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok || traceID == "" {
		return "unknown-trace-id"
	}
	return traceID
}
