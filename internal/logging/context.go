package logging

import "context"

// Context keys for the trace and span IDs a caller may place on a
// context.Context, so log lines from a Logger bound to that context (via
// WithContext) carry them as fields.
type contextKey string

const (
	traceIDKey contextKey = "trace_id"
	spanIDKey  contextKey = "span_id"
)

// TraceIDKey returns the context key for trace ID.
// Use this to add a trace ID to a context:
//
//	ctx := context.WithValue(ctx, logging.TraceIDKey(), "trace-123")
func TraceIDKey() interface{} {
	return traceIDKey
}

// SpanIDKey returns the context key for span ID.
// Use this to add a span ID to a context:
//
//	ctx := context.WithValue(ctx, logging.SpanIDKey(), "span-456")
func SpanIDKey() interface{} {
	return spanIDKey
}

// extractContextFields extracts trace_id and span_id from context if available,
// so a log line can be joined back to the trace/span the caller supplied.
// Returns nil if context is nil or if no trace/span IDs are found.
func extractContextFields(ctx context.Context) map[string]interface{} {
	if ctx == nil {
		return nil
	}

	fields := make(map[string]interface{})

	if traceID := ctx.Value(traceIDKey); traceID != nil {
		fields["trace_id"] = traceID
	}

	if spanID := ctx.Value(spanIDKey); spanID != nil {
		fields["span_id"] = spanID
	}

	if len(fields) == 0 {
		return nil
	}

	return fields
}
