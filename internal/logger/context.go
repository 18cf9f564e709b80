package logger

import "context"

type contextKey string

const (
	TraceIDKey        contextKey = "trace_id"
	ConversationIDKey contextKey = "conversation_id"
)

func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, TraceIDKey, id)
}

func GetTraceID(ctx context.Context) string {
	return stringValue(ctx, TraceIDKey)
}

func WithConversationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ConversationIDKey, id)
}

func GetConversationID(ctx context.Context) string {
	return stringValue(ctx, ConversationIDKey)
}

// Attrs returns the request-scoped key/value pairs carried by ctx, ready to
// be appended to a slog call. Empty values are omitted.
func Attrs(ctx context.Context) []any {
	var attrs []any
	for _, key := range []contextKey{TraceIDKey, ConversationIDKey} {
		if v := stringValue(ctx, key); v != "" {
			attrs = append(attrs, string(key), v)
		}
	}
	return attrs
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}
