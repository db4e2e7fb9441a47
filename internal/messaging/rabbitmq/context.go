package rabbitmq

import "context"

type ctxKey int

const messageIDKey ctxKey = iota

// WithMessageID stamps the broker message id onto the handler context.
// The consumer does this for every delivery; tests use it directly.
func WithMessageID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, messageIDKey, id)
}

// MessageID returns the broker message id of the delivery being handled,
// or "" when the publisher did not set one.
func MessageID(ctx context.Context) string {
	if v, ok := ctx.Value(messageIDKey).(string); ok {
		return v
	}
	return ""
}
