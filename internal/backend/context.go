package backend

import "context"

type ctxKey int

const requestIDKey ctxKey = iota

// WithRequestID makes backend calls made with ctx reuse the panel request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
