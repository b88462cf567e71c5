package authflow

import "context"

type requestIDContextKey struct{}

// WithRequestID attaches a correlation identifier to ctx. The client sends
// it as the X-Request-ID header on every dispatch made under that context,
// including the refresh-driven retry. When absent, a random UUID is
// generated per dispatch.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, id)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id
}
