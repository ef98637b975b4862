package requestctx

import "context"

// usernameContextKey is the context key for the authenticated operator.
type usernameContextKey struct{}

// WithUsername stores the authenticated operator's username in context.
func WithUsername(ctx context.Context, username string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, usernameContextKey{}, username)
}

// UsernameFromContext returns the username stored in context.
func UsernameFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(usernameContextKey{}).(string)
	return value
}
