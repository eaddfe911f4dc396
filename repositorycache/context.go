package repositorycache

import (
	"context"
)

type bypassContextKey struct{}

// WithoutCache marks ctx so that cached reads load straight from the store.
// The fresh result is not written back to the cache.
func WithoutCache(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, bypassContextKey{}, true)
}

func cacheBypassed(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	bypass, _ := ctx.Value(bypassContextKey{}).(bool)
	return bypass
}
