package cachetrip

import (
	"context"
	"time"
)

// Options configures a Transport instance.
type Options struct {
	// TTL is the default time-to-live for cached entries. Zero
	// disables caching for requests without a per-call TTL.
	TTL time.Duration
	// Headers lists the header names that participate in key
	// derivation, in order.
	Headers []string
	// Separator overrides the key record separator. Empty means
	// DefaultSeparator.
	Separator string
	// StrictFields switches key derivation to the collision-free
	// field assembly. See KeyDeriver.StrictFields.
	StrictFields bool
}

type ttlContextKey struct{}

// WithTTL returns a context carrying a per-call TTL that overrides the
// Transport's default for requests made with that context.
func WithTTL(ctx context.Context, ttl time.Duration) context.Context {
	return context.WithValue(ctx, ttlContextKey{}, ttl)
}

// WithoutCache returns a context that disables cache reads and writes
// for requests made with that context.
func WithoutCache(ctx context.Context) context.Context {
	return WithTTL(ctx, 0)
}

// TTLFrom extracts a per-call TTL from the context, if one was set.
func TTLFrom(ctx context.Context) (time.Duration, bool) {
	ttl, ok := ctx.Value(ttlContextKey{}).(time.Duration)
	return ttl, ok
}
