// Package kv defines the key/value capability shared by the rate limiter, the
// circuit breaker and the result cache, plus an in-process implementation.
package kv

import (
	"context"
	"time"
)

// Store is a TTL-aware key/value store with an atomic counter primitive.
// A ttl of zero means the entry never expires.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Increment adds one to the counter at key and returns the new value.
	// The ttl is applied only when the key is created.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}
