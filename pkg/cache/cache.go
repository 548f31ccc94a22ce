package cache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Service defines the fast transient-state operations backing the dedupe
// guard and small counters. Implementations must make SetIfAbsent and
// IncrementWithTTL atomic from the caller's perspective: no read-then-write
// gap is permitted.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, keys ...string) (bool, error)
	// SetIfAbsent stores value under key with a TTL only when the key does
	// not already hold a live value. Returns true when this call claimed
	// the key.
	SetIfAbsent(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
	// IncrementWithTTL atomically increments a counter, attaching the TTL
	// when the increment creates the key.
	IncrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Close() error
}
