// Package cache provides pluggable backends for HTTP response caching.
//
// The API clients store fetched metadata through the Cache interface so
// that repeated catalog refreshes within the freshness window skip the
// network entirely. Backends include a file-based cache for CLI usage,
// a Redis-backed cache for shared environments, and a null cache that
// disables caching altogether.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned when an item is not found in cache.
var ErrCacheMiss = errors.New("cache miss")

// Cache stores opaque byte values under string keys with an optional TTL.
// Implementations must treat expired entries as misses.
type Cache interface {
	// Get retrieves a value. The second return value reports whether the
	// key was present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A ttl of zero means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the backend.
	Close() error
}
