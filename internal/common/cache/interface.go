package cache

import (
	"context"
	"time"
)

// Cache defines the unified interface for cache operations.
// This abstraction allows switching implementations (Redis, in-memory)
// without changing business logic.
type Cache interface {
	// Get retrieves the string value for a key.
	// Returns an empty string (and no error) if the key does not exist.
	Get(ctx context.Context, key string) (string, error)

	// Set stores a value with the given TTL. A non-positive TTL means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// SetNX stores a value only if the key does not already exist.
	// Returns true if the value was set.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Del removes one or more keys.
	Del(ctx context.Context, keys ...string) error

	// Incr atomically increments the integer value of a key by one.
	Incr(ctx context.Context, key string) (int64, error)

	// Expire sets a TTL on an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Ping verifies the cache connection is alive.
	Ping(ctx context.Context) error

	// Close closes the cache connection.
	Close() error
}
