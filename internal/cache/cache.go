// Package cache stores JSON-encoded API responses keyed by owner-scoped strings.
package cache

import (
	"context" // Context for cache calls
	"strconv" // Key formatting
	"time"    // TTLs
)

// Cache is a TTL key/value store for rendered responses
type Cache interface {
	// Get decodes the cached value for key into dest and reports whether it was found
	Get(ctx context.Context, key string, dest any) (bool, error)
	// Set stores value under key for ttl
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// Delete removes a single key
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every key starting with prefix and advances its generation
	DeletePrefix(ctx context.Context, prefix string) error
	// Generation counts the DeletePrefix calls seen for prefix
	Generation(ctx context.Context, prefix string) (uint64, error)
}

// UserPrefix is the key prefix for everything cached on behalf of one user.
// Any write by that user invalidates the whole prefix.
func UserPrefix(userID uint) string {
	return "recipe:user:" + strconv.FormatUint(uint64(userID), 10) + ":"
}
