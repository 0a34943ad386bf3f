package cache

import (
	"context" // Context for cache operations
	"strconv" // Flight key suffix
	"time"    // Time durations

	"golang.org/x/sync/singleflight" // Collapses concurrent misses
)

var loads singleflight.Group

// Fetch returns the value cached under prefix+name. On a miss, load runs once for
// all concurrent callers of the same key and generation, and its result is cached
// for ttl. A result loaded while DeletePrefix(prefix) ran is returned but not kept.
// A failing cache read is treated as a miss.
func Fetch[T any](ctx context.Context, c Cache, prefix, name string, ttl time.Duration, load func(ctx context.Context) (T, error)) (T, bool, error) {
	key := prefix + name
	var val T
	if found, err := c.Get(ctx, key, &val); err == nil && found {
		return val, true, nil
	}
	gen, err := c.Generation(ctx, prefix)
	if err != nil {
		// Writes cannot be detected, so serve uncached
		out, err := load(ctx)
		return out, false, err
	}
	// Callers arriving after a write start a new flight instead of joining an older one
	flight := key + "#" + strconv.FormatUint(gen, 10)
	v, err, _ := loads.Do(flight, func() (any, error) {
		out, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if unchanged(ctx, c, prefix, gen) && c.Set(ctx, key, out, ttl) == nil && !unchanged(ctx, c, prefix, gen) {
			_ = c.Delete(ctx, key) // A write landed between the check and the store
		}
		return out, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return v.(T), false, nil
}

// unchanged reports whether prefix is still at generation gen
func unchanged(ctx context.Context, c Cache, prefix string, gen uint64) bool {
	now, err := c.Generation(ctx, prefix)
	return err == nil && now == gen
}
