package cache

import (
	"context"       // Context for cache operations
	"encoding/json" // JSON encoding/decoding
	"fmt"           // Error wrapping
	"strings"       // Prefix matching
	"sync"          // Generation counters
	"time"          // Expiry

	lru "github.com/hashicorp/golang-lru" // LRU eviction
)

type lruEntry struct {
	data    []byte
	expires time.Time
}

// LRUCache is an in-process cache used when no Redis server is configured.
// Values are JSON encoded so callers see the same behavior as RedisCache.
type LRUCache struct {
	entries *lru.Cache
	now     func() time.Time

	mu          sync.Mutex
	generations map[string]uint64
}

// NewLRUCache creates an in-process cache holding at most size entries
func NewLRUCache(size int) (*LRUCache, error) {
	if size <= 0 {
		size = 1024
	}
	entries, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &LRUCache{entries: entries, now: time.Now, generations: map[string]uint64{}}, nil
}

func (c *LRUCache) Get(_ context.Context, key string, dest any) (bool, error) {
	v, ok := c.entries.Get(key)
	if !ok {
		return false, nil
	}
	entry := v.(lruEntry)
	if !entry.expires.IsZero() && c.now().After(entry.expires) {
		c.entries.Remove(key)
		return false, nil
	}
	return true, json.Unmarshal(entry.data, dest)
}

func (c *LRUCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	entry := lruEntry{data: b}
	if ttl > 0 {
		entry.expires = c.now().Add(ttl)
	}
	c.entries.Add(key, entry)
	return nil
}

func (c *LRUCache) Delete(_ context.Context, key string) error {
	c.entries.Remove(key)
	return nil
}

func (c *LRUCache) Generation(_ context.Context, prefix string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[prefix], nil
}

func (c *LRUCache) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	c.generations[prefix]++
	c.mu.Unlock()
	for _, k := range c.entries.Keys() {
		if key, ok := k.(string); ok && strings.HasPrefix(key, prefix) {
			c.entries.Remove(key)
		}
	}
	return nil
}
