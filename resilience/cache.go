// Package resilience holds the primitives pipeline stages lean on when
// talking to unreliable providers: a TTL result cache, retry with
// exponential backoff, and an ordered provider cascade.
package resilience

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Cache memoizes expensive idempotent calls. A miss is ordinary control
// flow: implementations never return an error from Get.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Put(ctx context.Context, key string, value []byte)
}

// Clock returns the current time; tests swap it for a fake
type Clock func() time.Time

type cacheEntry struct {
	value      []byte
	insertedAt time.Time
}

// MemoryCache is a process-local Cache with lazy expiry. Entries older than
// the TTL are treated as absent and simply overwritten by the next Put.
type MemoryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     Clock
	entries map[string]cacheEntry
}

// NewMemoryCache constructs an empty cache. A nil clock uses time.Now.
func NewMemoryCache(ttl time.Duration, now Clock) *MemoryCache {
	if now == nil {
		now = time.Now
	}
	return &MemoryCache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the cached value only while now - insertedAt < ttl
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.insertedAt) >= c.ttl {
		return nil, false
	}
	return append([]byte(nil), entry.value...), true
}

// Put stores value under key, replacing any previous entry
func (c *MemoryCache) Put(_ context.Context, key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{
		value:      append([]byte(nil), value...),
		insertedAt: c.now(),
	}
}

// Len reports the number of stored entries, expired ones included
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// GetOrCompute returns the cached value for key or calls compute, storing a
// successful result. Values are JSON encoded; undecodable entries count as a
// miss. The bool result reports a cache hit.
func GetOrCompute[T any](ctx context.Context, cache Cache, key string, compute func(context.Context) (T, error)) (T, bool, error) {
	if cache != nil {
		if raw, ok := cache.Get(ctx, key); ok {
			var cached T
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, true, nil
			}
		}
	}

	value, err := compute(ctx)
	if err != nil {
		return value, false, err
	}

	if cache != nil {
		if raw, err := json.Marshal(value); err == nil {
			cache.Put(ctx, key, raw)
		}
	}
	return value, false, nil
}
