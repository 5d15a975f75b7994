// Package cache provides short-lived caching for validation reports and
// scraped articles so repeated requests do not re-hit third-party hosts.
package cache

import (
	"encoding/json"
	"sync"
	"time"
)

// Cache is the interface both backends implement
type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{})
	SetWithTTL(key string, value interface{}, ttl time.Duration)
	Delete(key string)
	Clear()
}

// DecodeInto converts a cached value into dst. Values read back from the
// Redis backend arrive as decoded JSON (maps and slices), so a typed
// round trip is needed; values from the memory backend may already be
// the concrete type, in which case the round trip still succeeds and
// keeps both backends interchangeable.
func DecodeInto(value interface{}, dst interface{}) bool {
	raw, err := json.Marshal(value)
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

// MemoryCache is the in-process backend with TTL-based expiry
type MemoryCache struct {
	mu       sync.RWMutex
	items    map[string]entry
	ttl      time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

type entry struct {
	value     interface{}
	expiresAt time.Time
}

// NewMemory creates a memory cache with the given default TTL and
// starts a background sweep of expired entries.
func NewMemory(ttl time.Duration) *MemoryCache {
	c := &MemoryCache{
		items:  make(map[string]entry),
		ttl:    ttl,
		stopCh: make(chan struct{}),
	}
	go c.sweep()
	return c
}

func (c *MemoryCache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.items[key]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

func (c *MemoryCache) Set(key string, value interface{}) {
	c.SetWithTTL(key, value, c.ttl)
}

func (c *MemoryCache) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
}

func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]entry)
}

// Close ends the background sweep goroutine. It matches the Redis
// backend's signature so callers can shut either backend down without
// knowing which one they hold.
func (c *MemoryCache) Close() error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	return nil
}

func (c *MemoryCache) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, e := range c.items {
				if now.After(e.expiresAt) {
					delete(c.items, key)
				}
			}
			c.mu.Unlock()
		case <-c.stopCh:
			return
		}
	}
}

var _ Cache = (*MemoryCache)(nil)
