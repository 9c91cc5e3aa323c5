package cache

import (
	"sync"
	"time"

	"github.com/filtrotek/storefront/internal/utils"
)

type ttlEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache is an in-process map whose entries expire after a fixed TTL.
// It is safe for concurrent use.
type TTLCache[V any] struct {
	mu    sync.RWMutex
	ttl   time.Duration
	clock utils.Clock
	items map[string]ttlEntry[V]
}

// NewTTLCache creates a cache. A nil clock uses the wall clock.
func NewTTLCache[V any](ttl time.Duration, clock utils.Clock) *TTLCache[V] {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &TTLCache[V]{
		ttl:   ttl,
		clock: clock,
		items: make(map[string]ttlEntry[V]),
	}
}

// Get returns the value if present and not expired.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	var zero V
	if !ok {
		return zero, false
	}
	if !c.clock.Now().Before(e.expiresAt) {
		c.mu.Lock()
		if cur, ok := c.items[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return zero, false
	}
	return e.value, true
}

// Set stores value under key.
func (c *TTLCache[V]) Set(key string, value V) {
	c.mu.Lock()
	c.items[key] = ttlEntry[V]{value: value, expiresAt: c.clock.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// Purge drops every entry.
func (c *TTLCache[V]) Purge() {
	c.mu.Lock()
	c.items = make(map[string]ttlEntry[V])
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired or not.
func (c *TTLCache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
