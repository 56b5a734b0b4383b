// Package cache holds short-lived lookup results (price maps, currency
// rate tables, resolved wishlist items) with absolute expiration.
package cache

import (
	"sync"
	"time"
)

// DefaultTTL applies to every category the engine caches.
const DefaultTTL = 24 * time.Hour

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// LookupHook observes every Get. It must not call back into the cache.
type LookupHook func(c Category, hit bool)

// Cache is safe for concurrent use. Entries expire lazily: an expired entry
// behaves as a miss and is dropped on the read that finds it.
type Cache[V any] struct {
	mu    sync.RWMutex
	items map[Key]entry[V]

	now    func() time.Time
	onLook LookupHook
}

type Option func(*options)

type options struct {
	now    func() time.Time
	onLook LookupHook
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithLookupHook(h LookupHook) Option {
	return func(o *options) { o.onLook = h }
}

func New[V any](opts ...Option) *Cache[V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[V]{
		items:  make(map[Key]entry[V]),
		now:    o.now,
		onLook: o.onLook,
	}
}

func (c *Cache[V]) Get(k Key) (V, bool) {
	now := c.now()

	c.mu.RLock()
	e, ok := c.items[k]
	c.mu.RUnlock()

	if ok && !now.Before(e.expiresAt) {
		c.mu.Lock()
		// Re-check: a concurrent Set may have refreshed the entry.
		if cur, still := c.items[k]; still && !now.Before(cur.expiresAt) {
			delete(c.items, k)
		}
		c.mu.Unlock()
		ok = false
	}

	if c.onLook != nil {
		c.onLook(k.Category(), ok)
	}
	if !ok {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores v until now+ttl. A non-positive ttl falls back to DefaultTTL.
func (c *Cache[V]) Set(k Key, v V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	exp := c.now().Add(ttl)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[k] = entry[V]{value: v, expiresAt: exp}
}

func (c *Cache[V]) Delete(k Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, k)
}

// Clear drops every entry.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[Key]entry[V])
}

// Len counts stored entries, including expired ones not yet read.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
