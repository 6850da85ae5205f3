// Package cache provides a small TTL cache for results of external lookups.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/Veraticus/hearth/internal/common"
)

// DefaultTTL is used when a cache is created with a zero TTL.
const DefaultTTL = 15 * time.Minute

type entry[V any] struct {
	expiry time.Time
	value  V
}

// TTL is a thread-safe cache whose entries expire after a fixed duration. Expiry is
// measured with the injected clock.
type TTL[K comparable, V any] struct {
	clock   common.Clock
	entries map[K]entry[V]
	stopCh  chan struct{}
	ttl     time.Duration
	mu      sync.RWMutex
	once    sync.Once
}

// Option configures a TTL cache.
type Option func(*options)

type options struct {
	clock   common.Clock
	cleanup time.Duration
}

// WithClock sets the clock used to compute expiry.
func WithClock(c common.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithCleanup starts a goroutine that evicts expired entries every interval. Call
// Close to stop it.
func WithCleanup(interval time.Duration) Option {
	return func(o *options) { o.cleanup = interval }
}

// New creates a cache with the given TTL.
func New[K comparable, V any](ttl time.Duration, opts ...Option) *TTL[K, V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	o := options{clock: common.SystemClock{}}
	for _, opt := range opts {
		opt(&o)
	}

	c := &TTL[K, V]{
		clock:   o.clock,
		entries: make(map[K]entry[V]),
		stopCh:  make(chan struct{}),
		ttl:     ttl,
	}
	if o.cleanup > 0 {
		go c.cleanupLoop(o.cleanup)
	}
	return c
}

// Get returns the cached value for key if present and not expired.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || !c.clock.Now().Before(e.expiry) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key.
func (c *TTL[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry[V]{value: value, expiry: c.clock.Now().Add(c.ttl)}
}

// GetOrLoad returns the cached value for key, calling load and caching its result on
// a miss. Errors are not cached.
func (c *TTL[K, V]) GetOrLoad(ctx context.Context, key K, load func(context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := load(ctx)
	if err != nil {
		var zero V
		return zero, err
	}
	c.Set(key, v)
	return v, nil
}

// Delete removes key.
func (c *TTL[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes all entries.
func (c *TTL[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]entry[V])
}

// Len returns the number of stored entries, including expired ones not yet evicted.
func (c *TTL[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Evict removes expired entries and returns how many were removed.
func (c *TTL[K, V]) Evict() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	removed := 0
	for key, e := range c.entries {
		if !now.Before(e.expiry) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Close stops the cleanup goroutine, if any. It is safe to call more than once.
func (c *TTL[K, V]) Close() {
	c.once.Do(func() { close(c.stopCh) })
}

func (c *TTL[K, V]) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.Evict()
		}
	}
}
