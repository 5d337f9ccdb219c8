// Package cache memoizes pipeline results for the life of the process.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bluele/gcache"
)

// DefaultSize is the number of entries kept when no size is configured.
const DefaultSize = 512

// Cache is a keyed LRU of loaded values. Failed loads are not stored, so
// the next call for the same key tries again.
type Cache[V any] struct {
	name  string
	store gcache.Cache

	mu       sync.Mutex
	inflight map[string]*call[V]
}

type call[V any] struct {
	done  chan struct{}
	value V
	err   error
}

// Stats is a point-in-time view of a cache.
type Stats struct {
	Name    string   `json:"name"`
	Entries int      `json:"entries"`
	Hits    uint64   `json:"hits"`
	Misses  uint64   `json:"misses"`
	Keys    []string `json:"keys"`
}

// New creates a cache holding at most size entries (DefaultSize when size
// is zero or negative). A positive ttl expires entries; zero keeps them
// until they are evicted.
func New[V any](name string, size int, ttl time.Duration) *Cache[V] {
	if size <= 0 {
		size = DefaultSize
	}
	builder := gcache.New(size).LRU()
	if ttl > 0 {
		builder = builder.Expiration(ttl)
	}
	return &Cache[V]{
		name:     name,
		store:    builder.Build(),
		inflight: map[string]*call[V]{},
	}
}

// Get returns the cached value for key.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	v, err := c.store.Get(key)
	if err != nil {
		return zero, false
	}
	typed, ok := v.(V)
	return typed, ok
}

// GetOrLoad returns the cached value for key or runs load to produce it.
// Concurrent callers for the same key share one load, which runs under the
// context of the caller that started it. A waiter stops waiting when its own
// ctx is done, and loads again itself when the shared load failed only
// because the starting caller went away.
func (c *Cache[V]) GetOrLoad(ctx context.Context, key string, load func(context.Context) (V, error)) (V, error) {
	for {
		v, shared, err := c.getOrLoad(ctx, key, load)
		if shared && isContextErr(err) && ctx.Err() == nil {
			continue
		}
		return v, err
	}
}

func (c *Cache[V]) getOrLoad(ctx context.Context, key string, load func(context.Context) (V, error)) (value V, shared bool, err error) {
	if v, ok := c.Get(key); ok {
		return v, false, nil
	}

	c.mu.Lock()
	if v, ok := c.Get(key); ok {
		c.mu.Unlock()
		return v, false, nil
	}
	if pending, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		select {
		case <-pending.done:
			return pending.value, true, pending.err
		case <-ctx.Done():
			return value, false, ctx.Err()
		}
	}
	pending := &call[V]{done: make(chan struct{})}
	c.inflight[key] = pending
	c.mu.Unlock()

	pending.value, pending.err = load(ctx)
	if pending.err == nil {
		if err := c.store.Set(key, pending.value); err != nil {
			pending.err = fmt.Errorf("cache %s: store %q: %w", c.name, key, err)
		}
	}

	c.mu.Lock()
	delete(c.inflight, key)
	c.mu.Unlock()
	close(pending.done)

	return pending.value, false, pending.err
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Remove drops key and reports whether it was present.
func (c *Cache[V]) Remove(key string) bool {
	return c.store.Remove(key)
}

// Purge drops every entry.
func (c *Cache[V]) Purge() {
	c.store.Purge()
}

// Len returns the number of live entries.
func (c *Cache[V]) Len() int {
	return c.store.Len(true)
}

// Stats reports the cache's size and hit counters. Keys are sorted.
func (c *Cache[V]) Stats() Stats {
	keys := make([]string, 0, c.Len())
	for _, k := range c.store.Keys(true) {
		if s, ok := k.(string); ok {
			keys = append(keys, s)
		}
	}
	sort.Strings(keys)
	return Stats{
		Name:    c.name,
		Entries: len(keys),
		Hits:    c.store.HitCount(),
		Misses:  c.store.MissCount(),
		Keys:    keys,
	}
}
