// Package cache provides the in-memory TTL response cache shared by every
// network-facing lookup.
//
// Entries expire lazily: a reader treats an entry as absent once
// now - insertedAt >= ttl, even while it is still physically stored.
// Locking is per entry, so lookups for unrelated keys never block each other.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/anisan-cli/anistream/metrics"
	"github.com/samber/mo"
	"golang.org/x/sync/singleflight"
)

// Entry is a cached value together with the moment it was inserted.
type Entry[T any] struct {
	Value      T
	InsertedAt time.Time
	TTL        time.Duration
}

// Fresh reports whether the entry is still visible at now.
func (e Entry[T]) Fresh(now time.Time) bool {
	return e.TTL > 0 && now.Sub(e.InsertedAt) < e.TTL
}

type slot[T any] struct {
	mu    sync.RWMutex
	entry Entry[T]
}

// Cache is a generic TTL key/value cache. The zero value is not usable; call New.
type Cache[T any] struct {
	mu    sync.Mutex
	slots map[string]*slot[T]
	group singleflight.Group
	now   func() time.Time
	name  string
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	now  func() time.Time
	name string
}

// WithClock replaces time.Now, letting tests advance time deterministically.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithName labels the cache in hit/miss metrics.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// New creates an empty cache.
func New[T any](opts ...Option) *Cache[T] {
	o := options{now: time.Now, name: "default"}
	for _, opt := range opts {
		opt(&o)
	}

	return &Cache[T]{
		slots: make(map[string]*slot[T]),
		now:   o.now,
		name:  o.name,
	}
}

func (c *Cache[T]) lookup(key string) *slot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slots[key]
}

func (c *Cache[T]) acquire(key string) *slot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.slots[key]
	if !ok {
		s = &slot[T]{}
		c.slots[key] = s
	}
	return s
}

// Get returns the value stored under key if it has not expired.
func (c *Cache[T]) Get(key string) (T, bool) {
	var zero T

	s := c.lookup(key)
	if s == nil {
		metrics.RecordCacheLookup(c.name, false)
		return zero, false
	}

	s.mu.RLock()
	entry := s.entry
	s.mu.RUnlock()

	if !entry.Fresh(c.now()) {
		metrics.RecordCacheLookup(c.name, false)
		return zero, false
	}

	metrics.RecordCacheLookup(c.name, true)
	return entry.Value, true
}

// GetOption is Get expressed as an Option.
func (c *Cache[T]) GetOption(key string) mo.Option[T] {
	if value, ok := c.Get(key); ok {
		return mo.Some(value)
	}
	return mo.None[T]()
}

// Set stores value under key for ttl. A non-positive ttl removes the key.
func (c *Cache[T]) Set(key string, value T, ttl time.Duration) {
	if ttl <= 0 {
		c.Delete(key)
		return
	}

	s := c.acquire(key)
	s.mu.Lock()
	s.entry = Entry[T]{Value: value, InsertedAt: c.now(), TTL: ttl}
	s.mu.Unlock()
}

// GetOrLoad returns the cached value for key or calls load once, even when
// many goroutines miss the same key concurrently. Errors are not cached.
//
// load runs detached from any single caller's cancellation, so a caller that
// gives up does not fail the others waiting on the same key. Each caller
// still returns as soon as its own ctx is done.
func (c *Cache[T]) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var zero T

	if value, ok := c.Get(key); ok {
		return value, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		if value, ok := c.Get(key); ok {
			return value, nil
		}

		value, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return value, err
		}

		c.Set(key, value, ttl)
		return value, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Delete removes key.
func (c *Cache[T]) Delete(key string) {
	c.mu.Lock()
	delete(c.slots, key)
	c.mu.Unlock()
}

// Sweep physically evicts expired entries and returns how many were removed.
func (c *Cache[T]) Sweep() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, s := range c.slots {
		s.mu.RLock()
		fresh := s.entry.Fresh(now)
		s.mu.RUnlock()

		if !fresh {
			delete(c.slots, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of physically stored entries, expired or not.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.slots)
}
