package cache

import (
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Loader fills an LRUCache on miss. Concurrent misses for the same key
// share one load. A load that started before Invalidate is returned to
// its callers but not stored.
type Loader[T any] struct {
	cache *LRUCache[T]
	group singleflight.Group
	gen   atomic.Uint64
}

func NewLoader[T any](c *LRUCache[T]) *Loader[T] {
	return &Loader[T]{cache: c}
}

// Get returns the cached value for key or calls load. hit reports whether
// the value came from the cache.
func (l *Loader[T]) Get(key string, load func() (T, error)) (value T, hit bool, err error) {
	if v, ok := l.cache.Get(key); ok {
		return v, true, nil
	}
	gen := l.gen.Load()
	v, err, _ := l.group.Do(key, func() (any, error) {
		v, err := load()
		if err != nil {
			return v, err
		}
		if l.gen.Load() == gen {
			l.cache.Set(key, v)
		}
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return v.(T), false, nil
}

// Invalidate drops every cached value.
func (l *Loader[T]) Invalidate() int {
	l.gen.Add(1)
	return l.cache.Clear()
}

func (l *Loader[T]) CleanExpired() int {
	return l.cache.CleanExpired()
}
