package cache

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Loading fronts a Cache with a loader. Concurrent misses for the same key
// share one load, and Invalidate discards any load already in flight.
type Loading[T any] struct {
	cache Cache[T]
	group singleflight.Group

	mu          sync.Mutex
	generations map[string]uint64
}

func NewLoading[T any](c Cache[T]) *Loading[T] {
	return &Loading[T]{cache: c, generations: make(map[string]uint64)}
}

func (l *Loading[T]) generation(key string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.generations[key]
}

// Get returns the cached value for key or calls load to build it.
func (l *Loading[T]) Get(ctx context.Context, key string, load func(context.Context) (T, error)) (T, error) {
	if v, ok := l.cache.Get(key); ok {
		return v, nil
	}
	gen := l.generation(key)
	v, err, _ := l.group.Do(key, func() (any, error) {
		v, err := load(ctx)
		if err != nil {
			return v, err
		}
		// A write that landed during the load makes v stale.
		if l.generation(key) == gen {
			l.cache.Set(key, v)
		}
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func (l *Loading[T]) Invalidate(key string) {
	l.mu.Lock()
	l.generations[key]++
	l.mu.Unlock()
	l.group.Forget(key)
	l.cache.Delete(key)
}
