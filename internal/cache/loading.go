package cache

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
)

// LoaderFunc builds the value for a key on a cache miss.
type LoaderFunc[T any] func(ctx context.Context) (T, error)

// LoadingCache fronts an expensive constructor with a TTL cache. Concurrent
// misses for the same key share one load.
type LoadingCache[T any] struct {
	cache *LRUCache[T]
	group singleflight.Group
}

// NewLoadingCache creates a loading cache holding at most maxSize values
// for ttl each.
func NewLoadingCache[T any](maxSize int, ttl time.Duration) *LoadingCache[T] {
	return &LoadingCache[T]{cache: NewLRUCache[T](maxSize, ttl)}
}

// Get returns the cached value for key or runs load. The loader receives a
// context detached from ctx's cancellation because the value outlives the
// request that triggered it.
func (c *LoadingCache[T]) Get(ctx context.Context, key string, load LoaderFunc[T]) (T, error) {
	if v, ok := c.cache.Get(key); ok {
		return v, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.cache.Get(key); ok {
			return v, nil
		}
		v, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, v)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, fmt.Errorf("load %s: %w", key, err)
	}
	return v.(T), nil
}

// Invalidate drops key so the next Get reloads it.
func (c *LoadingCache[T]) Invalidate(key string) {
	c.cache.Delete(key)
}

func (c *LoadingCache[T]) CleanExpired() int {
	return c.cache.CleanExpired()
}

func (c *LoadingCache[T]) Size() int {
	return c.cache.Size()
}
