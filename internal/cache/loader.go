package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// LoadTimeout bounds a shared load once it no longer follows any caller's
// context.
const LoadTimeout = 30 * time.Second

// Loader fills a Cache on miss. Concurrent misses for the same key share a
// single call to load, a caller that gives up does not cancel the load for
// the others, and Invalidate guarantees that no load started before
// it can repopulate the key.
type Loader[T any] struct {
	cache Cache[T]
	group singleflight.Group

	mu  sync.Mutex
	gen map[string]uint64
}

// NewLoader wraps c. A nil c disables caching but keeps load collapsing.
func NewLoader[T any](c Cache[T]) *Loader[T] {
	return &Loader[T]{cache: c, gen: make(map[string]uint64)}
}

// Get returns the cached value for key or calls load. The second result
// reports whether the value came from the cache.
func (l *Loader[T]) Get(ctx context.Context, key string, load func(context.Context) (T, error)) (T, bool, error) {
	if l.cache != nil {
		if v, ok := l.cache.Get(key); ok {
			return v, true, nil
		}
	}

	gen := l.generation(key)
	flight := key + "#" + strconv.FormatUint(gen, 10)

	// The load is shared, so it must outlive any one caller's cancellation.
	ch := l.group.DoChan(flight, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), LoadTimeout)
		defer cancel()

		v, err := load(lctx)
		if err != nil {
			return v, err
		}
		l.mu.Lock()
		if l.cache != nil && l.gen[key] == gen {
			l.cache.Set(key, v)
		}
		l.mu.Unlock()
		return v, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, false, res.Err
		}
		return res.Val.(T), false, nil
	}
}

// Invalidate drops key and fences off loads already in flight.
func (l *Loader[T]) Invalidate(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen[key]++
	if l.cache != nil {
		l.cache.Delete(key)
	}
}

func (l *Loader[T]) generation(key string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gen[key]
}
