package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"gagyebu/internal/metrics"
)

// Loader fronts an expensive lookup with an LRU cache. Concurrent misses for
// the same key share a single call to the load function.
type Loader[T any] struct {
	name    string
	cache   *LRUCache[T]
	group   singleflight.Group
	metrics metrics.Recorder

	mu       sync.Mutex
	inflight map[string]*flight
}

// flight tracks one running load. A stale flight still answers its callers
// but must not populate the cache.
type flight struct {
	stale bool
}

func NewLoader[T any](name string, c *LRUCache[T], rec metrics.Recorder) *Loader[T] {
	return &Loader[T]{
		name:     name,
		cache:    c,
		metrics:  metrics.OrNoOp(rec),
		inflight: make(map[string]*flight),
	}
}

// Get returns the cached value for key or calls load and caches its result.
// Errors are not cached.
func (l *Loader[T]) Get(ctx context.Context, key string, load func(context.Context) (T, error)) (T, error) {
	if v, ok := l.cache.Get(key); ok {
		l.metrics.RecordCacheLookup(l.name, true)
		return v, nil
	}
	l.metrics.RecordCacheLookup(l.name, false)

	v, err, _ := l.group.Do(key, func() (any, error) {
		f := l.begin(key)
		defer l.end(key, f)

		v, err := load(ctx)
		if err != nil {
			return v, err
		}
		l.mu.Lock()
		if !f.stale {
			l.cache.Set(key, v)
		}
		l.mu.Unlock()
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, fmt.Errorf("load %s %s: %w", l.name, key, err)
	}
	return v.(T), nil
}

func (l *Loader[T]) begin(key string) *flight {
	f := &flight{}
	l.mu.Lock()
	l.inflight[key] = f
	l.mu.Unlock()
	return f
}

func (l *Loader[T]) end(key string, f *flight) {
	l.mu.Lock()
	if l.inflight[key] == f {
		delete(l.inflight, key)
	}
	l.mu.Unlock()
}

// Invalidate drops every entry whose key starts with prefix. Loads already
// running for such keys are detached: their results reach the callers
// waiting on them but are not cached, and later misses start a fresh load.
func (l *Loader[T]) Invalidate(prefix string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, f := range l.inflight {
		if strings.HasPrefix(key, prefix) {
			f.stale = true
			l.group.Forget(key)
			delete(l.inflight, key)
		}
	}
	return l.cache.DeletePrefix(prefix)
}
