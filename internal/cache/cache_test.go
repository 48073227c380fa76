package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Get("a")
	c.Set("c", 3)

	_, okB := c.Get("b")
	va, okA := c.Get("a")

	assert.False(t, okB)
	assert.True(t, okA)
	assert.Equal(t, 1, va)
	assert.Equal(t, 2, c.Size())
}

func TestLRUCache_Expiry(t *testing.T) {
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Minute)
	c.now = func() time.Time { return now }
	c.Set("k", "v")
	c.Set("k2", "v2")

	now = now.Add(2 * time.Minute)
	c.Set("fresh", "v3")

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 1, c.CleanExpired())
	assert.Equal(t, 1, c.Size())
}

func TestLRUCache_DeletePrefix(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("h1:2024-03", 1)
	c.Set("h1:2024-04", 2)
	c.Set("h2:2024-03", 3)

	assert.Equal(t, 2, c.DeletePrefix("h1:"))
	_, ok := c.Get("h2:2024-03")
	assert.True(t, ok)
	c.Delete("h2:2024-03")
	assert.Zero(t, c.Size())
}

func TestManager_CleanNowAndStop(t *testing.T) {
	now := time.Now()
	c := NewLRUCache[int](10, time.Second)
	c.now = func() time.Time { return now }
	c.Set("a", 1)
	now = now.Add(time.Hour)

	m := NewManager()
	m.Register(c)
	m.StartCleanup(time.Hour)
	m.StartCleanup(time.Hour)

	assert.Equal(t, 1, m.CleanNow())
	m.Stop()
	m.Stop()
}

func TestLoader_CachesAndSharesLoads(t *testing.T) {
	ctx := context.Background()
	l := NewLoader("overview", NewLRUCache[int](10, time.Minute), nil)
	var calls atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := l.Get(ctx, "h1:2024-03", load)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, v := range results {
		assert.Equal(t, 42, v)
	}
	assert.LessOrEqual(t, calls.Load(), int32(5))

	before := calls.Load()
	v, err := l.Get(ctx, "h1:2024-03", load)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, before, calls.Load())
}

func TestLoader_ErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	l := NewLoader("overview", NewLRUCache[int](10, time.Minute), nil)
	boom := errors.New("boom")

	_, err := l.Get(ctx, "k", func(context.Context) (int, error) { return 0, boom })
	require.ErrorIs(t, err, boom)

	v, err := l.Get(ctx, "k", func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	assert.Equal(t, 1, l.Invalidate("k"))
}

func TestLoader_InvalidateDuringLoad(t *testing.T) {
	ctx := context.Background()
	l := NewLoader("overview", NewLRUCache[int](10, time.Minute), nil)
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan int)
	go func() {
		v, err := l.Get(ctx, "h1:2024-03", func(context.Context) (int, error) {
			close(started)
			<-release
			return 100, nil
		})
		assert.NoError(t, err)
		done <- v
	}()
	<-started

	l.Invalidate("h1:")

	v, err := l.Get(ctx, "h1:2024-03", func(context.Context) (int, error) { return 200, nil })
	require.NoError(t, err)
	assert.Equal(t, 200, v)

	close(release)
	assert.Equal(t, 100, <-done)

	v, err = l.Get(ctx, "h1:2024-03", func(context.Context) (int, error) { return 300, nil })
	require.NoError(t, err)
	assert.Equal(t, 200, v)
}
