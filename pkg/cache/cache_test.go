package cache_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mlld-lang/mlld-core/pkg/cache"
)

func TestTTLCacheExpiry(t *testing.T) {
	c := cache.NewTTLCache(10*time.Millisecond, 10)
	c.Set("k", "v")

	v, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, "v", v)

	time.Sleep(20 * time.Millisecond)
	_, ok = c.Get("k")
	require.False(t, ok, "entry should have expired")
}

func TestTTLCacheEvictsOldestWhenFull(t *testing.T) {
	c := cache.NewTTLCache(time.Hour, 2)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)
	require.LessOrEqual(t, c.Size(), 2)
}

func TestGroupCoalescesConcurrentFetches(t *testing.T) {
	g := cache.NewGroupWithCache(cache.NewTTLCache(time.Hour, 10))
	var calls int64

	var wg sync.WaitGroup
	results := make([]interface{}, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			v, err := g.Fetch("same-key", func() (interface{}, error) {
				atomic.AddInt64(&calls, 1)
				time.Sleep(5 * time.Millisecond)
				return "resolved", nil
			})
			require.NoError(t, err)
			results[idx] = v
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		require.Equal(t, "resolved", r)
	}
	require.LessOrEqual(t, atomic.LoadInt64(&calls), int64(2), "concurrent fetches for the same key should coalesce")
}

func TestHashKeyIsStableAndContentAddressed(t *testing.T) {
	require.Equal(t, cache.HashKey("hello"), cache.HashKey("hello"))
	require.NotEqual(t, cache.HashKey("hello"), cache.HashKey("world"))
}
