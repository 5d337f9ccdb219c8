package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrLoadMemoizes(t *testing.T) {
	c := New[[]string]("feeds", 0, 0)
	var loads int

	load := func(context.Context) ([]string, error) {
		loads++
		return []string{"B46", "B41"}, nil
	}

	first, err := c.GetOrLoad(context.Background(), "gtfs_b", load)
	require.NoError(t, err)
	second, err := c.GetOrLoad(context.Background(), "gtfs_b", load)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, loads)
	assert.Equal(t, 1, c.Len())
}

func TestGetOrLoadDoesNotCacheFailures(t *testing.T) {
	c := New[int]("speeds", 4, 0)
	calls := 0

	_, err := c.GetOrLoad(context.Background(), "k", func(context.Context) (int, error) {
		calls++
		return 0, errors.New("socrata unavailable")
	})
	require.Error(t, err)

	v, err := c.GetOrLoad(context.Background(), "k", func(context.Context) (int, error) {
		calls++
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 2, calls)
}

func TestGetOrLoadSharesConcurrentLoads(t *testing.T) {
	c := New[int]("feeds", 0, 0)
	var loads atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.GetOrLoad(context.Background(), "shared", func(context.Context) (int, error) {
				loads.Add(1)
				<-release
				return 7, nil
			})
			assert.NoError(t, err)
			results[i] = v
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
	for _, v := range results {
		assert.Equal(t, 7, v)
	}
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[string]("small", 2, 0)
	for _, k := range []string{"a", "b", "c"} {
		_, err := c.GetOrLoad(context.Background(), k, func(context.Context) (string, error) { return k, nil })
		require.NoError(t, err)
	}

	_, ok := c.Get("a")
	assert.False(t, ok)
	v, ok := c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, "c", v)
}

func TestCacheRemoveAndPurge(t *testing.T) {
	c := New[int]("misc", 0, 0)
	_, _ = c.GetOrLoad(context.Background(), "a", func(context.Context) (int, error) { return 1, nil })
	_, _ = c.GetOrLoad(context.Background(), "b", func(context.Context) (int, error) { return 2, nil })

	assert.True(t, c.Remove("a"))
	assert.False(t, c.Remove("a"))
	assert.Equal(t, 1, c.Len())

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestCacheStats(t *testing.T) {
	c := New[int]("speeds", 0, 0)
	_, _ = c.GetOrLoad(context.Background(), "z", func(context.Context) (int, error) { return 1, nil })
	_, _ = c.GetOrLoad(context.Background(), "a", func(context.Context) (int, error) { return 2, nil })
	_, _ = c.GetOrLoad(context.Background(), "a", func(context.Context) (int, error) { return 3, nil })

	stats := c.Stats()

	assert.Equal(t, "speeds", stats.Name)
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, []string{"a", "z"}, stats.Keys)
	assert.Equal(t, uint64(1), stats.Hits)
}

func TestCacheExpiration(t *testing.T) {
	c := New[int]("ttl", 0, 10*time.Millisecond)
	_, _ = c.GetOrLoad(context.Background(), "a", func(context.Context) (int, error) { return 1, nil })

	time.Sleep(30 * time.Millisecond)

	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestGetOrLoadWaiterStopsOnOwnCancel(t *testing.T) {
	c := New[int]("feeds", 0, 0)
	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)

	go func() {
		_, _ = c.GetOrLoad(context.Background(), "slow", func(context.Context) (int, error) {
			close(started)
			<-release
			return 1, nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.GetOrLoad(ctx, "slow", func(context.Context) (int, error) {
		t.Error("waiter must not start a second load")
		return 0, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetOrLoadRetriesWhenStarterCancels(t *testing.T) {
	c := New[string]("feeds", 0, 0)
	starterCtx, cancelStarter := context.WithCancel(context.Background())
	started := make(chan struct{})
	var loads atomic.Int32

	load := func(ctx context.Context) (string, error) {
		if loads.Add(1) == 1 {
			close(started)
			<-ctx.Done()
			return "", fmt.Errorf("download feed: %w", ctx.Err())
		}
		return "gtfs_b", nil
	}

	starterErr := make(chan error, 1)
	go func() {
		_, err := c.GetOrLoad(starterCtx, "gtfs_b", load)
		starterErr <- err
	}()
	<-started

	waiter := make(chan string, 1)
	go func() {
		v, err := c.GetOrLoad(context.Background(), "gtfs_b", load)
		assert.NoError(t, err)
		waiter <- v
	}()

	time.Sleep(20 * time.Millisecond)
	cancelStarter()

	assert.ErrorIs(t, <-starterErr, context.Canceled)
	assert.Equal(t, "gtfs_b", <-waiter)
	assert.Equal(t, int32(2), loads.Load())
	v, ok := c.Get("gtfs_b")
	assert.True(t, ok)
	assert.Equal(t, "gtfs_b", v)
}
