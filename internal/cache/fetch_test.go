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

func TestFetchCachesLoadedValue(t *testing.T) {
	ctx := context.Background()
	c, err := NewLRUCache(8)
	require.NoError(t, err)
	calls := 0
	load := func(context.Context) ([]item, error) {
		calls++
		return []item{{ID: 1, Name: "Kale"}}, nil
	}

	got, hit, err := Fetch(ctx, c, UserPrefix(1), "k", time.Minute, load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []item{{ID: 1, Name: "Kale"}}, got)

	got, hit, err = Fetch(ctx, c, UserPrefix(1), "k", time.Minute, load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []item{{ID: 1, Name: "Kale"}}, got)
	assert.Equal(t, 1, calls)
}

func TestFetchDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	c, err := NewLRUCache(8)
	require.NoError(t, err)
	boom := errors.New("boom")

	_, _, err = Fetch(ctx, c, UserPrefix(1), "k", time.Minute, func(context.Context) (string, error) { return "", boom })
	require.ErrorIs(t, err, boom)

	var got string
	found, err := c.Get(ctx, UserPrefix(1)+"k", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFetchCollapsesConcurrentMisses(t *testing.T) {
	ctx := context.Background()
	c, err := NewLRUCache(8)
	require.NoError(t, err)
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
			results[i], _, _ = Fetch(ctx, c, UserPrefix(1), "shared", time.Minute, load)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, []int{42, 42, 42, 42, 42}, results)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchDropsResultLoadedDuringInvalidation(t *testing.T) {
	ctx := context.Background()
	c, err := NewLRUCache(8)
	require.NoError(t, err)
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan string)
	go func() {
		got, _, _ := Fetch(ctx, c, UserPrefix(1), "labels", time.Minute, func(context.Context) (string, error) {
			close(started)
			<-release
			return "old", nil
		})
		done <- got
	}()

	<-started
	require.NoError(t, c.DeletePrefix(ctx, UserPrefix(1))) // A write by user 1
	close(release)
	assert.Equal(t, "old", <-done, "the in-flight caller still gets its own result")

	got, hit, err := Fetch(ctx, c, UserPrefix(1), "labels", time.Minute, func(context.Context) (string, error) {
		return "new", nil
	})
	require.NoError(t, err)
	assert.False(t, hit, "the result loaded before the write must not be cached")
	assert.Equal(t, "new", got)
}

func TestFetchAfterInvalidationStartsNewLoad(t *testing.T) {
	ctx := context.Background()
	c, err := NewLRUCache(8)
	require.NoError(t, err)
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _, _ = Fetch(ctx, c, UserPrefix(1), "labels", time.Minute, func(context.Context) (string, error) {
			close(started)
			<-release
			return "old", nil
		})
	}()

	<-started
	require.NoError(t, c.DeletePrefix(ctx, UserPrefix(1)))
	got, _, err := Fetch(ctx, c, UserPrefix(1), "labels", time.Minute, func(context.Context) (string, error) {
		return "new", nil
	})
	close(release)
	<-done

	require.NoError(t, err)
	assert.Equal(t, "new", got, "a caller after the write must not join the older load")
}

func TestGenerationAdvancesPerPrefix(t *testing.T) {
	ctx := context.Background()
	c, err := NewLRUCache(8)
	require.NoError(t, err)

	require.NoError(t, c.DeletePrefix(ctx, UserPrefix(1)))
	require.NoError(t, c.DeletePrefix(ctx, UserPrefix(1)))

	gen, err := c.Generation(ctx, UserPrefix(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), gen)
	gen, err = c.Generation(ctx, UserPrefix(2))
	require.NoError(t, err)
	assert.Zero(t, gen)
}
