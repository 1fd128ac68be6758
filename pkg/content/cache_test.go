package content

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func staticSource(calls *int32, c Content) Source {
	return SourceFunc(func(ctx context.Context, query string) (Content, error) {
		atomic.AddInt32(calls, 1)
		c.Title = query
		return c, nil
	})
}

func newTestCache(t *testing.T, capacity int, src Source) *Cache {
	t.Helper()
	c, err := NewCache(src, CacheConfig{Capacity: capacity, PageSize: 25})
	require.NoError(t, err)
	return c
}

func TestCacheEvictsLeastRecentlyInserted(t *testing.T) {
	var calls int32
	c := newTestCache(t, 3, staticSource(&calls, Content{}))

	for _, k := range []string{"a", "b", "c", "d"} {
		c.Put(k, Entry{Content: Content{Title: k}})
	}

	require.Equal(t, 3, c.Len())
	_, ok := c.Get("a")
	require.False(t, ok, "first inserted key should be evicted")
	for _, k := range []string{"b", "c", "d"} {
		_, ok := c.Get(k)
		require.True(t, ok, "expected %s to remain", k)
	}
}

func TestCacheGetProtectsFromEviction(t *testing.T) {
	var calls int32
	c := newTestCache(t, 3, staticSource(&calls, Content{}))

	c.Put("a", Entry{})
	c.Put("b", Entry{})
	c.Put("c", Entry{})
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Put("d", Entry{})

	_, ok = c.Get("a")
	require.True(t, ok, "recently read key must survive")
	_, ok = c.Get("b")
	require.False(t, ok, "b was least recently used")
}

func TestCacheKeysAreNormalized(t *testing.T) {
	var calls int32
	c := newTestCache(t, 2, staticSource(&calls, Content{}))

	c.Put("  Go   language ", Entry{Content: Content{Title: "x"}})
	e, ok := c.Get("Go language")
	require.True(t, ok)
	require.Equal(t, "x", e.Content.Title)
}

func TestGetOrFetchChunksOnMissAndHitsAfterwards(t *testing.T) {
	var calls int32
	src := staticSource(&calls, Content{Exists: true, Text: "First one. Second one. Third one.", URL: "https://example/wiki/X"})
	c := newTestCache(t, 4, src)

	e, err := c.GetOrFetch(context.Background(), "X")
	require.NoError(t, err)
	require.True(t, e.Content.Exists)
	require.Equal(t, []string{"First one. Second one. ", "Third one."}, e.Pages)

	_, err = c.GetOrFetch(context.Background(), " X ")
	require.NoError(t, err)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetOrFetchCachesNotFound(t *testing.T) {
	var calls int32
	c := newTestCache(t, 4, staticSource(&calls, Content{Exists: false}))

	for i := 0; i < 2; i++ {
		e, err := c.GetOrFetch(context.Background(), "Nope")
		require.NoError(t, err)
		require.False(t, e.Content.Exists)
		require.Empty(t, e.Pages)
	}
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetOrFetchDoesNotCacheErrors(t *testing.T) {
	boom := errors.New("upstream down")
	var calls int32
	src := SourceFunc(func(ctx context.Context, query string) (Content, error) {
		atomic.AddInt32(&calls, 1)
		return Content{}, boom
	})
	c := newTestCache(t, 4, src)

	_, err := c.GetOrFetch(context.Background(), "X")
	require.ErrorIs(t, err, boom)
	_, err = c.GetOrFetch(context.Background(), "X")
	require.ErrorIs(t, err, boom)
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
	require.Equal(t, 0, c.Len())
}

func TestGetOrFetchEmptyQuery(t *testing.T) {
	var calls int32
	c := newTestCache(t, 4, staticSource(&calls, Content{}))
	_, err := c.GetOrFetch(context.Background(), "   ")
	require.ErrorIs(t, err, ErrEmptyQuery)
	require.Zero(t, atomic.LoadInt32(&calls))
}

func TestGetOrFetchCollapsesConcurrentMisses(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	src := SourceFunc(func(ctx context.Context, query string) (Content, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return Content{Exists: true, Text: strings.Repeat("word ", 3) + "end."}, nil
	})
	c := newTestCache(t, 4, src)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.GetOrFetch(context.Background(), "Same"); err != nil {
				t.Errorf("GetOrFetch() failed: %v", err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetOrFetchCallerCancelDoesNotFailSharedLookup(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	src := SourceFunc(func(ctx context.Context, query string) (Content, error) {
		close(started)
		select {
		case <-release:
		case <-ctx.Done():
			return Content{}, ctx.Err()
		}
		return Content{Exists: true, Text: "Shared answer."}, nil
	})
	c := newTestCache(t, 4, src)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.GetOrFetch(firstCtx, "Same")
		firstErr <- err
	}()
	<-started

	secondDone := make(chan Entry, 1)
	go func() {
		e, err := c.GetOrFetch(context.Background(), "Same")
		if err != nil {
			t.Errorf("second GetOrFetch() failed: %v", err)
		}
		secondDone <- e
	}()

	cancelFirst()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	select {
	case e := <-secondDone:
		require.True(t, e.Content.Exists)
		require.Equal(t, []string{"Shared answer."}, e.Pages)
	case <-time.After(2 * time.Second):
		t.Fatal("second caller never received the shared result")
	}
}

func TestNewCacheRejectsNilSource(t *testing.T) {
	_, err := NewCache(nil, CacheConfig{})
	require.Error(t, err)
}
