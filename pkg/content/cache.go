package content

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/small-frappuccino/wikiguide/pkg/chunk"
	"github.com/small-frappuccino/wikiguide/pkg/log"
	"github.com/small-frappuccino/wikiguide/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultCapacity = 128
	// DefaultFetchTimeout bounds a shared source lookup, independent of any one caller.
	DefaultFetchTimeout = 15 * time.Second
)

// Entry is a cached lookup together with the pages produced from its text.
type Entry struct {
	Content Content
	Pages   []string
}

// CacheConfig configures Cache.
type CacheConfig struct {
	Capacity int
	// PageSize is the chunk length handed to chunk.Split on a miss.
	PageSize int
	// FetchTimeout bounds the source lookup shared by concurrent callers.
	FetchTimeout time.Duration
	Metrics      *metrics.Metrics
}

// Cache is a capacity-bounded LRU of lookups keyed by normalized query.
// Entries are only evicted under capacity pressure; nothing expires by age.
type Cache struct {
	entries      *lru.Cache[string, Entry]
	source       Source
	pageSize     int
	fetchTimeout time.Duration
	group        singleflight.Group
	metrics      *metrics.Metrics
}

// NewCache builds a cache in front of source.
func NewCache(source Source, cfg CacheConfig) (*Cache, error) {
	if source == nil {
		return nil, fmt.Errorf("content source is nil")
	}
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = chunk.DefaultMaxLength
	}
	fetchTimeout := cfg.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = DefaultFetchTimeout
	}
	entries, err := lru.New[string, Entry](capacity)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &Cache{
		entries:      entries,
		source:       source,
		pageSize:     pageSize,
		fetchTimeout: fetchTimeout,
		metrics:      cfg.Metrics,
	}, nil
}

// Get returns the entry for key and marks it as most recently used.
func (c *Cache) Get(key string) (Entry, bool) {
	return c.entries.Get(NormalizeQuery(key))
}

// Put stores an entry, evicting the least recently used one when full.
func (c *Cache) Put(key string, e Entry) {
	c.entries.Add(NormalizeQuery(key), e)
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.entries.Purge()
}

// GetOrFetch returns the cached entry for query or looks it up, splits it into
// pages and caches it. Concurrent misses for one key share a single lookup.
// Failed lookups are not cached.
func (c *Cache) GetOrFetch(ctx context.Context, query string) (Entry, error) {
	key := NormalizeQuery(query)
	if key == "" {
		return Entry{}, ErrEmptyQuery
	}
	if e, ok := c.entries.Get(key); ok {
		c.metrics.CacheHit()
		return e, nil
	}
	c.metrics.CacheMiss()

	// The shared lookup outlives any single caller's cancellation; each caller
	// stops waiting on its own ctx.
	results := c.group.DoChan(key, func() (any, error) {
		if e, ok := c.entries.Get(key); ok {
			return e, nil
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()
		found, err := c.source.Lookup(fetchCtx, key)
		if err != nil {
			c.metrics.Lookup(metrics.LookupError)
			return Entry{}, err
		}
		e := Entry{Content: found}
		if found.Exists {
			c.metrics.Lookup(metrics.LookupFound)
			e.Pages = chunk.Split(found.Text, c.pageSize)
		} else {
			c.metrics.Lookup(metrics.LookupNotFound)
		}
		c.entries.Add(key, e)
		return e, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return Entry{}, fmt.Errorf("lookup %q: %w", key, ctx.Err())
	case res = <-results:
	}
	if res.Err != nil {
		return Entry{}, fmt.Errorf("lookup %q: %w", key, res.Err)
	}
	if res.Shared {
		log.ApplicationLogger().Debug("Shared in-flight content lookup", "query", key)
	}
	return res.Val.(Entry), nil
}
