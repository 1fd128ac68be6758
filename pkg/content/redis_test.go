package content

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	values  map[string]string
	getErr  error
	setErr  error
	lastTTL time.Duration
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	f.lastTTL = expiration
	switch v := value.(type) {
	case []byte:
		f.values[key] = string(v)
	case string:
		f.values[key] = v
	}
	return redis.NewStatusResult("OK", nil)
}

func TestRedisSourceStoresAndServes(t *testing.T) {
	var calls int
	next := SourceFunc(func(ctx context.Context, query string) (Content, error) {
		calls++
		return Content{Exists: true, Title: query, Text: "Body."}, nil
	})
	rdb := &fakeRedis{values: map[string]string{}}
	src := NewRedisSource(next, rdb, 5*time.Minute)

	first, err := src.Lookup(context.Background(), "Go")
	require.NoError(t, err)
	second, err := src.Lookup(context.Background(), " Go ")
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, 1, calls)
	require.Equal(t, 5*time.Minute, rdb.lastTTL)
	require.Contains(t, rdb.values, defaultRedisPrefix+"Go")
}

func TestRedisSourceFallsThroughOnRedisError(t *testing.T) {
	next := SourceFunc(func(ctx context.Context, query string) (Content, error) {
		return Content{Exists: true, Text: "Body."}, nil
	})
	rdb := &fakeRedis{values: map[string]string{}, getErr: errors.New("dial tcp: refused"), setErr: errors.New("dial tcp: refused")}

	got, err := NewRedisSource(next, rdb, 0).Lookup(context.Background(), "Go")
	require.NoError(t, err)
	require.True(t, got.Exists)
}

func TestRedisSourceIgnoresCorruptPayload(t *testing.T) {
	var calls int
	next := SourceFunc(func(ctx context.Context, query string) (Content, error) {
		calls++
		return Content{Exists: false}, nil
	})
	rdb := &fakeRedis{values: map[string]string{defaultRedisPrefix + "Go": "{not json"}}

	got, err := NewRedisSource(next, rdb, time.Hour).Lookup(context.Background(), "Go")
	require.NoError(t, err)
	require.False(t, got.Exists)
	require.Equal(t, 1, calls)

	var stored Content
	require.NoError(t, json.Unmarshal([]byte(rdb.values[defaultRedisPrefix+"Go"]), &stored))
}

func TestRedisSourcePropagatesSourceError(t *testing.T) {
	boom := errors.New("boom")
	next := SourceFunc(func(ctx context.Context, query string) (Content, error) {
		return Content{}, boom
	})
	_, err := NewRedisSource(next, &fakeRedis{values: map[string]string{}}, time.Hour).Lookup(context.Background(), "Go")
	require.ErrorIs(t, err, boom)
}
