package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/small-frappuccino/wikiguide/pkg/log"
)

const defaultRedisPrefix = "wikiguide:lookup:"

// redisClient is the subset of *redis.Client used by RedisSource.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisSource shares lookups between bot processes through Redis. It is a
// read-through layer in front of another Source; Redis failures are logged and
// the wrapped source is used directly.
type RedisSource struct {
	next   Source
	client redisClient
	ttl    time.Duration
	prefix string
}

// NewRedisClient parses a redis:// URL into a client.
func NewRedisClient(rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opt), nil
}

// NewRedisSource wraps next. A ttl <= 0 defaults to one hour.
func NewRedisSource(next Source, client redisClient, ttl time.Duration) *RedisSource {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisSource{next: next, client: client, ttl: ttl, prefix: defaultRedisPrefix}
}

func (r *RedisSource) key(query string) string {
	return r.prefix + query
}

// Lookup serves from Redis when possible and stores fresh lookups there.
func (r *RedisSource) Lookup(ctx context.Context, query string) (Content, error) {
	query = NormalizeQuery(query)
	if query == "" {
		return Content{}, ErrEmptyQuery
	}
	key := r.key(query)

	raw, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var c Content
		jsonErr := json.Unmarshal(raw, &c)
		if jsonErr == nil {
			return c, nil
		}
		log.DatabaseLogger().Warn("Discarding undecodable cached lookup", "key", key, "error", jsonErr)
	case errors.Is(err, redis.Nil):
	default:
		log.DatabaseLogger().Warn("Redis lookup failed; querying source directly", "key", key, "error", err)
	}

	c, err := r.next.Lookup(ctx, query)
	if err != nil {
		return Content{}, err
	}

	payload, err := json.Marshal(c)
	if err != nil {
		return c, nil
	}
	if err := r.client.Set(ctx, key, payload, r.ttl).Err(); err != nil {
		log.DatabaseLogger().Warn("Failed to store lookup in redis", "key", key, "error", err)
	}
	return c, nil
}
