package posts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// KV is the key-value subset the cache needs. Get returns redis.Nil on a
// miss.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisKV adapts a go-redis client to KV.
type RedisKV struct {
	client redis.UniversalClient
}

// NewRedisKV connects to redisURL and checks the connection.
func NewRedisKV(ctx context.Context, redisURL string) (*RedisKV, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisKV{client: client}, nil
}

// Get implements KV.
func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	return r.client.Get(ctx, key).Bytes()
}

// Set implements KV.
func (r *RedisKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// Close closes the client.
func (r *RedisKV) Close() error {
	return r.client.Close()
}

// CachedStore serves reads from a KV cache and falls back to the wrapped
// store on a miss. Not-found results are not cached.
type CachedStore struct {
	next   Store
	kv     KV
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

// NewCachedStore wraps next with a cache. Keys are prefixed with prefix.
func NewCachedStore(next Store, kv KV, ttl time.Duration, prefix string) *CachedStore {
	return &CachedStore{
		next:   next,
		kv:     kv,
		ttl:    ttl,
		prefix: prefix,
		logger: slog.Default().With("component", "posts.cache"),
	}
}

// List implements Store.
func (c *CachedStore) List(ctx context.Context) ([]Post, error) {
	return getOrSet(ctx, c, c.prefix+"posts", func() ([]Post, error) {
		return c.next.List(ctx)
	})
}

// Get implements Store.
func (c *CachedStore) Get(ctx context.Context, id int) (*Post, error) {
	return getOrSet(ctx, c, c.prefix+"post:"+strconv.Itoa(id), func() (*Post, error) {
		return c.next.Get(ctx, id)
	})
}

// getOrSet returns the cached value for key or calls fn and caches its
// result. Cache failures are logged and otherwise ignored.
func getOrSet[T any](ctx context.Context, c *CachedStore, key string, fn func() (T, error)) (T, error) {
	var result T

	data, err := c.kv.Get(ctx, key)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &result); err == nil {
			return result, nil
		}
		c.logger.Warn("dropping undecodable cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("cache read failed", "key", key, "error", err)
	}

	result, err = fn()
	if err != nil {
		return result, err
	}

	if data, err := json.Marshal(result); err == nil {
		if err := c.kv.Set(ctx, key, data, c.ttl); err != nil {
			c.logger.Warn("cache write failed", "key", key, "error", err)
		}
	}
	return result, nil
}
