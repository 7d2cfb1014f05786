package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

// Connect opens a Redis client from a redis:// URL and checks it answers.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, eris.Wrap(err, "cache: parse redis url")
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "cache: ping redis")
	}
	return client, nil
}

// Redis is a Cache shared between processes. Values are stored as JSON and
// expire through Redis key TTLs.
type Redis[V any] struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis wraps client. Keys are namespaced under prefix.
func NewRedis[V any](client *redis.Client, prefix string, ttl time.Duration) *Redis[V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis[V]{client: client, prefix: prefix, ttl: ttl}
}

func (c *Redis[V]) key(k string) string {
	return c.prefix + ":" + k
}

// Get returns the cached value for key.
func (c *Redis[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, eris.Wrapf(err, "cache: redis get %s", key)
	}

	var v V
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, false, eris.Wrapf(err, "cache: decode %s", key)
	}
	return v, true, nil
}

// Set stores value under key with the cache TTL.
func (c *Redis[V]) Set(ctx context.Context, key string, value V) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return eris.Wrapf(err, "cache: encode %s", key)
	}
	return eris.Wrapf(c.client.Set(ctx, c.key(key), raw, c.ttl).Err(), "cache: redis set %s", key)
}

// Len counts keys under the prefix. Errors report zero.
func (c *Redis[V]) Len() int {
	var n int
	iter := c.client.Scan(context.Background(), 0, c.prefix+":*", 100).Iterator()
	for iter.Next(context.Background()) {
		n++
	}
	if iter.Err() != nil {
		return 0
	}
	return n
}
