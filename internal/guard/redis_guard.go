package guard

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisGuard is a Guard shared across pipeline instances/processes,
// backed by Redis SETNX semantics. A miniredis server is sufficient for
// unit tests; a real or testcontainers-provisioned Redis backs
// integration tests and production deployments.
type RedisGuard struct {
	client *redis.Client
	prefix string
}

// NewRedisGuard wraps an existing *redis.Client. prefix namespaces keys
// (e.g. "fragvault:guard:") so the guard can share a Redis instance with
// other consumers.
func NewRedisGuard(client *redis.Client, prefix string) *RedisGuard {
	return &RedisGuard{client: client, prefix: prefix}
}

func (g *RedisGuard) fullKey(key string) string {
	return g.prefix + key
}

func (g *RedisGuard) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	claimed, err := g.client.SetNX(ctx, g.fullKey(key), time.Now().UTC().Format(time.RFC3339Nano), ttl).Result()
	if err != nil {
		return false, err
	}
	return claimed, nil
}

func (g *RedisGuard) Release(ctx context.Context, key string) error {
	return g.client.Del(ctx, g.fullKey(key)).Err()
}

func (g *RedisGuard) Close() error {
	return g.client.Close()
}
