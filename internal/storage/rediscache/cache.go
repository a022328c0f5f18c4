// Package rediscache implements the volatile query cache on Redis.
package rediscache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chartstack/chartd/internal/common"
	"github.com/chartstack/chartd/internal/interfaces"
)

// keyPrefix namespaces all chartd entries in a shared Redis.
const keyPrefix = "chartd:"

// Cache is a TTL key-value cache for pre-serialized query results.
// Every entry is regenerable from the store; callers treat errors
// from Get and Set as a miss.
type Cache struct {
	client *redis.Client
	logger *common.Logger
}

// New creates a cache backed by the configured Redis instance.
func New(cfg common.RedisConfig, logger *common.Logger) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Cache{client: client, logger: logger}
}

// NewFromClient wraps an existing Redis client. Used by tests.
func NewFromClient(client *redis.Client, logger *common.Logger) *Cache {
	return &Cache{client: client, logger: logger}
}

// Ping verifies connectivity. Startup logs a warning on failure but
// proceeds; the read path works without the cache.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get %q: %w", key, err)
	}
	c.logger.Debug().Str("key", key).Int("bytes", len(data)).Msg("cache hit")
	return data, nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, keyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %q: %w", key, err)
	}
	return nil
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Ensure Cache implements the Cache interface
var _ interfaces.Cache = (*Cache)(nil)
