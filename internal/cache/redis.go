package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/groupe-jds/doku-seal/config"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

// ErrCacheMiss is returned when a key is not present
var ErrCacheMiss = errors.New("key not found in cache")

// RedisCache provides caching using Redis
type RedisCache struct {
	client  *redis.Client
	enabled bool
}

// NewRedisCache creates a new Redis cache. A disabled cache answers every call with an error.
func NewRedisCache(cfg config.RedisConfig) (*RedisCache, error) {
	if !cfg.Enabled {
		return &RedisCache{enabled: false}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "failed to connect to Redis")
	}

	return &RedisCache{
		client:  client,
		enabled: true,
	}, nil
}

// Enabled reports whether the cache is backed by Redis
func (c *RedisCache) Enabled() bool {
	return c != nil && c.enabled
}

// Get retrieves a JSON value from cache
func (c *RedisCache) Get(ctx context.Context, key string, value interface{}) error {
	if !c.Enabled() {
		return errors.New("cache is disabled")
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return ErrCacheMiss
		}
		return errors.Wrap(err, "failed to get value from Redis")
	}

	if err := json.Unmarshal(data, value); err != nil {
		return errors.Wrap(err, "failed to unmarshal cached value")
	}
	return nil
}

// SetNX stores a JSON value only if the key is absent and reports whether it was stored
func (c *RedisCache) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	if !c.Enabled() {
		return false, errors.New("cache is disabled")
	}

	data, err := json.Marshal(value)
	if err != nil {
		return false, errors.Wrap(err, "failed to marshal value for caching")
	}

	ok, err := c.client.SetNX(ctx, key, data, expiration).Result()
	if err != nil {
		return false, errors.Wrap(err, "failed to set value in Redis")
	}
	return ok, nil
}

// Ping checks the Redis connection
func (c *RedisCache) Ping(ctx context.Context) error {
	if !c.Enabled() {
		return errors.New("cache is disabled")
	}
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	if !c.Enabled() || c.client == nil {
		return nil
	}
	return c.client.Close()
}
