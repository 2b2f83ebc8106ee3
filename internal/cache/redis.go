package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultRedisKey is the default key used to store the catalog snapshot in Redis.
	DefaultRedisKey = "aifoundry:catalog"

	// DefaultRedisTTL is the default time-to-live for cached data (24 hours).
	// This ensures stale data eventually expires if the application stops updating.
	DefaultRedisTTL = 24 * time.Hour
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379" or "redis://:password@host:6379/0")
	URL string

	// Key is the Redis key to store the catalog snapshot (defaults to "aifoundry:catalog")
	Key string

	// TTL is the time-to-live for cached data (defaults to 24 hours)
	TTL time.Duration
}

// RedisCache implements Cache using Redis for distributed storage.
// This is suitable for multi-instance deployments behind a load balancer.
type RedisCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisCache creates a new Redis-based cache.
func NewRedisCache(cfg RedisConfig) (*RedisCache, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	key := cfg.Key
	if key == "" {
		key = DefaultRedisKey
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultRedisTTL
	}

	slog.Info("redis cache connected", "key", key, "ttl", ttl)

	return &RedisCache{
		client: client,
		key:    key,
		ttl:    ttl,
	}, nil
}

// Get retrieves the catalog snapshot from Redis.
func (c *RedisCache) Get(ctx context.Context) (*CatalogSnapshot, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // No snapshot yet, not an error
		}
		return nil, fmt.Errorf("failed to get cache from redis: %w", err)
	}

	var snapshot CatalogSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to parse cache from redis: %w", err)
	}

	return &snapshot, nil
}

// Set stores the catalog snapshot in Redis.
func (c *RedisCache) Set(ctx context.Context, snapshot *CatalogSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}

	if err := c.client.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache in redis: %w", err)
	}

	return nil
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
