package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/fulfillment/internal/domain/shipping"
	"github.com/redis/go-redis/v9"
)

const defaultTokenKeyPrefix = "fulfillment:"

// RedisTokenCache shares courier tokens between server and CLI processes
type RedisTokenCache struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRedisTokenCache wraps an existing client
func NewRedisTokenCache(client redis.UniversalClient, keyPrefix string) *RedisTokenCache {
	if keyPrefix == "" {
		keyPrefix = defaultTokenKeyPrefix
	}
	return &RedisTokenCache{client: client, keyPrefix: keyPrefix}
}

// Get returns the token for key; Redis expiry handles staleness
func (c *RedisTokenCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, c.keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, true, nil
}

// Set stores token under key with ttl
func (c *RedisTokenCache) Set(ctx context.Context, key, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := c.client.Set(ctx, c.keyPrefix+key, token, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Invalidate deletes key
func (c *RedisTokenCache) Invalidate(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

var _ shipping.TokenCache = (*RedisTokenCache)(nil)
