package cache

import (
	"context"
	"fmt"

	"github.com/erp/fulfillment/internal/domain/shipping"
	"github.com/erp/fulfillment/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewTokenCache builds the token cache selected by
// fulfillment.token_cache_backend. The returned close func releases the
// Redis client when one was opened.
func NewTokenCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) (shipping.TokenCache, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Fulfillment.TokenCacheBackend {
	case "", "memory":
		logger.Info("using in-memory courier token cache")
		return NewInMemoryTokenCache(), noop, nil
	case "redis":
		client, err := NewRedisClient(ctx, cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, noop, err
		}
		logger.Info("using Redis courier token cache", zap.String("addr", cfg.Redis.Addr()))
		return NewRedisTokenCache(client, ""), client.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown token cache backend %q", cfg.Fulfillment.TokenCacheBackend)
	}
}
