package shipping

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/fulfillment/internal/domain/shipping"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// TokenFetcher obtains a fresh bearer token from a courier API together
// with its lifetime
type TokenFetcher func(ctx context.Context) (token string, expiresIn time.Duration, err error)

// TokenSource hands out courier API tokens from a process-wide cache.
// Concurrent misses for the same courier share one fetch.
type TokenSource struct {
	cache  shipping.TokenCache
	key    string
	fetch  TokenFetcher
	leeway time.Duration
	group  singleflight.Group
	logger *zap.Logger
}

// NewTokenSource creates a token source for one courier. Tokens are cached
// for their lifetime minus leeway so they are never used right at expiry.
func NewTokenSource(cache shipping.TokenCache, courier string, fetch TokenFetcher, leeway time.Duration, logger *zap.Logger) *TokenSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenSource{
		cache:  cache,
		key:    "courier_token:" + courier,
		fetch:  fetch,
		leeway: leeway,
		logger: logger,
	}
}

// Token returns a valid token, fetching one when the cache has none
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	token, ok, err := s.cache.Get(ctx, s.key)
	if err != nil {
		s.logger.Warn("token cache read failed", zap.String("key", s.key), zap.Error(err))
	} else if ok {
		return token, nil
	}

	v, err, _ := s.group.Do(s.key, func() (any, error) {
		token, expiresIn, err := s.fetch(ctx)
		if err != nil {
			return "", fmt.Errorf("fetch courier token: %w", err)
		}
		ttl := expiresIn - s.leeway
		if ttl <= 0 {
			return token, nil
		}
		if err := s.cache.Set(ctx, s.key, token, ttl); err != nil {
			s.logger.Warn("token cache write failed", zap.String("key", s.key), zap.Error(err))
		}
		return token, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops the cached token, e.g. after the courier rejected it
func (s *TokenSource) Invalidate(ctx context.Context) error {
	return s.cache.Invalidate(ctx, s.key)
}
