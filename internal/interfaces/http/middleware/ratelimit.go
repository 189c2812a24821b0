package middleware

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/erp/fulfillment/internal/interfaces/http/dto"
)

// RateLimiter hands out one token bucket per key. Buckets idle for longer
// than idleTTL are dropped by Sweep.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*client
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows perMinute requests per key with the given burst
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		clients: make(map[string]*client),
		limit:   rate.Limit(float64(perMinute) / 60),
		burst:   burst,
		idleTTL: 10 * time.Minute,
		now:     time.Now,
	}
}

// Allow reports whether a request for key may proceed now
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	c, ok := rl.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// Sweep drops buckets that have been idle past the TTL
func (rl *RateLimiter) Sweep() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.idleTTL)
	removed := 0
	for key, c := range rl.clients {
		if c.lastSeen.Before(cutoff) {
			delete(rl.clients, key)
			removed++
		}
	}
	return removed
}

// Run sweeps idle buckets every interval until ctx is done
func (rl *RateLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Sweep()
		}
	}
}

// RateLimit throttles by operator, falling back to the client IP. A nil
// limiter lets every request through.
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return RateLimitByKey(limiter, func(c *gin.Context) string {
		if op := GetOperator(c); op != "" {
			return "op:" + op
		}
		return "ip:" + c.ClientIP()
	})
}

// RateLimitByKey throttles with a custom key extractor
func RateLimitByKey(limiter *RateLimiter, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		if !limiter.Allow(keyFunc(c)) {
			c.Header("Retry-After", strconv.Itoa(limiter.retryAfterSeconds()))
			c.AbortWithStatusJSON(dto.GetHTTPStatus(dto.ErrCodeRateLimited), dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRateLimited, "Too many requests, please retry later", GetRequestID(c)))
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) retryAfterSeconds() int {
	if rl.limit <= 0 {
		return 60
	}
	secs := int(1 / float64(rl.limit))
	if secs < 1 {
		return 1
	}
	return secs
}
