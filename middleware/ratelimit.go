package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/ariebrainware/clinic-app/util"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	defaultRateLimit  = 5
	defaultRateWindow = 15 * time.Minute
)

// RateLimitConfig holds configuration for rate limiting. Without a Redis
// client the limit is kept per process.
type RateLimitConfig struct {
	Limit    int
	Window   time.Duration
	Redis    *redis.Client
	Security *util.SecurityLogger
	// View is re-rendered with status 429 when the limit is exceeded.
	View string
	// Data builds the template data for View.
	Data func(c *gin.Context) gin.H
}

// RateLimiter counts requests per client IP and endpoint.
type RateLimiter struct {
	cfg   RateLimitConfig
	local *cache.Cache
}

// NewRateLimiter applies defaults to cfg.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.Limit <= 0 {
		cfg.Limit = defaultRateLimit
	}
	if cfg.Window <= 0 {
		cfg.Window = defaultRateWindow
	}
	return &RateLimiter{
		cfg:   cfg,
		local: cache.New(cfg.Window, 2*cfg.Window),
	}
}

func rateLimitKey(endpoint, clientIP string) string {
	return fmt.Sprintf("ratelimit:%s:%s", endpoint, clientIP)
}

// Handler returns the gin middleware.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		endpoint := c.Request.URL.Path

		if rl.Allow(c.Request.Context(), rateLimitKey(endpoint, clientIP)) {
			c.Next()
			return
		}

		rl.cfg.Security.LogRateLimitExceeded(clientIP, endpoint)
		var data gin.H
		if rl.cfg.Data != nil {
			data = rl.cfg.Data(c)
		}
		util.CallTooManyRequests(c, util.ViewErrorParams{
			View: rl.cfg.View,
			Msg:  "Muitas tentativas. Aguarde alguns minutos e tente novamente.",
			Err:  fmt.Errorf("rate limit exceeded for %s", clientIP),
			Data: data,
		})
		c.Abort()
	}
}

// Allow records one request for key and reports whether it is within the
// limit. Redis failures fall back to the in-process limiter.
func (rl *RateLimiter) Allow(ctx context.Context, key string) bool {
	if rl.cfg.Redis != nil {
		allowed, err := rl.allowRedis(ctx, key)
		if err == nil {
			return allowed
		}
		log.Warn().Err(err).Str("key", key).Msg("rate limit check failed, using local limiter")
	}
	return rl.limiter(key).Allow()
}

func (rl *RateLimiter) allowRedis(ctx context.Context, key string) (bool, error) {
	count, err := rl.cfg.Redis.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}
	// The window starts with the first request and does not slide.
	if count == 1 {
		if err := rl.cfg.Redis.Expire(ctx, key, rl.cfg.Window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}
	return count <= int64(rl.cfg.Limit), nil
}

// limiter returns the token bucket for key: Limit tokens, refilled evenly
// over Window.
func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	if v, ok := rl.local.Get(key); ok {
		return v.(*rate.Limiter)
	}
	l := rate.NewLimiter(rate.Every(rl.cfg.Window/time.Duration(rl.cfg.Limit)), rl.cfg.Limit)
	if err := rl.local.Add(key, l, cache.DefaultExpiration); err != nil {
		// Another request created it first.
		if v, ok := rl.local.Get(key); ok {
			return v.(*rate.Limiter)
		}
	}
	return l
}

// Reset clears the counters for a client on an endpoint.
func (rl *RateLimiter) Reset(ctx context.Context, clientIP, endpoint string) error {
	key := rateLimitKey(endpoint, clientIP)
	rl.local.Delete(key)
	if rl.cfg.Redis == nil {
		return nil
	}
	return rl.cfg.Redis.Del(ctx, key).Err()
}
