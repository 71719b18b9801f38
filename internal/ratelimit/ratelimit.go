// Package ratelimit provides a fixed-window request limiter backed by
// Redis, applied per route template and client IP.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Limiter counts requests per key in fixed one-minute windows. The counter
// is INCRed on every hit and given the window TTL on first touch; once it
// exceeds the limit, requests are rejected until the key expires.
type Limiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
}

func New(rdb *redis.Client, perMinute int) *Limiter {
	return &Limiter{rdb: rdb, limit: perMinute, window: time.Minute}
}

// Allow records one hit against key and reports whether it stays within the
// window's budget.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit incr failed: %w", err)
	}
	if count == 1 {
		if err := l.rdb.Expire(ctx, key, l.window).Err(); err != nil {
			return false, fmt.Errorf("rate limit expire failed: %w", err)
		}
	}
	return count <= int64(l.limit), nil
}

// Middleware enforces the limit for the matched route. It is mounted before
// authentication so unauthenticated floods are cut off without a token
// parse or user lookup.
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ratelimit:" + c.FullPath() + ":" + c.ClientIP()
		allowed, err := l.Allow(c.Request.Context(), key)
		if err != nil {
			slog.Error("Rate limit check failed", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"detail": "Too Many Requests"})
			return
		}
		c.Next()
	}
}
