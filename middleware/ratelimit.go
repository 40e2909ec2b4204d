// Package middleware 提供预测服务使用的 Gin 中间件。
package middleware

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/gykovacs/vessel-sub003/config"
	"github.com/gykovacs/vessel-sub003/response"
)

// ipLimiters 为每个客户端 IP 维护一个令牌桶。
type ipLimiters struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	buckets map[string]*rate.Limiter
}

func (l *ipLimiters) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[key]
	if !ok {
		b = rate.NewLimiter(l.limit, l.burst)
		l.buckets[key] = b
	}
	return b
}

// RateLimit 按客户端 IP 做本地令牌桶限流，未启用时直接放行。
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.Rate <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = cfg.Rate
	}
	limiters := &ipLimiters{
		limit:   rate.Limit(cfg.Rate),
		burst:   burst,
		buckets: make(map[string]*rate.Limiter),
	}

	return func(c *gin.Context) {
		key := c.ClientIP()
		if !limiters.get(key).Allow() {
			slog.WarnContext(c.Request.Context(), "request rejected by rate limiter", "key", key, "path", c.Request.URL.Path)
			response.ErrorWithStatus(c, http.StatusTooManyRequests, "too many requests", "access rate limit exceeded")
			c.Abort()
			return
		}
		c.Next()
	}
}
