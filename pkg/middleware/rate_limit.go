package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yeisme/staticmd/pkg/configs"
)

const (
	limiterIdleTTL      = 10 * time.Minute
	limiterSweepEvery   = time.Minute
	maxLimiterEntries   = 10000
	rateLimitedResponse = "rate limit exceeded"
)

type keyedLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware 上传接口限流. key 为 global 时全局共享，ip 按上传来源，
// header:Name 按请求头，缺失时退回来源地址.
func RateLimitMiddleware(cfg configs.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RPS <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	keyMode := strings.ToLower(strings.TrimSpace(cfg.Key))
	if keyMode == "global" {
		limiter := rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)

		return func(c *gin.Context) {
			if !limiter.Allow() {
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": rateLimitedResponse})
				return
			}

			c.Next()
		}
	}

	var (
		mu       sync.Mutex
		limiters = map[string]*keyedLimiter{}
		lastScan time.Time
	)

	get := func(key string, now time.Time) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()

		// 顺带清理闲置条目，不单独起 goroutine
		if now.Sub(lastScan) > limiterSweepEvery || len(limiters) > maxLimiterEntries {
			for k, l := range limiters {
				if now.Sub(l.lastSeen) > limiterIdleTTL {
					delete(limiters, k)
				}
			}

			lastScan = now
		}

		l, ok := limiters[key]
		if !ok {
			l = &keyedLimiter{limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)}
			limiters[key] = l
		}

		l.lastSeen = now

		return l.limiter
	}

	return func(c *gin.Context) {
		key := ""
		if h, ok := strings.CutPrefix(keyMode, "header:"); ok {
			key = c.GetHeader(h)
		}

		if key == "" {
			key = ClientOrigin(c)
		}

		if !get(key, time.Now()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": rateLimitedResponse})
			return
		}

		c.Next()
	}
}
