package middlewares

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/eventgallery/gallery/utils"
)

// RateLimiter gives every client IP a token bucket of perMinute requests.
// Buckets are dropped every resetTime so idle visitors do not accumulate.
type RateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*rate.Limiter
	perMinute int
	resetTime time.Duration
}

func NewRateLimiter(perMinute int, resetTime time.Duration) *RateLimiter {
	return &RateLimiter{
		visitors:  make(map[string]*rate.Limiter),
		perMinute: perMinute,
		resetTime: resetTime,
	}
}

// Run clears the visitor table every resetTime until ctx is done.
func (rl *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(rl.resetTime)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.mu.Lock()
			rl.visitors = make(map[string]*rate.Limiter)
			rl.mu.Unlock()
		}
	}
}

func (rl *RateLimiter) limiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	l, ok := rl.visitors[ip]
	if !ok {
		l = rate.NewLimiter(rate.Limit(float64(rl.perMinute)/60), rl.perMinute)
		rl.visitors[ip] = l
	}
	return l
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, utils.ErrorBody{
				Error:   "Too many requests",
				Message: "upload rate limit exceeded, try again later",
			})
			return
		}
		c.Next()
	}
}
