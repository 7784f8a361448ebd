package middlewares

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/albertniderhofer/S3PolicyManager/metrics"
	"github.com/albertniderhofer/S3PolicyManager/pkg/apperr"
	"github.com/albertniderhofer/S3PolicyManager/pkg/types"
)

// RateLimiter keeps one token bucket per API key.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	r        rate.Limit
	burst    int
}

func NewRateLimiter(r rate.Limit, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		r:        r,
		burst:    burst,
	}
}

func (rl *RateLimiter) getLimiter(apiKey string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[apiKey]
	if !exists {
		limiter = rate.NewLimiter(rl.r, rl.burst)
		rl.limiters[apiKey] = limiter
	}
	return limiter
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader("X-API-Key")
		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				types.Failure(string(apperr.KindUnauthorized), "missing API key"))
			return
		}

		limiter := rl.getLimiter(apiKey)
		if !limiter.Allow() {
			metrics.HttpRateLimitRejectionsTotal.Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				types.Failure("RateLimitError", "rate limit exceeded, slow down"))
			return
		}

		c.Next()
	}
}
