package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/symptom-dx-server/internal/domain"
)

// RateLimiter throttles requests per client IP with a token bucket. Idle
// clients are forgotten after the configured TTL.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	clients *gocache.Cache
}

// NewRateLimiter creates a per-client limiter from cfg.
func NewRateLimiter(cfg domain.RateLimitConfig) *RateLimiter {
	ttl := cfg.ClientTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RateLimiter{
		limit:   rate.Limit(cfg.RequestsPerSecond),
		burst:   cfg.Burst,
		clients: gocache.New(ttl, 2*ttl),
	}
}

// limiter returns the bucket for key, creating it on first use.
func (r *RateLimiter) limiter(key string) *rate.Limiter {
	if l, found := r.clients.Get(key); found {
		return l.(*rate.Limiter)
	}
	l := rate.NewLimiter(r.limit, r.burst)
	if err := r.clients.Add(key, l, gocache.DefaultExpiration); err != nil {
		// Another request created it first.
		if existing, found := r.clients.Get(key); found {
			return existing.(*rate.Limiter)
		}
	}
	return l
}

// Allow reports whether a request from key may proceed now.
func (r *RateLimiter) Allow(key string) bool {
	return r.limiter(key).Allow()
}

// Clients returns the number of tracked clients.
func (r *RateLimiter) Clients() int {
	return r.clients.ItemCount()
}

// Middleware rejects over-limit requests with 429.
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !r.Allow(c.ClientIP()) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"status":     "error",
				"code":       domain.ErrCodeRateLimit,
				"message":    "Too many requests",
				"request_id": c.GetString(RequestIDKey),
			})
			return
		}
		c.Next()
	}
}
