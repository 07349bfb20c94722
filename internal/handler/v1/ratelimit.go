package v1

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/trialflow/trialflow/internal/config"
	"golang.org/x/time/rate"
)

// limiterPool keeps one token bucket per client IP. Entries idle for more
// than an hour are pruned on the next lookup so the map stays bounded.
type limiterPool struct {
	mu       sync.Mutex
	limiters map[string]*poolEntry
	limit    rate.Limit
	burst    int
	lastGC   time.Time
}

type poolEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLimiterPool(limit rate.Limit, burst int) *limiterPool {
	return &limiterPool{
		limiters: make(map[string]*poolEntry),
		limit:    limit,
		burst:    burst,
		lastGC:   time.Now(),
	}
}

func (p *limiterPool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	if now.Sub(p.lastGC) > time.Hour {
		for k, e := range p.limiters {
			if now.Sub(e.lastSeen) > time.Hour {
				delete(p.limiters, k)
			}
		}
		p.lastGC = now
	}

	e, ok := p.limiters[key]
	if !ok {
		e = &poolEntry{limiter: rate.NewLimiter(p.limit, p.burst)}
		p.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter
}

// RateLimit applies the global per-IP request limit.
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	pool := newLimiterPool(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize)
	return func(c *gin.Context) {
		if !pool.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Error: "too many requests",
				Code:  "RATE_LIMITED",
			})
			return
		}
		c.Next()
	}
}

// AuthRateLimit applies the stricter per-IP limit for credential endpoints.
func AuthRateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	perSecond := rate.Limit(float64(cfg.AuthRequestsPerMinute) / 60.0)
	pool := newLimiterPool(perSecond, cfg.AuthRequestsPerMinute)
	return func(c *gin.Context) {
		if !pool.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Error: "too many authentication attempts",
				Code:  "RATE_LIMITED",
			})
			return
		}
		c.Next()
	}
}
