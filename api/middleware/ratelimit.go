package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/use-agent/agentlens/config"
	"github.com/use-agent/agentlens/models"
)

const (
	limiterIdleTTL  = time.Hour
	limiterSweepGap = 5 * time.Minute
)

// limiterPool hands out one token bucket per caller identity and forgets
// identities that have been idle past limiterIdleTTL.
type limiterPool struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rps     rate.Limit
	burst   int
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLimiterPool(cfg config.RateLimitConfig) *limiterPool {
	p := &limiterPool{
		buckets: make(map[string]*bucket),
		rps:     rate.Limit(cfg.RequestsPerSecond),
		burst:   cfg.Burst,
	}
	go p.sweep()
	return p
}

func (p *limiterPool) allow(identity string) bool {
	p.mu.Lock()
	b, ok := p.buckets[identity]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(p.rps, p.burst)}
		p.buckets[identity] = b
	}
	b.lastSeen = time.Now()
	p.mu.Unlock()

	return b.limiter.Allow()
}

func (p *limiterPool) sweep() {
	ticker := time.NewTicker(limiterSweepGap)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-limiterIdleTTL)
		p.mu.Lock()
		for id, b := range p.buckets {
			if b.lastSeen.Before(cutoff) {
				delete(p.buckets, id)
			}
		}
		p.mu.Unlock()
	}
}

// RateLimit throttles per caller: the authenticated API key when Auth ran,
// otherwise the client IP. An analysis holds a real browser for its whole
// duration, so the default budget is deliberately tight.
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	pool := newLimiterPool(cfg)

	return func(c *gin.Context) {
		identity := c.GetString(identityKey)
		if identity == "" {
			identity = c.ClientIP()
		}

		if !pool.allow(identity) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.AnalyzeResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeRateLimited,
					Message: "rate limit exceeded, slow down",
				},
			})
			return
		}
		c.Next()
	}
}
