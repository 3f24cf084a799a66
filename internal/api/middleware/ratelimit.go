package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/d60-Lab/warbler/pkg/response"
)

// IPRateLimiter 按客户端 IP 限流，空闲超过 ttl 的条目会被清理
type IPRateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*visitor
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	now       func() time.Time
	nextSweep time.Time // 空闲条目至多每 ttl 清理一次
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewIPRateLimiter(rps float64, burst int, ttl time.Duration) *IPRateLimiter {
	if burst < 1 {
		burst = 1
	}
	if ttl <= 0 {
		ttl = 3 * time.Minute
	}
	return &IPRateLimiter{
		limiters: make(map[string]*visitor),
		limit:    rate.Limit(rps),
		burst:    burst,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (l *IPRateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.After(l.nextSweep) {
		l.sweep(now)
	}
	v, ok := l.limiters[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// sweep drops visitors idle longer than ttl; caller holds mu.
func (l *IPRateLimiter) sweep(now time.Time) {
	for k, v := range l.limiters {
		if now.Sub(v.lastSeen) > l.ttl {
			delete(l.limiters, k)
		}
	}
	l.nextSweep = now.Add(l.ttl)
}

// RateLimit rejects requests over the per-IP budget with 429. A non-positive
// rps disables limiting. onReject may be nil.
func RateLimit(l *IPRateLimiter, onReject func(*gin.Context)) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil || l.limit <= 0 {
			c.Next()
			return
		}
		if !l.Allow(c.ClientIP()) {
			if onReject != nil {
				onReject(c)
			}
			response.TooManyRequests(c, "rate limit exceeded")
			return
		}
		c.Next()
	}
}
