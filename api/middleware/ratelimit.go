package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/stproxy/config"
	"github.com/use-agent/stproxy/models"
	"golang.org/x/time/rate"
)

// sessionLimiter guards the two scarce resources behind the validate
// endpoint: the steady-state request rate per caller, and the number of
// live Chrome pages. The per-identity token buckets absorb bursty callers;
// the slot channel bounds total concurrent sessions regardless of how many
// identities are sending, because every request that passes the bucket
// still pins a browser page for tens of seconds.
type sessionLimiter struct {
	rps   rate.Limit
	burst int

	mu      sync.Mutex
	buckets map[string]*bucketEntry

	// slots is a counting semaphore over browser sessions. Nil when the
	// concurrency cap is disabled.
	slots chan struct{}
}

type bucketEntry struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

func newSessionLimiter(cfg config.RateLimitConfig) *sessionLimiter {
	l := &sessionLimiter{
		rps:     rate.Limit(cfg.RequestsPerSecond),
		burst:   cfg.Burst,
		buckets: make(map[string]*bucketEntry),
	}
	if cfg.MaxConcurrentSessions > 0 {
		l.slots = make(chan struct{}, cfg.MaxConcurrentSessions)
	}
	return l
}

func (l *sessionLimiter) bucketFor(identity string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.buckets[identity]
	if !ok {
		entry = &bucketEntry{bucket: rate.NewLimiter(l.rps, l.burst)}
		l.buckets[identity] = entry
	}
	entry.lastSeen = time.Now()
	return entry.bucket
}

// acquire takes a session slot without blocking. Queueing would just hold
// the caller's connection open while Chrome is saturated; a fast 429 lets
// the client decide whether to retry.
func (l *sessionLimiter) acquire() bool {
	if l.slots == nil {
		return true
	}
	select {
	case l.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

func (l *sessionLimiter) release() {
	if l.slots != nil {
		<-l.slots
	}
}

// evictLoop drops buckets not seen in the last hour, every 5 minutes, so
// one-off identities don't accumulate forever.
func (l *sessionLimiter) evictLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-1 * time.Hour)
		l.mu.Lock()
		for id, entry := range l.buckets {
			if entry.lastSeen.Before(cutoff) {
				delete(l.buckets, id)
			}
		}
		l.mu.Unlock()
	}
}

// RateLimit returns middleware enforcing a per-identity token bucket
// (identity is the API key when auth ran, the client IP otherwise) and a
// global cap on concurrent browser sessions. Either limit trips a 429.
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	l := newSessionLimiter(cfg)
	go l.evictLoop()

	return func(c *gin.Context) {
		identity, exists := c.Get("api_key")
		if !exists {
			identity = c.ClientIP()
		}

		if !l.bucketFor(identity.(string)).Allow() {
			tooManyRequests(c, "rate limit exceeded, please slow down")
			return
		}

		if !l.acquire() {
			tooManyRequests(c, "all browser sessions are busy, retry shortly")
			return
		}
		defer l.release()

		c.Next()
	}
}

func tooManyRequests(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ValidateResponse{
		Success: false,
		Error: &models.ErrorDetail{
			Code:    models.ErrCodeRateLimited,
			Message: msg,
		},
	})
}
