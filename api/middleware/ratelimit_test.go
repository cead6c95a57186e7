package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/stproxy/config"
)

func limitedRouter(cfg config.RateLimitConfig, handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(cfg))
	r.POST("/validate", handler)
	return r
}

func TestRateLimit_BucketExhaustion(t *testing.T) {
	r := limitedRouter(config.RateLimitConfig{
		RequestsPerSecond:     0.001,
		Burst:                 1,
		MaxConcurrentSessions: 10,
	}, func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/validate", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", first.Code)
	}

	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/validate", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", second.Code)
	}
}

func TestRateLimit_SessionGate(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var enteredOnce sync.Once

	// Bucket is wide open so only the session cap can trip.
	r := limitedRouter(config.RateLimitConfig{
		RequestsPerSecond:     1000,
		Burst:                 1000,
		MaxConcurrentSessions: 1,
	}, func(c *gin.Context) {
		enteredOnce.Do(func() { close(entered) })
		<-release
		c.String(http.StatusOK, "ok")
	})

	var wg sync.WaitGroup
	wg.Add(1)
	firstCode := 0
	go func() {
		defer wg.Done()
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/validate", nil))
		firstCode = w.Code
	}()

	<-entered

	// The slot is held by the in-flight request; the next one must bounce.
	blocked := httptest.NewRecorder()
	r.ServeHTTP(blocked, httptest.NewRequest(http.MethodPost, "/validate", nil))
	if blocked.Code != http.StatusTooManyRequests {
		t.Errorf("concurrent request status = %d, want 429", blocked.Code)
	}

	close(release)
	wg.Wait()
	if firstCode != http.StatusOK {
		t.Errorf("in-flight request status = %d, want 200", firstCode)
	}

	// Slot released; sequential requests pass again.
	after := httptest.NewRecorder()
	r.ServeHTTP(after, httptest.NewRequest(http.MethodPost, "/validate", nil))
	if after.Code != http.StatusOK {
		t.Errorf("post-release request status = %d, want 200", after.Code)
	}
}

func TestRateLimit_GateDisabled(t *testing.T) {
	r := limitedRouter(config.RateLimitConfig{
		RequestsPerSecond:     1000,
		Burst:                 1000,
		MaxConcurrentSessions: 0,
	}, func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/validate", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, w.Code)
		}
	}
}
