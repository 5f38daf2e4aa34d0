package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wardenhq/warden/pkg/auth"
	"github.com/wardenhq/warden/pkg/contextkeys"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(&RateLimitConfig{
		RequestsPerWindow: 3,
		WindowDuration:    time.Minute,
		BurstSize:         0,
	})

	assert.True(t, rl.Allow("key"))
	assert.True(t, rl.Allow("key"))
	assert.True(t, rl.Allow("key"))
	assert.False(t, rl.Allow("key"))

	// Other keys have their own buckets
	assert.True(t, rl.Allow("other"))
}

func TestRateLimiter_Refill(t *testing.T) {
	rl := NewRateLimiter(&RateLimitConfig{
		RequestsPerWindow: 60,
		WindowDuration:    time.Minute,
		BurstSize:         0,
	})

	for i := 0; i < 60; i++ {
		assert.True(t, rl.Allow("key"))
	}
	assert.False(t, rl.Allow("key"))

	// Backdate the bucket one second; one token should refill
	rl.mu.Lock()
	rl.buckets["key"].lastUpdate = time.Now().Add(-time.Second)
	rl.mu.Unlock()

	assert.True(t, rl.Allow("key"))
	assert.False(t, rl.Allow("key"))
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(&RateLimitConfig{
		RequestsPerWindow: 10,
		WindowDuration:    time.Minute,
		BurstSize:         0,
	})

	rl.Allow("stale")
	rl.mu.Lock()
	rl.buckets["stale"].lastUpdate = time.Now().Add(-3 * time.Minute)
	rl.mu.Unlock()

	rl.Cleanup()

	rl.mu.RLock()
	_, exists := rl.buckets["stale"]
	rl.mu.RUnlock()
	assert.False(t, exists)
}

func TestRateLimitMiddleware_KeysByPrincipal(t *testing.T) {
	m := NewRateLimitMiddleware(nil, nil)
	m.userLimiter = NewRateLimiter(&RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute})
	m.anonLimiter = NewRateLimiter(&RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute})

	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	authedReq := func(id string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		ac := &auth.AuthContext{
			Principal: &auth.Principal{ID: id, SystemRole: auth.SystemRoleUser},
			Session:   &auth.Session{ID: "s", PrincipalID: id},
		}
		return req.WithContext(contextkeys.WithAuth(req.Context(), ac))
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedReq("u1"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, authedReq("u1"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// A different principal is not throttled by u1's bucket
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, authedReq("u2"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewRateLimitMiddlewareHonorsConfig(t *testing.T) {
	m := NewRateLimitMiddleware(&RateLimitConfig{
		RequestsPerWindow: 200,
		WindowDuration:    30 * time.Second,
	}, nil)

	// Per-user budget comes straight from the config, with a derived
	// burst of one twentieth.
	assert.Equal(t, 200, m.userLimiter.config.RequestsPerWindow)
	assert.Equal(t, 30*time.Second, m.userLimiter.config.WindowDuration)
	assert.Equal(t, 10, m.userLimiter.config.BurstSize)

	// Anonymous budget is a tenth of the per-user one.
	assert.Equal(t, 20, m.anonLimiter.config.RequestsPerWindow)
	assert.Equal(t, 30*time.Second, m.anonLimiter.config.WindowDuration)
	assert.Equal(t, 2, m.anonLimiter.config.BurstSize)
}

func TestNewRateLimitMiddlewareDefaults(t *testing.T) {
	m := NewRateLimitMiddleware(nil, nil)

	assert.Equal(t, PerUserRateLimitConfig(), m.userLimiter.config)
	assert.Equal(t, DefaultRateLimitConfig(), m.anonLimiter.config)
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	assert.Equal(t, "10.0.0.1", getClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", getClientIP(req))
}
