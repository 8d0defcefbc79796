package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fixedClock(l *Limiter, start time.Time) *time.Time {
	cur := start
	l.now = func() time.Time { return cur }
	return &cur
}

func TestAllow_BurstThenRefill(t *testing.T) {
	l := New(60, 3, zap.NewNop())
	clock := fixedClock(l, time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("10.0.0.1"), "request %d within burst", i+1)
	}
	assert.False(t, l.Allow("10.0.0.1"), "burst exhausted")
	assert.True(t, l.Allow("10.0.0.2"), "other clients have their own bucket")

	*clock = clock.Add(time.Second)
	assert.True(t, l.Allow("10.0.0.1"), "one token refilled after a second")
	assert.False(t, l.Allow("10.0.0.1"))
}

func TestAllow_EvictsIdleClients(t *testing.T) {
	l := New(60, 1, zap.NewNop())
	clock := fixedClock(l, time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))

	l.Allow("a")
	l.Allow("b")
	require.Equal(t, 2, l.Tracked())

	*clock = clock.Add(10 * time.Minute)
	l.Allow("c")
	assert.Equal(t, 1, l.Tracked())
}

func TestNilLimiterAllowsEverything(t *testing.T) {
	l := New(0, 5, zap.NewNop())
	require.Nil(t, l)
	assert.True(t, l.Allow("x"))
	assert.Equal(t, 0, l.Tracked())

	called := false
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/user/login", nil))
	assert.True(t, called)
}

func TestMiddleware_Returns429(t *testing.T) {
	l := New(6, 1, zap.NewNop())
	fixedClock(l, time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))

	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusFound)
	}))

	req := httptest.NewRequest("GET", "/user/login", nil)
	req.RemoteAddr = "192.0.2.7:51234"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "10", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), `"code":"rate_limited"`)
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "203.0.113.9:443"
	assert.Equal(t, "203.0.113.9", ClientIP(r))

	r.RemoteAddr = "203.0.113.9"
	assert.Equal(t, "203.0.113.9", ClientIP(r))
}
