// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/dalemusser/phonebook/internal/app/system/apperr"
	"github.com/dalemusser/phonebook/internal/app/system/jsonio"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Limiter hands out one token bucket per client key. Buckets idle longer
// than the refill horizon are dropped on a later call.
// It is safe for concurrent use.
type Limiter struct {
	mu        sync.Mutex
	clients   map[string]*client
	every     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
	log       *zap.Logger
}

type client struct {
	lim  *rate.Limiter
	seen time.Time
}

// New allows perMinute requests per client on average with bursts of up to
// burst. perMinute <= 0 returns nil, and a nil Limiter allows everything.
func New(perMinute, burst int, logger *zap.Logger) *Limiter {
	if perMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	interval := time.Minute / time.Duration(perMinute)
	return &Limiter{
		clients: make(map[string]*client),
		every:   rate.Every(interval),
		burst:   burst,
		idle:    interval*time.Duration(burst) + time.Minute,
		now:     time.Now,
		log:     logger,
	}
}

// Allow reports whether key may make a request now.
func (l *Limiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > l.idle {
		for k, c := range l.clients {
			if now.Sub(c.seen) > l.idle {
				delete(l.clients, k)
			}
		}
		l.lastSweep = now
	}

	c, ok := l.clients[key]
	if !ok {
		c = &client{lim: rate.NewLimiter(l.every, l.burst)}
		l.clients[key] = c
	}
	c.seen = now
	return c.lim.AllowN(now, 1)
}

// Tracked is the number of client buckets currently held.
func (l *Limiter) Tracked() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Middleware rejects over-limit clients with 429 and a Retry-After hint.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	if l == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r)
		if !l.Allow(ip) {
			retry := int(time.Duration(float64(time.Second) / float64(l.every)).Seconds())
			if retry < 1 {
				retry = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			if l.log != nil {
				l.log.Warn("rate limited", zap.String("ip", ip), zap.String("path", r.URL.Path))
			}
			jsonio.Error(w, r, l.log, apperr.RateLimited("too many requests, retry later"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP is the host part of RemoteAddr. chi's RealIP middleware runs
// earlier and has already applied X-Forwarded-For / X-Real-IP.
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
