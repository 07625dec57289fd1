package middleware

import (
	"context"
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// IPRateLimiter keeps one token bucket per client IP. Buckets idle for longer than
// the janitor's maxIdle are dropped (see Sweep and Run).
type IPRateLimiter struct {
	limiters sync.Map // ip -> *visitor
	rate     rate.Limit
	burst    int
	now      func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

func NewIPRateLimiter(r rate.Limit, burst int) *IPRateLimiter {
	return &IPRateLimiter{rate: r, burst: burst, now: time.Now}
}

// GetLimiter returns the limiter for ip, creating it on first use.
func (l *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	v, ok := l.limiters.Load(ip)
	if !ok {
		v, _ = l.limiters.LoadOrStore(ip, &visitor{limiter: rate.NewLimiter(l.rate, l.burst)})
	}
	vis := v.(*visitor)
	vis.lastSeen.Store(l.now().UnixNano())
	return vis.limiter
}

// Sweep drops buckets not used for maxIdle and returns how many were removed.
// A dropped client simply starts again with a full bucket.
func (l *IPRateLimiter) Sweep(maxIdle time.Duration) int {
	cutoff := l.now().Add(-maxIdle).UnixNano()
	removed := 0
	l.limiters.Range(func(key, v any) bool {
		if v.(*visitor).lastSeen.Load() < cutoff {
			l.limiters.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

// Len is the number of tracked clients.
func (l *IPRateLimiter) Len() int {
	n := 0
	l.limiters.Range(func(any, any) bool { n++; return true })
	return n
}

// Run sweeps every interval until ctx is done.
func (l *IPRateLimiter) Run(ctx context.Context, interval, maxIdle time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.Sweep(maxIdle)
		}
	}
}

// RateLimit answers 429 with Retry-After once a client exceeds its bucket.
// A nil limiter disables the check.
func RateLimit(l *IPRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.GetLimiter(clientIP(r)).Allow() {
				retry := 1
				if l.rate > 0 {
					retry = int(math.Ceil(1 / float64(l.rate)))
				}
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]string{"code": "rate_limited", "message": "too many requests"},
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
