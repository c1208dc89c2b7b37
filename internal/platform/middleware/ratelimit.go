package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"kycgate/pkg/platform/httputil"
	"kycgate/pkg/requestcontext"
)

// slidingWindow tracks request timestamps for one client. The sliding
// window avoids the burst-at-boundary problem of fixed counters.
type slidingWindow struct {
	timestamps []time.Time
}

func (sw *slidingWindow) cleanup(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)
	kept := sw.timestamps[:0]
	for _, ts := range sw.timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	sw.timestamps = kept
}

// RateLimiter applies a per-client sliding window limit keyed by client IP.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*slidingWindow
	limit   int
	window  time.Duration
}

// NewRateLimiter builds a limiter allowing limit requests per window per
// client.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*slidingWindow),
		limit:   limit,
		window:  window,
	}
}

// allow records one request for key and reports whether it fits the window.
func (l *RateLimiter) allow(key string, now time.Time) (allowed bool, remaining int, resetAt time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	sw := l.buckets[key]
	if sw == nil {
		sw = &slidingWindow{}
		l.buckets[key] = sw
	}
	sw.cleanup(now, l.window)

	if len(sw.timestamps)+1 > l.limit {
		return false, 0, sw.timestamps[0].Add(l.window)
	}
	sw.timestamps = append(sw.timestamps, now)
	resetAt = sw.timestamps[0].Add(l.window)
	return true, l.limit - len(sw.timestamps), resetAt
}

// Handler enforces the limit and sets the conventional X-RateLimit headers.
// Requests over the limit get 429 with a Retry-After hint.
func (l *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := requestcontext.ClientIP(r.Context())
		if key == "" {
			key = r.RemoteAddr
		}

		now := time.Now()
		allowed, remaining, resetAt := l.allow(key, now)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			retryAfter := int(time.Until(resetAt).Seconds()) + 1
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			httputil.WriteJSON(w, http.StatusTooManyRequests, map[string]string{
				"error":             "rate_limit_exceeded",
				"error_description": "too many requests, slow down",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
