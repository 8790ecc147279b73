package middleware

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"almoner/pkg/requestcontext"
)

// slidingWindow tracks request timestamps for sliding-window rate limiting,
// which avoids the burst-at-boundary problem of fixed windows.
type slidingWindow struct {
	timestamps []time.Time
	window     time.Duration
}

func (sw *slidingWindow) cleanup(now time.Time) {
	cutoff := now.Add(-sw.window)
	i := 0
	for ; i < len(sw.timestamps); i++ {
		if sw.timestamps[i].After(cutoff) {
			break
		}
	}
	sw.timestamps = sw.timestamps[i:]
}

// RateLimiter bounds requests per caller over a sliding window. In-memory
// and per-process; good enough for the single open mutating endpoint it
// protects.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*slidingWindow
	limit   int
	window  time.Duration
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*slidingWindow),
		limit:   limit,
		window:  window,
	}
}

// Allow records one request for key and reports whether it fits the limit.
func (rl *RateLimiter) Allow(key string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	sw := rl.buckets[key]
	if sw == nil {
		sw = &slidingWindow{window: rl.window}
		rl.buckets[key] = sw
	}
	sw.cleanup(now)
	if len(sw.timestamps) >= rl.limit {
		return false
	}
	sw.timestamps = append(sw.timestamps, now)
	return true
}

// Limit rejects requests beyond the caller's budget with 429. Run it after
// RequireCaller so the key is the authenticated address, not a spoofable
// header.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := requestcontext.Caller(r.Context())
		if key == "" {
			key = r.RemoteAddr
		}
		if !rl.Allow(key, time.Now()) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate_limited"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
