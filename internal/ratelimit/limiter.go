// Package ratelimit provides an in-memory sliding-window rate limiter keyed
// by client IP and endpoint bucket.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Bucket defines rate limit parameters.
type Bucket struct {
	MaxRequests int
	Window      time.Duration
}

// DefaultBuckets maps endpoint groups to their limits. Upload and train are
// the expensive ones.
var DefaultBuckets = map[string]Bucket{
	"classify": {MaxRequests: 60, Window: time.Minute},
	"upload":   {MaxRequests: 10, Window: time.Minute},
	"train":    {MaxRequests: 3, Window: 5 * time.Minute},
	"api":      {MaxRequests: 120, Window: time.Minute},
	"auth":     {MaxRequests: 10, Window: time.Minute},
}

// Limiter is an in-memory sliding-window rate limiter per key.
type Limiter struct {
	mu   sync.Mutex
	hits map[string][]time.Time
}

// New creates a new rate limiter.
func New() *Limiter {
	return &Limiter{hits: make(map[string][]time.Time)}
}

// Allow reports whether a request identified by key is within the limit for
// the given bucket, recording it if so.
func (l *Limiter) Allow(key string, bucket Bucket) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-bucket.Window)

	times := l.hits[key]
	pruned := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			pruned = append(pruned, t)
		}
	}

	if len(pruned) >= bucket.MaxRequests {
		l.hits[key] = pruned
		return false
	}

	l.hits[key] = append(pruned, now)
	return true
}

// Middleware limits requests against the named bucket, answering 429 with a
// Retry-After header when the client is over quota.
func (l *Limiter) Middleware(bucketName string) func(http.Handler) http.Handler {
	bucket, ok := DefaultBuckets[bucketName]
	if !ok {
		bucket = Bucket{MaxRequests: 60, Window: time.Minute}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := bucketName + ":" + clientIP(r)
			if !l.Allow(key, bucket) {
				retry := strconv.Itoa(int(bucket.Window.Seconds()))
				w.Header().Set("Retry-After", retry)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"Rate limited","retry_after_seconds":` + retry + `}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Real-IP"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}
