package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowWithinLimit(t *testing.T) {
	l := New()
	bucket := Bucket{MaxRequests: 3, Window: time.Minute}

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("k", bucket))
	}
	assert.False(t, l.Allow("k", bucket))
}

func TestAllowKeysIndependent(t *testing.T) {
	l := New()
	bucket := Bucket{MaxRequests: 1, Window: time.Minute}

	assert.True(t, l.Allow("a", bucket))
	assert.False(t, l.Allow("a", bucket))
	assert.True(t, l.Allow("b", bucket))
}

func TestAllowWindowExpiry(t *testing.T) {
	l := New()
	bucket := Bucket{MaxRequests: 1, Window: 10 * time.Millisecond}

	require.True(t, l.Allow("k", bucket))
	require.False(t, l.Allow("k", bucket))
	time.Sleep(20 * time.Millisecond)
	assert.True(t, l.Allow("k", bucket))
}

func TestMiddlewareRejectsOverQuota(t *testing.T) {
	l := New()
	DefaultBuckets["test"] = Bucket{MaxRequests: 2, Window: time.Minute}
	handler := l.Middleware("test")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestMiddlewareUsesRealIPHeader(t *testing.T) {
	l := New()
	DefaultBuckets["hdr"] = Bucket{MaxRequests: 1, Window: time.Minute}
	handler := l.Middleware("hdr")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRequest(http.MethodGet, "/", nil)
	first.Header.Set("X-Real-IP", "1.2.3.4")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	require.Equal(t, http.StatusOK, rec.Code)

	second := httptest.NewRequest(http.MethodGet, "/", nil)
	second.Header.Set("X-Real-IP", "1.2.3.4")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, second)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	other := httptest.NewRequest(http.MethodGet, "/", nil)
	other.Header.Set("X-Real-IP", "5.6.7.8")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusOK, rec.Code)
}
