package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRoundTrip(t *testing.T) {
	sm := NewSessionManager(false)
	analyst := &Analyst{ID: 42, Login: "octocat"}

	rec := httptest.NewRecorder()
	sm.Create(rec, analyst)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, SessionCookie, cookies[0].Name)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	got := sm.Validate(req)
	require.NotNil(t, got)
	assert.Equal(t, int64(42), got.ID)
	assert.Equal(t, "octocat", got.Login)
}

func TestValidateWithoutCookie(t *testing.T) {
	sm := NewSessionManager(false)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, sm.Validate(req))
}

func TestDestroyInvalidatesSession(t *testing.T) {
	sm := NewSessionManager(false)

	rec := httptest.NewRecorder()
	sm.Create(rec, &Analyst{ID: 1, Login: "a"})
	cookie := rec.Result().Cookies()[0]

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(cookie)
	sm.Destroy(httptest.NewRecorder(), req)

	check := httptest.NewRequest(http.MethodGet, "/", nil)
	check.AddCookie(cookie)
	assert.Nil(t, sm.Validate(check))
}

func TestRequireAuthDisabledPassesThrough(t *testing.T) {
	sm := NewSessionManager(false)
	handler := RequireAuth(Config{}, sm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuthRejectsAnonymous(t *testing.T) {
	sm := NewSessionManager(false)
	cfg := Config{ClientID: "abc"}
	handler := RequireAuth(cfg, sm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthAcceptsSession(t *testing.T) {
	sm := NewSessionManager(false)
	cfg := Config{ClientID: "abc"}

	rec := httptest.NewRecorder()
	sm.Create(rec, &Analyst{ID: 7, Login: "analyst"})
	cookie := rec.Result().Cookies()[0]

	var seen *Analyst
	handler := RequireAuth(cfg, sm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = AnalystFromCtx(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	out := httptest.NewRecorder()
	handler.ServeHTTP(out, req)

	assert.Equal(t, http.StatusOK, out.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "analyst", seen.Login)
}
