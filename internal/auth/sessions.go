package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"
	"time"
)

const (
	SessionCookie = "argus_sid"
	SessionMaxAge = 30 * 24 * time.Hour
)

type session struct {
	analyst   *Analyst
	expiresAt time.Time
}

// SessionManager keeps analyst sessions in memory.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*session
	secure   bool
}

// NewSessionManager creates a session manager. secure controls the cookie
// Secure flag and should be true behind TLS.
func NewSessionManager(secure bool) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*session),
		secure:   secure,
	}
}

// Create registers a session for the analyst and sets the cookie.
func (sm *SessionManager) Create(w http.ResponseWriter, analyst *Analyst) {
	b := make([]byte, 32)
	rand.Read(b)
	id := hex.EncodeToString(b)

	sm.mu.Lock()
	sm.sessions[id] = &session{analyst: analyst, expiresAt: time.Now().Add(SessionMaxAge)}
	sm.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(SessionMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   sm.secure,
	})
}

// Validate reads the cookie and returns the analyst, or nil.
func (sm *SessionManager) Validate(r *http.Request) *Analyst {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil
	}

	sm.mu.RLock()
	s, ok := sm.sessions[cookie.Value]
	sm.mu.RUnlock()
	if !ok || s.expiresAt.Before(time.Now()) {
		return nil
	}
	return s.analyst
}

// Destroy deletes the session and clears the cookie.
func (sm *SessionManager) Destroy(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		sm.mu.Lock()
		delete(sm.sessions, cookie.Value)
		sm.mu.Unlock()
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   sm.secure,
	})
}

// CleanupLoop purges expired sessions hourly.
func (sm *SessionManager) CleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			sm.mu.Lock()
			for id, s := range sm.sessions {
				if s.expiresAt.Before(now) {
					delete(sm.sessions, id)
				}
			}
			sm.mu.Unlock()
		}
	}
}
