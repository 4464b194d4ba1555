// Package auth implements analyst login via GitHub OAuth. Sessions are held
// in memory; restarting the server logs everyone out.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"sync"
	"time"

	gogithub "github.com/google/go-github/v69/github"
	"golang.org/x/oauth2"
	oauthgithub "golang.org/x/oauth2/github"

	"github.com/goccy/go-json"
)

// Config carries the GitHub OAuth app credentials. Zero ClientID disables
// auth entirely and every endpoint is open.
type Config struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
}

// Enabled reports whether OAuth credentials are configured.
func (c Config) Enabled() bool {
	return c.ClientID != ""
}

// Analyst is a logged-in dashboard user.
type Analyst struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// Handler serves the OAuth login flow.
type Handler struct {
	oauth    *oauth2.Config
	sessions *SessionManager
	logger   *slog.Logger

	// Pending OAuth states, TTL 10 min.
	mu     sync.Mutex
	states map[string]time.Time
}

// NewHandler creates the OAuth handler.
func NewHandler(cfg Config, sm *SessionManager, logger *slog.Logger) *Handler {
	return &Handler{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     oauthgithub.Endpoint,
			RedirectURL:  cfg.BaseURL + "/auth/github/callback",
			Scopes:       []string{"read:user"},
		},
		sessions: sm,
		logger:   logger,
		states:   make(map[string]time.Time),
	}
}

func (h *Handler) generateState() string {
	b := make([]byte, 16)
	rand.Read(b)
	state := hex.EncodeToString(b)

	h.mu.Lock()
	h.states[state] = time.Now()
	h.mu.Unlock()
	return state
}

func (h *Handler) validateState(state string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	created, ok := h.states[state]
	if !ok {
		return false
	}
	delete(h.states, state)
	return time.Since(created) <= 10*time.Minute
}

// StateCleanupLoop removes expired states every 5 minutes.
func (h *Handler) StateCleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.mu.Lock()
			for k, created := range h.states {
				if time.Since(created) > 10*time.Minute {
					delete(h.states, k)
				}
			}
			h.mu.Unlock()
		}
	}
}

// BeginLogin redirects to GitHub OAuth.
func (h *Handler) BeginLogin(w http.ResponseWriter, r *http.Request) {
	state := h.generateState()
	http.Redirect(w, r, h.oauth.AuthCodeURL(state), http.StatusFound)
}

// Callback handles the OAuth callback: exchanges the code, fetches the
// GitHub profile, and creates a session.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("oauth denied by user", "error", errParam)
		http.Redirect(w, r, "/?error=denied", http.StatusFound)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, `{"error":"missing code parameter"}`, http.StatusBadRequest)
		return
	}
	if !h.validateState(r.URL.Query().Get("state")) {
		http.Error(w, `{"error":"invalid or expired state"}`, http.StatusBadRequest)
		return
	}

	token, err := h.oauth.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("oauth exchange failed", "err", err)
		http.Error(w, `{"error":"github auth failed"}`, http.StatusBadRequest)
		return
	}

	client := gogithub.NewClient(h.oauth.Client(r.Context(), token))
	ghUser, _, err := client.Users.Get(r.Context(), "")
	if err != nil {
		h.logger.Error("github user fetch failed", "err", err)
		http.Error(w, `{"error":"github user fetch failed"}`, http.StatusInternalServerError)
		return
	}

	analyst := &Analyst{
		ID:        ghUser.GetID(),
		Login:     ghUser.GetLogin(),
		Name:      ghUser.GetName(),
		AvatarURL: ghUser.GetAvatarURL(),
	}
	h.sessions.Create(w, analyst)
	http.Redirect(w, r, "/", http.StatusFound)
}

// Me returns the current analyst as JSON.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	analyst := h.sessions.Validate(r)
	w.Header().Set("Content-Type", "application/json")
	if analyst == nil {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "not authenticated"})
		return
	}
	json.NewEncoder(w).Encode(analyst)
}

// Logout destroys the session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Destroy(w, r)
	http.Redirect(w, r, "/", http.StatusFound)
}
