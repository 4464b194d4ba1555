package auth

import (
	"context"
	"net/http"
)

type ctxKey string

const analystCtxKey ctxKey = "analyst"

// RequireAuth rejects requests without a valid session. When auth is not
// configured (no client ID) it passes everything through.
func RequireAuth(cfg Config, sm *SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled() {
				next.ServeHTTP(w, r)
				return
			}
			analyst := sm.Validate(r)
			if analyst == nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"authentication required"}`))
				return
			}
			ctx := context.WithValue(r.Context(), analystCtxKey, analyst)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AnalystFromCtx extracts the analyst from the request context.
func AnalystFromCtx(ctx context.Context) *Analyst {
	a, _ := ctx.Value(analystCtxKey).(*Analyst)
	return a
}
