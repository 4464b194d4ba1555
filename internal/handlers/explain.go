package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/argus-triage/argus-go/internal/store"
)

// Explain handles GET /api/explain/{event_id}: why an event was classified
// the way it was.
func (a *API) Explain(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "event_id")
	ev, err := a.store.GetByID(r.Context(), id)
	if err != nil {
		if err == store.ErrNotFound {
			jsonError(w, "event not found", http.StatusNotFound)
			return
		}
		a.logger.Error("explain fetch failed", "err", err, "event_id", id)
		jsonError(w, "failed to fetch event", http.StatusInternalServerError)
		return
	}

	expl := a.pipeline.Explain(r.Context(), ev)
	writeJSON(w, http.StatusOK, expl)
}
