package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/argus-triage/argus-go/internal/event"
	"github.com/argus-triage/argus-go/internal/store"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// ListEvents handles GET /api/events with optional filters: source_ip,
// attack_type, is_successful, limit, offset.
func (a *API) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f := store.Filter{
		SourceIP:   q.Get("source_ip"),
		AttackType: q.Get("attack_type"),
		Limit:      defaultListLimit,
	}
	if v := q.Get("is_successful"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			jsonError(w, "invalid is_successful", http.StatusBadRequest)
			return
		}
		f.IsSuccessful = &b
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			jsonError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		f.Limit = min(n, maxListLimit)
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			jsonError(w, "invalid offset", http.StatusBadRequest)
			return
		}
		f.Offset = n
	}

	events, err := a.store.List(r.Context(), f)
	if err != nil {
		a.logger.Error("list events failed", "err", err)
		jsonError(w, "failed to fetch events", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []*event.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"count":  len(events),
	})
}

// GetEvent handles GET /api/events/{event_id}.
func (a *API) GetEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "event_id")
	ev, err := a.store.GetByID(r.Context(), id)
	if err != nil {
		if err == store.ErrNotFound {
			jsonError(w, "event not found", http.StatusNotFound)
			return
		}
		a.logger.Error("get event failed", "err", err, "event_id", id)
		jsonError(w, "failed to fetch event", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// Storyline handles GET /api/storyline/{ip}: the chronological attack
// narrative for one source IP.
func (a *API) Storyline(w http.ResponseWriter, r *http.Request) {
	ip := chi.URLParam(r, "ip")
	events, err := a.store.ByIP(r.Context(), ip)
	if err != nil {
		a.logger.Error("storyline failed", "err", err, "ip", ip)
		jsonError(w, "failed to fetch storyline", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []*event.Event{}
	}

	attacks := 0
	successful := 0
	for _, ev := range events {
		if ev.AttackType != event.TypeNormal {
			attacks++
		}
		if ev.IsSuccessful {
			successful++
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"source_ip":          ip,
		"total_events":       len(events),
		"attack_events":      attacks,
		"successful_attacks": successful,
		"events":             events,
	})
}
