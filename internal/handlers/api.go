// Package handlers implements the HTTP API for browsing, ingesting, and
// explaining classified events.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/argus-triage/argus-go/internal/classifier"
	"github.com/argus-triage/argus-go/internal/store"
	"github.com/argus-triage/argus-go/internal/triage"
	"github.com/argus-triage/argus-go/internal/ws"
)

// API bundles the dependencies shared by every handler.
type API struct {
	store     store.Store
	pipeline  *triage.Pipeline
	clf       *classifier.Classifier
	stream    *ws.Manager // nil when the live stream is disabled
	logger    *slog.Logger
	modelPath string // empty disables model persistence after training
}

// NewAPI creates the handler set.
func NewAPI(st store.Store, pipeline *triage.Pipeline, clf *classifier.Classifier, stream *ws.Manager, logger *slog.Logger, modelPath string) *API {
	return &API{
		store:     st,
		pipeline:  pipeline,
		clf:       clf,
		stream:    stream,
		logger:    logger,
		modelPath: modelPath,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
