package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	"github.com/argus-triage/argus-go/internal/event"
	"github.com/argus-triage/argus-go/internal/ingest"
	"github.com/argus-triage/argus-go/internal/triage"
)

const maxUploadBytes = 64 << 20 // 64 MB

// Upload handles POST /api/upload: a multipart CSV or JSON log file is
// normalized, classified, and stored. The response reports how many records
// were ingested and how many were skipped as malformed.
func (a *API) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	events, skipped, err := loadByName(file, header.Filename)
	if err != nil {
		a.logger.Error("upload parse failed", "err", err, "filename", header.Filename)
		jsonError(w, "could not parse log file", http.StatusBadRequest)
		return
	}

	classified, err := a.pipeline.ClassifyBatch(r.Context(), events)
	if err != nil {
		if errors.Is(err, triage.ErrEmptyBatch) {
			jsonError(w, "no valid records in file", http.StatusBadRequest)
			return
		}
		a.logger.Error("upload classification failed", "err", err)
		jsonError(w, "classification failed", http.StatusInternalServerError)
		return
	}

	if err := a.store.Insert(r.Context(), classified); err != nil {
		a.logger.Error("upload store failed", "err", err)
		jsonError(w, "failed to store events", http.StatusInternalServerError)
		return
	}
	if a.stream != nil {
		a.stream.Publish(classified)
	}

	a.logger.Info("log file ingested",
		"filename", header.Filename,
		"ingested", len(classified),
		"skipped", skipped,
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"ingested": len(classified),
		"skipped":  skipped,
	})
}

// loadByName picks the parser from the filename extension, defaulting to
// JSON. A .gz suffix is stripped first since the loaders sniff gzip
// themselves.
func loadByName(f multipart.File, name string) ([]*event.Event, int, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == ".gz" {
		ext = strings.ToLower(filepath.Ext(strings.TrimSuffix(name, filepath.Ext(name))))
	}
	if ext == ".csv" {
		return ingest.LoadCSV(f)
	}
	return ingest.LoadJSON(f)
}

// Classify handles POST /v1/classify: one raw log record in, one classified
// event out. Nothing is stored.
func (a *API) Classify(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&raw); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	ev, err := ingest.Normalize(raw)
	if err != nil {
		jsonError(w, "malformed record: "+err.Error(), http.StatusBadRequest)
		return
	}

	classified, err := a.pipeline.ClassifyBatch(r.Context(), []*event.Event{ev})
	if err != nil {
		a.logger.Error("classify failed", "err", err)
		jsonError(w, "classification failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, classified[0])
}

// Train handles POST /api/train: rebuilds the statistical model from every
// stored event that carries a definitive label.
func (a *API) Train(w http.ResponseWriter, r *http.Request) {
	events, err := a.store.All(r.Context())
	if err != nil {
		a.logger.Error("train fetch failed", "err", err)
		jsonError(w, "failed to fetch events", http.StatusInternalServerError)
		return
	}

	labeled := make([]*event.Event, 0, len(events))
	for _, ev := range events {
		if ev.Classified() {
			labeled = append(labeled, ev)
		}
	}
	if len(labeled) == 0 {
		jsonError(w, "no labeled events to train on", http.StatusBadRequest)
		return
	}

	if err := a.clf.Train(labeled); err != nil {
		a.logger.Error("training failed", "err", err)
		jsonError(w, "training failed", http.StatusInternalServerError)
		return
	}

	if a.modelPath != "" {
		if err := a.clf.Save(a.modelPath); err != nil {
			a.logger.Warn("model save failed", "err", err, "path", a.modelPath)
		}
	}

	classes, _ := a.clf.Classes()
	writeJSON(w, http.StatusOK, map[string]any{
		"trained_on": len(labeled),
		"classes":    classes,
	})
}
