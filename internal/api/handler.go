// Package api exposes run progress and persisted run reports over HTTP.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/phrazzld/dagrun/internal/sched"
	"github.com/phrazzld/dagrun/internal/store"
)

// RunSource is the live run the server reports progress for. Satisfied by
// *sched.Coordinator.
type RunSource interface {
	RunID() uuid.UUID
	Tracker() *sched.ProgressTracker
}

// Handler serves progress for the active run and, when a store is
// configured, reports for past runs.
type Handler struct {
	active RunSource
	runs   store.RunStore // nil when persistence is disabled
	logger *slog.Logger
}

// NewHandler creates the API handler. runs may be nil.
func NewHandler(active RunSource, runs store.RunStore, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{active: active, runs: runs, logger: logger}
}

// Router builds the HTTP router for the handler.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.health)
	r.Get("/runs", h.listRuns)
	r.Get("/runs/{id}", h.getRun)
	r.Get("/runs/{id}/progress", h.getProgress)

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

// getProgress reports the live counters of the active run. Progress is only
// available in-process; finished runs are served from the store instead.
func (h *Handler) getProgress(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	if h.active == nil || h.active.RunID() != id {
		h.respondError(w, http.StatusNotFound, "run is not active")
		return
	}

	snap := h.active.Tracker().Snapshot()
	h.respond(w, http.StatusOK, ProgressResponse{
		RunID:    id.String(),
		Progress: snap,
		Terminal: snap.Terminal(),
	})
}

func (h *Handler) getRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid run id")
		return
	}
	if h.runs == nil {
		h.respondError(w, http.StatusNotFound, "run persistence is disabled")
		return
	}

	record, err := h.runs.GetRun(r.Context(), id)
	if err != nil {
		if store.IsNotFoundError(err) {
			h.respondError(w, http.StatusNotFound, "run not found")
			return
		}
		h.logger.Error("failed to load run", "run_id", id, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to load run")
		return
	}

	h.respond(w, http.StatusOK, newRunResponse(record))
}

func (h *Handler) listRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		h.respond(w, http.StatusOK, []RunResponse{})
		return
	}

	records, err := h.runs.ListRuns(r.Context(), 20)
	if err != nil {
		h.logger.Error("failed to list runs", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	resp := make([]RunResponse, 0, len(records))
	for i := range records {
		resp = append(resp, newRunResponse(&records[i]))
	}
	h.respond(w, http.StatusOK, resp)
}

func (h *Handler) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, msg string) {
	h.respond(w, status, ErrorResponse{Error: msg})
}
