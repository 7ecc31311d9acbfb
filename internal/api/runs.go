package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/casamack/tibber-refiner/internal/journal"
	"github.com/casamack/tibber-refiner/internal/refiner"
	"github.com/casamack/tibber-refiner/internal/scheduler"
)

// TriggerRequest is the optional body of POST /api/v1/runs.
type TriggerRequest struct {
	Date string `json:"date,omitempty"`
}

// handleListRuns returns the most recent runs, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := s.store.ListRuns(r.Context(), limit)
	if s.writeStoreError(w, err, "runs") {
		return
	}
	if runs == nil {
		runs = []journal.Run{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"count": len(runs),
	})
}

// handleGetRun returns a single run by ID.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := s.store.GetRun(r.Context(), id)
	if s.writeStoreError(w, err, "run "+id) {
		return
	}

	writeJSON(w, http.StatusOK, run)
}

// handleTriggerRun queues a manual run. The run happens asynchronously;
// its progress is visible through GET /api/v1/runs.
func (s *Server) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "scheduler not available")
		return
	}

	var req TriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Date != "" {
		if _, err := refiner.ParseDate(req.Date, s.loc); err != nil {
			writeBadRequest(w, "date must be YYYY-MM-DD")
			return
		}
	}

	if !s.scheduler.Trigger(scheduler.Request{Trigger: journal.TriggerAPI, Date: req.Date}) {
		writeError(w, http.StatusConflict, ErrCodeConflict, "a run is already pending")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "accepted",
		"date":   req.Date,
	})
}
