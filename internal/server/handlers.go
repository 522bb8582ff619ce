package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/sceneforge/sceneforge/internal/pipeline"
)

// validRunID matches ULIDs, UUIDs, and other safe identifiers.
// Only alphanumeric, dashes, and underscores are allowed.
var validRunID = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{0,127}$`)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"runs":   len(s.registry.List()),
	})
}

// handlePipeline runs a pipeline synchronously and streams its events as
// NDJSON. The stream always ends with a done or error record; write
// failures mean the consumer went away and are swallowed.
func (s *Server) handlePipeline(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "%s\n", `{"error":"Invalid request"}`)
		return
	}

	flusher, _ := w.(http.Flusher)
	w.Header().Set("Content-Type", "application/x-ndjson; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if flusher != nil {
		flusher.Flush()
	}

	var mu sync.Mutex
	emit := func(ev pipeline.Event) {
		mu.Lock()
		defer mu.Unlock()
		line, err := json.Marshal(ev)
		if err != nil {
			return
		}
		// A failed write means the client disconnected; the run carries on
		// unobserved.
		_, _ = w.Write(append(line, '\n'))
		if flusher != nil {
			flusher.Flush()
		}
	}

	s.coord.Run(r.Context(), req, emit)
}

// handleStartRun launches a pipeline in the background under a run ID and
// returns immediately; events are observed via the SSE endpoint.
func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var req StartRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	runID := strings.TrimSpace(req.RunID)
	if runID == "" {
		runID = ulid.Make().String()
	}
	if !validRunID.MatchString(runID) {
		writeError(w, http.StatusBadRequest, "run_id must be alphanumeric with dashes/underscores, 1-128 chars")
		return
	}

	broadcaster := NewBroadcaster()
	ctx, cancel := context.WithCancelCause(s.baseCtx)

	rs := &RunState{
		RunID:       runID,
		Broadcaster: broadcaster,
		Cancel:      cancel,
		StartedAt:   time.Now().UTC(),
	}
	if err := s.registry.Register(runID, rs); err != nil {
		cancel(nil)
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	go func() {
		defer broadcaster.Close()
		defer rs.SetDone()
		s.coord.Run(ctx, req.Request, broadcaster.Send)
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"run_id": runID,
		"status": "accepted",
	})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")
	if runID == "" {
		writeError(w, http.StatusBadRequest, "run_id is required")
		return
	}

	rs, ok := s.registry.Get(runID)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("run %s not found", runID))
		return
	}

	writeJSON(w, http.StatusOK, rs.Status())
}

func (s *Server) handleRunEvents(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")
	if runID == "" {
		writeError(w, http.StatusBadRequest, "run_id is required")
		return
	}

	rs, ok := s.registry.Get(runID)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("run %s not found", runID))
		return
	}

	WriteSSE(w, r, rs.Broadcaster)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
