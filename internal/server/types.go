package server

import (
	"time"

	"github.com/sceneforge/sceneforge/internal/pipeline"
)

// StartRunRequest is the POST /v1/runs request body: a pipeline request
// plus an optional caller-chosen run ID.
type StartRunRequest struct {
	pipeline.Request
	RunID string `json:"run_id,omitempty"`
}

// RunStatus is returned by GET /v1/runs/{id}.
type RunStatus struct {
	RunID     string    `json:"run_id"`
	State     string    `json:"state"` // running | done | error
	StartedAt time.Time `json:"started_at"`
	Events    int       `json:"events"`
	LastEvent string    `json:"last_event,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// ErrorResponse is a standard error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
