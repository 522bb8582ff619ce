package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sceneforge/sceneforge/internal/pipeline"
)

// RunState tracks a single running or completed pipeline run.
type RunState struct {
	RunID       string
	Broadcaster *Broadcaster
	Cancel      context.CancelCauseFunc
	StartedAt   time.Time

	mu   sync.Mutex
	done bool
}

// SetDone records that the run's event stream has terminated.
func (rs *RunState) SetDone() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.done = true
}

// Status derives the run's state snapshot from its event history: the
// stream itself is the source of truth, there is no separate result record.
func (rs *RunState) Status() RunStatus {
	rs.mu.Lock()
	done := rs.done
	rs.mu.Unlock()

	status := RunStatus{
		RunID:     rs.RunID,
		State:     "running",
		StartedAt: rs.StartedAt,
	}
	history := rs.Broadcaster.History()
	status.Events = len(history)
	if len(history) > 0 {
		last := history[len(history)-1]
		status.LastEvent = string(last.Type)
		if done {
			if last.Type == pipeline.EventError {
				status.State = "error"
				status.Error = last.Message
			} else {
				status.State = "done"
			}
		}
	}
	return status
}

// RunRegistry tracks all runs managed by this server instance.
type RunRegistry struct {
	mu   sync.RWMutex
	runs map[string]*RunState
}

func NewRunRegistry() *RunRegistry {
	return &RunRegistry{runs: make(map[string]*RunState)}
}

// Register adds a run. Returns an error if the ID already exists.
func (r *RunRegistry) Register(runID string, rs *RunState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.runs[runID]; exists {
		return fmt.Errorf("run %s already exists", runID)
	}
	r.runs[runID] = rs
	return nil
}

// Get returns a run by ID, or nil and false if not found.
func (r *RunRegistry) Get(runID string) (*RunState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rs, ok := r.runs[runID]
	return rs, ok
}

// List returns all run IDs.
func (r *RunRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.runs))
	for id := range r.runs {
		ids = append(ids, id)
	}
	return ids
}

// CancelAll cancels all running pipelines with the given reason.
func (r *RunRegistry) CancelAll(reason string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rs := range r.runs {
		if rs.Cancel != nil {
			rs.Cancel(fmt.Errorf("%s", reason))
		}
	}
}
