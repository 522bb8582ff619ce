package pipeline

import "fmt"

// EventType enumerates the stream record kinds a run can produce.
type EventType string

const (
	EventStatus           EventType = "status"
	EventParsingResult    EventType = "parsing_result"
	EventReferenceResult  EventType = "reference_result"
	EventGenerationResult EventType = "generation_result"
	EventEditingResult    EventType = "editing_result"
	EventValidationResult EventType = "validation_result"
	EventDone             EventType = "done"
	EventError            EventType = "error"
)

// Event is one record of a run's output stream. The ordered event sequence
// is the run's entire observable output.
type Event struct {
	Type    EventType      `json:"type"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// Emitter receives events in production order. Implementations must be
// best-effort sinks: a consumer that went away is not the run's problem,
// so emitters never block indefinitely and never panic.
type Emitter func(Event)

func statusf(emit Emitter, format string, args ...any) {
	emit(Event{Type: EventStatus, Message: fmt.Sprintf(format, args...)})
}
