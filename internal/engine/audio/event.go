package audio

import "github.com/google/uuid"

// EventKind is the discrete lifecycle/tick shape emitted for an instance.
type EventKind string

const (
	EventStarted   EventKind = "started"
	EventProgress  EventKind = "progress"
	EventPaused    EventKind = "paused"
	EventResumed   EventKind = "resumed"
	EventStopped   EventKind = "stopped"
	EventCompleted EventKind = "completed"
	EventError     EventKind = "error"
)

// Event is emitted on the engine's output channel, one per instance
// lifecycle transition or 50ms progress tick.
type Event struct {
	Kind       EventKind
	InstanceID uuid.UUID
	Position   float64
	Duration   float64
	Message    string
}
