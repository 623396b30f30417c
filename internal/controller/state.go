package controller

import (
	"sync"

	"github.com/google/uuid"
)

// PlaybackStatus is the closed set of per-cue states ShowState can report.
type PlaybackStatus string

const (
	StatusLoaded        PlaybackStatus = "loaded"
	StatusPreWaiting    PlaybackStatus = "preWaiting"
	StatusPreWaitPaused PlaybackStatus = "preWaitPaused"
	StatusPlaying       PlaybackStatus = "playing"
	StatusPaused        PlaybackStatus = "paused"
	StatusCompleted     PlaybackStatus = "completed"
	StatusError         PlaybackStatus = "error"
)

// ActiveCue is one entry of ShowState.active_cues.
type ActiveCue struct {
	Position float64        `json:"position"`
	Duration float64        `json:"duration"`
	Status   PlaybackStatus `json:"status"`
	Message  string         `json:"message,omitempty"`
}

// ShowState is the derived, observable playback snapshot: the cursor GO
// will next execute, and every cue currently in flight.
type ShowState struct {
	PlaybackCursor *uuid.UUID           `json:"playbackCursor,omitempty"`
	ActiveCues     map[uuid.UUID]ActiveCue `json:"activeCues"`
}

// clone deep-copies the ActiveCues map so published snapshots never alias
// the Controller's working copy: a subscriber must never observe a
// partially-updated snapshot.
func (s ShowState) clone() ShowState {
	cues := make(map[uuid.UUID]ActiveCue, len(s.ActiveCues))
	for id, cue := range s.ActiveCues {
		cues[id] = cue
	}
	var cursor *uuid.UUID
	if s.PlaybackCursor != nil {
		id := *s.PlaybackCursor
		cursor = &id
	}
	return ShowState{PlaybackCursor: cursor, ActiveCues: cues}
}

// StateWatch is a single-writer "latest value" broadcaster: the Go
// equivalent of a watch channel, since Go has no built-in one. Every
// Publish is a monotonic snapshot; subscribers each get their own buffered
// channel and never observe a torn read.
type StateWatch struct {
	mu      sync.RWMutex
	current ShowState
	subs    map[int]chan ShowState
	nextID  int
}

// NewStateWatch creates a watch seeded with an empty ShowState.
func NewStateWatch() *StateWatch {
	return &StateWatch{
		current: ShowState{ActiveCues: make(map[uuid.UUID]ActiveCue)},
		subs:    make(map[int]chan ShowState),
	}
}

// Publish stores a new snapshot and fans it out to every subscriber,
// dropping the update for any subscriber whose channel is full (the
// subscriber can always call Get for the latest value instead).
func (w *StateWatch) Publish(s ShowState) {
	snapshot := s.clone()
	w.mu.Lock()
	w.current = snapshot
	subs := make([]chan ShowState, 0, len(w.subs))
	for _, ch := range w.subs {
		subs = append(subs, ch)
	}
	w.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- snapshot.clone():
		default:
		}
	}
}

// Get returns the latest published snapshot.
func (w *StateWatch) Get() ShowState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current.clone()
}

// Subscribe registers a new watcher and primes its channel with the
// current snapshot.
func (w *StateWatch) Subscribe(buffer int) (id int, ch <-chan ShowState) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextID++
	id = w.nextID
	c := make(chan ShowState, buffer)
	select {
	case c <- w.current.clone():
	default:
	}
	w.subs[id] = c
	return id, c
}

// Unsubscribe removes and closes a watcher's channel.
func (w *StateWatch) Unsubscribe(id int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if ch, ok := w.subs[id]; ok {
		delete(w.subs, id)
		close(ch)
	}
}
