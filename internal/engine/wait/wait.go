// Package wait implements the WaitEngine: a single generic countdown-timer
// engine that serves three flavours — PreWait (gates a cue), Wait (a cue
// whose effect is just "time passes"), and FadeWait (the duration half of
// a Fade cue). A single ticker-driven goroutine walks a mutex-guarded
// instance map, the same shape used by the other poll-driven engines in
// this repo.
package wait

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Flavor selects which of the three roles a wait instance is playing.
type Flavor string

const (
	FlavorPreWait Flavor = "preWait"
	FlavorWait    Flavor = "wait"
	FlavorFade    Flavor = "fadeWait"
)

// Status is the per-instance lifecycle state.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

// EventKind is the discrete lifecycle/tick shape emitted for an instance.
type EventKind string

const (
	EventLoaded    EventKind = "loaded"
	EventStarted   EventKind = "started"
	EventProgress  EventKind = "progress"
	EventPaused    EventKind = "paused"
	EventResumed   EventKind = "resumed"
	EventStopped   EventKind = "stopped"
	EventCompleted EventKind = "completed"
)

// Event is emitted on the engine's output channel. Flavor tells the
// Executor which ExecutorEvent family (PreWait/Wait/Fade) to translate it
// into — the single engine instance serves all three roles.
type Event struct {
	Flavor     Flavor
	Kind       EventKind
	InstanceID uuid.UUID
	Position   float64
	Duration   float64
}

type instance struct {
	flavor          Flavor
	status          Status
	totalDuration   float64
	startInstant    time.Time
	remainingDuration float64
}

// Engine is the generic countdown-timer engine. One goroutine, ticking
// every 50ms, walks every Waiting instance.
type Engine struct {
	mu        sync.Mutex
	instances map[uuid.UUID]*instance

	commandCh chan Command
	events    chan<- Event

	stopCh chan struct{}
}

// New creates a WaitEngine that publishes events onto events.
func New(events chan<- Event) *Engine {
	return &Engine{
		instances: make(map[uuid.UUID]*instance),
		commandCh: make(chan Command, 32),
		events:    events,
		stopCh:    make(chan struct{}),
	}
}

// CommandChannel returns the channel callers send Commands on.
func (e *Engine) CommandChannel() chan<- Command { return e.commandCh }

// Run is the engine's goroutine body: processes commands and ticks every
// 50ms.
func (e *Engine) Run() {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	log.Println("WaitEngine run loop started")
	for {
		select {
		case cmd, ok := <-e.commandCh:
			if !ok {
				log.Println("WaitEngine run loop finished")
				return
			}
			e.handle(cmd)
		case <-ticker.C:
			e.tick()
		case <-e.stopCh:
			log.Println("WaitEngine run loop finished")
			return
		}
	}
}

// Stop halts the engine's goroutine.
func (e *Engine) Stop() {
	close(e.stopCh)
}

func (e *Engine) handle(cmd Command) {
	switch c := cmd.(type) {
	case Load:
		e.mu.Lock()
		e.instances[c.InstanceID] = &instance{
			flavor:            c.Flavor,
			status:            StatusPaused,
			totalDuration:     c.Duration,
			remainingDuration: c.Duration,
		}
		e.mu.Unlock()
		e.emit(Event{Flavor: c.Flavor, Kind: EventLoaded, InstanceID: c.InstanceID, Duration: c.Duration})

	case Start:
		e.mu.Lock()
		inst, ok := e.instances[c.InstanceID]
		if !ok {
			inst = &instance{}
			e.instances[c.InstanceID] = inst
		}
		inst.flavor = c.Flavor
		inst.totalDuration = c.Duration
		inst.remainingDuration = c.Duration
		inst.status = StatusWaiting
		inst.startInstant = time.Now()
		e.mu.Unlock()
		e.emit(Event{Flavor: c.Flavor, Kind: EventStarted, InstanceID: c.InstanceID, Duration: inst.totalDuration})

	case Pause:
		e.mu.Lock()
		inst, ok := e.instances[c.InstanceID]
		if !ok {
			e.mu.Unlock()
			log.Printf("WaitEngine: pause on unknown instance %s", c.InstanceID)
			return
		}
		elapsed := time.Since(inst.startInstant).Seconds()
		inst.remainingDuration -= elapsed
		if inst.remainingDuration < 0 {
			inst.remainingDuration = 0
		}
		inst.status = StatusPaused
		position := inst.totalDuration - inst.remainingDuration
		flavor := inst.flavor
		duration := inst.totalDuration
		e.mu.Unlock()
		e.emit(Event{Flavor: flavor, Kind: EventPaused, InstanceID: c.InstanceID, Position: position, Duration: duration})

	case Resume:
		e.mu.Lock()
		inst, ok := e.instances[c.InstanceID]
		if !ok {
			e.mu.Unlock()
			log.Printf("WaitEngine: resume on unknown instance %s", c.InstanceID)
			return
		}
		inst.status = StatusWaiting
		inst.startInstant = time.Now()
		flavor := inst.flavor
		e.mu.Unlock()
		e.emit(Event{Flavor: flavor, Kind: EventResumed, InstanceID: c.InstanceID})

	case SeekTo:
		e.mu.Lock()
		inst, ok := e.instances[c.InstanceID]
		if !ok {
			e.mu.Unlock()
			log.Printf("WaitEngine: seek on unknown instance %s", c.InstanceID)
			return
		}
		inst.remainingDuration = inst.totalDuration - c.Position
		if inst.remainingDuration < 0 {
			inst.remainingDuration = 0
		}
		inst.startInstant = time.Now()
		e.mu.Unlock()

	case SeekBy:
		e.mu.Lock()
		inst, ok := e.instances[c.InstanceID]
		if !ok {
			e.mu.Unlock()
			log.Printf("WaitEngine: seek on unknown instance %s", c.InstanceID)
			return
		}
		inst.remainingDuration -= c.Delta
		if inst.remainingDuration < 0 {
			inst.remainingDuration = 0
		}
		inst.startInstant = time.Now()
		e.mu.Unlock()

	case Stop:
		e.mu.Lock()
		inst, ok := e.instances[c.InstanceID]
		if ok {
			delete(e.instances, c.InstanceID)
		}
		e.mu.Unlock()
		if ok {
			e.emit(Event{Flavor: inst.flavor, Kind: EventStopped, InstanceID: c.InstanceID})
		}
	}
}

func (e *Engine) tick() {
	e.mu.Lock()
	type completion struct {
		id     uuid.UUID
		flavor Flavor
	}
	var completed []completion
	var progress []Event
	for id, inst := range e.instances {
		if inst.status != StatusWaiting {
			continue
		}
		elapsed := time.Since(inst.startInstant).Seconds()
		if elapsed >= inst.remainingDuration {
			inst.status = StatusCompleted
			completed = append(completed, completion{id: id, flavor: inst.flavor})
			continue
		}
		position := inst.totalDuration - inst.remainingDuration + elapsed
		progress = append(progress, Event{
			Flavor:     inst.flavor,
			Kind:       EventProgress,
			InstanceID: id,
			Position:   position,
			Duration:   inst.totalDuration,
		})
	}
	for _, c := range completed {
		delete(e.instances, c.id)
	}
	e.mu.Unlock()

	for _, evt := range progress {
		e.emitNonBlocking(evt)
	}
	for _, c := range completed {
		e.emit(Event{Flavor: c.flavor, Kind: EventCompleted, InstanceID: c.id})
	}
}

// emit is a blocking send: discrete lifecycle events must not be dropped.
func (e *Engine) emit(evt Event) {
	e.events <- evt
}

// emitNonBlocking is used for Progress: back-pressure on a 50ms tick must
// not stall the engine.
func (e *Engine) emitNonBlocking(evt Event) {
	select {
	case e.events <- evt:
	default:
		log.Printf("WaitEngine: dropped progress event for instance %s (channel full)", evt.InstanceID)
	}
}
