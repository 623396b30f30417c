package wait

import "github.com/google/uuid"

// Command is the closed set of instructions the WaitEngine accepts.
type Command interface {
	isWaitCommand()
}

// Load registers an instance without starting its countdown (used when a
// cue is loaded but not yet executing, e.g. the first cue on show load).
type Load struct {
	InstanceID uuid.UUID
	Flavor     Flavor
	Duration   float64
}

// Start begins (or restarts) the countdown for an instance.
type Start struct {
	InstanceID uuid.UUID
	Flavor     Flavor
	Duration   float64
}

// Pause freezes the countdown, recording elapsed time.
type Pause struct{ InstanceID uuid.UUID }

// Resume restarts the clock for a paused instance from where it left off.
type Resume struct{ InstanceID uuid.UUID }

// SeekTo moves the instance's position to an absolute offset in seconds.
type SeekTo struct {
	InstanceID uuid.UUID
	Position   float64
}

// SeekBy nudges the instance's position by a relative offset in seconds.
type SeekBy struct {
	InstanceID uuid.UUID
	Delta      float64
}

// Stop discards the instance immediately.
type Stop struct{ InstanceID uuid.UUID }

func (Load) isWaitCommand()    {}
func (Start) isWaitCommand()   {}
func (Pause) isWaitCommand()   {}
func (Resume) isWaitCommand()  {}
func (SeekTo) isWaitCommand()  {}
func (SeekBy) isWaitCommand()  {}
func (Stop) isWaitCommand()    {}
