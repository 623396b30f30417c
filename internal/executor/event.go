package executor

import "github.com/google/uuid"

// Event is the closed set of notifications the Executor emits toward the
// Controller. Started carries no engine-internal diagnostic payload:
// ShowState only tracks position/duration/status, so per-parameter detail
// travels instead through the separate StateParamUpdated event.
type Event interface {
	isExecutorEvent()
}

type Loaded struct {
	CueID    uuid.UUID
	Position float64
	Duration float64
}

type Started struct{ CueID uuid.UUID }

type Progress struct {
	CueID    uuid.UUID
	Position float64
	Duration float64
}

type Paused struct {
	CueID    uuid.UUID
	Position float64
	Duration float64
}

type Resumed struct{ CueID uuid.UUID }
type Stopped struct{ CueID uuid.UUID }
type Completed struct{ CueID uuid.UUID }

type Error struct {
	CueID   uuid.UUID
	Message string
}

type PreWaitStarted struct{ CueID uuid.UUID }

type PreWaitProgress struct {
	CueID    uuid.UUID
	Position float64
	Duration float64
}

type PreWaitPaused struct {
	CueID    uuid.UUID
	Position float64
	Duration float64
}

type PreWaitResumed struct{ CueID uuid.UUID }
type PreWaitStopped struct{ CueID uuid.UUID }
type PreWaitCompleted struct{ CueID uuid.UUID }

// StateParamUpdated reports a live parameter change (e.g. ToggleRepeat,
// SetVolume) applied to a running instance outside the normal lifecycle.
type StateParamUpdated struct {
	CueID uuid.UUID
	Param string
	Value float64
}

func (Loaded) isExecutorEvent()            {}
func (Started) isExecutorEvent()           {}
func (Progress) isExecutorEvent()          {}
func (Paused) isExecutorEvent()            {}
func (Resumed) isExecutorEvent()           {}
func (Stopped) isExecutorEvent()           {}
func (Completed) isExecutorEvent()         {}
func (Error) isExecutorEvent()             {}
func (PreWaitStarted) isExecutorEvent()    {}
func (PreWaitProgress) isExecutorEvent()   {}
func (PreWaitPaused) isExecutorEvent()     {}
func (PreWaitResumed) isExecutorEvent()    {}
func (PreWaitStopped) isExecutorEvent()    {}
func (PreWaitCompleted) isExecutorEvent()  {}
func (StateParamUpdated) isExecutorEvent() {}
