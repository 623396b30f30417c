package controller

import (
	"github.com/google/uuid"

	"github.com/sbsp/playback-engine/internal/event"
	"github.com/sbsp/playback-engine/internal/executor"
)

// Command is the closed set of operator-facing instructions the Controller
// accepts.
type Command interface {
	isControllerCommand()
}

// Go executes the cue at the cursor and advances it.
type Go struct{}

// SetPlaybackCursor moves the cursor to id, a no-op if id doesn't exist.
type SetPlaybackCursor struct{ CueID uuid.UUID }

type Load struct{ CueID uuid.UUID }
type Execute struct{ CueID uuid.UUID }
type Pause struct{ CueID uuid.UUID }
type Resume struct{ CueID uuid.UUID }
type Stop struct{ CueID uuid.UUID }

// StopAll/PauseAll/ResumeAll fan out over every cue currently present in
// ShowState.active_cues.
type StopAll struct{}
type PauseAll struct{}
type ResumeAll struct{}

type SeekTo struct {
	CueID    uuid.UUID
	Position float64
}

type SeekBy struct {
	CueID uuid.UUID
	Delta float64
}

type PerformAction struct {
	CueID  uuid.UUID
	Action event.CueAction
}

type ReconfigureEngines struct{ Settings executor.EngineSettings }

func (Go) isControllerCommand()                 {}
func (SetPlaybackCursor) isControllerCommand()  {}
func (Load) isControllerCommand()               {}
func (Execute) isControllerCommand()            {}
func (Pause) isControllerCommand()              {}
func (Resume) isControllerCommand()             {}
func (Stop) isControllerCommand()               {}
func (StopAll) isControllerCommand()            {}
func (PauseAll) isControllerCommand()           {}
func (ResumeAll) isControllerCommand()          {}
func (SeekTo) isControllerCommand()             {}
func (SeekBy) isControllerCommand()             {}
func (PerformAction) isControllerCommand()      {}
func (ReconfigureEngines) isControllerCommand() {}
