package executor

import (
	"github.com/google/uuid"

	"github.com/sbsp/playback-engine/internal/event"
)

// EngineType records which engine (if any) currently owns a cue's live
// instance.
type EngineType string

const (
	EngineTypePreWait  EngineType = "preWait"
	EngineTypeAudio    EngineType = "audio"
	EngineTypeWait     EngineType = "wait"
	EngineTypeFade     EngineType = "fade"
	EngineTypePlayback EngineType = "playback"
	EngineTypeGroup    EngineType = "group"
)

// EngineSettings carries the live-reconfigurable knobs forwarded to the
// engines.
type EngineSettings struct {
	AudioBaseVolumeDB float64
}

// Command is the closed set of instructions the Executor accepts.
type Command interface {
	isExecutorCommand()
}

type Load struct{ CueID uuid.UUID }
type Execute struct{ CueID uuid.UUID }
type Pause struct{ CueID uuid.UUID }
type Resume struct{ CueID uuid.UUID }
type Stop struct{ CueID uuid.UUID }

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

type ReconfigureEngines struct{ Settings EngineSettings }

func (Load) isExecutorCommand()               {}
func (Execute) isExecutorCommand()             {}
func (Pause) isExecutorCommand()               {}
func (Resume) isExecutorCommand()              {}
func (Stop) isExecutorCommand()                {}
func (SeekTo) isExecutorCommand()              {}
func (SeekBy) isExecutorCommand()              {}
func (PerformAction) isExecutorCommand()       {}
func (ReconfigureEngines) isExecutorCommand()  {}
