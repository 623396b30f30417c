// Package event defines the UI-facing event and command types that flow
// across the broadcast sink.
package event

import (
	"github.com/google/uuid"

	"github.com/sbsp/playback-engine/internal/model"
)

// UiEvent is the closed set of events broadcast to UI subscribers.
// Only types in this file implement it.
type UiEvent interface {
	isUiEvent()
}

type CueLoaded struct{ CueID uuid.UUID }
type CuePreWaitStarted struct{ CueID uuid.UUID }
type CuePreWaitProgress struct {
	CueID             uuid.UUID
	Position, Duration float64
}
type CuePreWaitPaused struct{ CueID uuid.UUID }
type CuePreWaitResumed struct{ CueID uuid.UUID }
type CuePreWaitStopped struct{ CueID uuid.UUID }
type CuePreWaitCompleted struct{ CueID uuid.UUID }
type CueStarted struct{ CueID uuid.UUID }
type CuePaused struct{ CueID uuid.UUID }
type CueResumed struct{ CueID uuid.UUID }
type CueStopped struct{ CueID uuid.UUID }
type CueCompleted struct{ CueID uuid.UUID }
type CueError struct {
	CueID   uuid.UUID
	Message string
}

// StateParamUpdated carries a non-positional per-cue parameter change (e.g.
// a live volume change via PerformAction), supplementary to ShowState rather
// than a replacement for it.
type StateParamUpdated struct {
	CueID uuid.UUID
	Param string
	Value float64
}

// PlaybackCursorMoved is emitted whenever SetPlaybackCursor changes the
// cursor to a different cue.
type PlaybackCursorMoved struct{ CueID uuid.UUID }

type ShowModelLoaded struct{ Path string }
type ShowModelSaved struct{ Path string }
type CueUpdated struct{ Cue *model.Cue }
type CueAdded struct {
	Cue     *model.Cue
	AtIndex int
}
type CuesAdded struct {
	Cues    []*model.Cue
	AtIndex int
}
type CueRemoved struct{ CueID uuid.UUID }
type CueMoved struct {
	CueID   uuid.UUID
	ToIndex int
}
type SettingsUpdated struct{ Settings model.ShowSettings }

// OperationFailed wraps a UiError for the one broadcast "something you
// asked for could not be done" event.
type OperationFailed struct{ Error UiError }

func (CueLoaded) isUiEvent()             {}
func (CuePreWaitStarted) isUiEvent()     {}
func (CuePreWaitProgress) isUiEvent()    {}
func (CuePreWaitPaused) isUiEvent()      {}
func (CuePreWaitResumed) isUiEvent()     {}
func (CuePreWaitStopped) isUiEvent()     {}
func (CuePreWaitCompleted) isUiEvent()   {}
func (CueStarted) isUiEvent()            {}
func (CuePaused) isUiEvent()             {}
func (CueResumed) isUiEvent()            {}
func (CueStopped) isUiEvent()            {}
func (CueCompleted) isUiEvent()          {}
func (CueError) isUiEvent()              {}
func (StateParamUpdated) isUiEvent()     {}
func (PlaybackCursorMoved) isUiEvent()   {}
func (ShowModelLoaded) isUiEvent()       {}
func (ShowModelSaved) isUiEvent()        {}
func (CueUpdated) isUiEvent()            {}
func (CueAdded) isUiEvent()              {}
func (CuesAdded) isUiEvent()             {}
func (CueRemoved) isUiEvent()            {}
func (CueMoved) isUiEvent()              {}
func (SettingsUpdated) isUiEvent()       {}
func (OperationFailed) isUiEvent()       {}

// UiError is the closed set of operator-facing error shapes.
type UiError interface {
	isUiError()
}

type FileSaveError struct {
	Path    string
	Message string
}
type FileLoadError struct {
	Path    string
	Message string
}
type CueEditError struct {
	Message string
}

func (FileSaveError) isUiError() {}
func (FileLoadError) isUiError() {}
func (CueEditError) isUiError()  {}

// CueAction is the closed set of live-mutation actions an engine can be
// asked to apply to a running instance without going through Load/Execute.
type CueAction interface {
	isCueAction()
}

type ToggleRepeat struct{}
type SetVolume struct{ VolumeDB float32 }

func (ToggleRepeat) isCueAction() {}
func (SetVolume) isCueAction()    {}
