package manager

import (
	"github.com/google/uuid"

	"github.com/sbsp/playback-engine/internal/model"
)

// ModelCommand is the closed set of mutations the ShowModelManager accepts.
type ModelCommand interface {
	isModelCommand()
}

type UpdateCue struct{ Cue *model.Cue }
type AddCue struct {
	Cue     *model.Cue
	AtIndex int
}
type AddCues struct {
	Cues    []*model.Cue
	AtIndex int
}
type RemoveCue struct{ CueID uuid.UUID }
type MoveCue struct {
	CueID   uuid.UUID
	ToIndex int
}
type RenumberCues struct {
	CueIDs     []uuid.UUID
	StartFrom  float64
	Increment  float64
}
type UpdateSettings struct{ Settings model.ShowSettings }
type Save struct{}
type SaveToFile struct{ Path string }
type LoadFromFile struct{ Path string }

func (UpdateCue) isModelCommand()     {}
func (AddCue) isModelCommand()        {}
func (AddCues) isModelCommand()       {}
func (RemoveCue) isModelCommand()     {}
func (MoveCue) isModelCommand()       {}
func (RenumberCues) isModelCommand()  {}
func (UpdateSettings) isModelCommand() {}
func (Save) isModelCommand()          {}
func (SaveToFile) isModelCommand()    {}
func (LoadFromFile) isModelCommand()  {}
