package audio

import (
	"github.com/google/uuid"

	"github.com/sbsp/playback-engine/internal/event"
	"github.com/sbsp/playback-engine/internal/model"
)

// Source describes everything the engine needs to open and play a sound
// file for one instance, flattened from model.AudioParam plus the cue's
// resolved file path.
type Source struct {
	FilePath  string
	SoundType model.SoundType
	StartTime *float64
	EndTime   *float64
	FadeIn    *model.FadeParam
	FadeOut   *model.FadeParam
	VolumeDB  float64
	Pan       float64
	Repeat    bool
}

// Command is the closed set of instructions the AudioEngine accepts.
type Command interface {
	isAudioCommand()
}

// Load opens and decodes the source but does not start playback, priming
// an instance for a later Play (used for PreWait-gated cues and Load
// transport cues).
type Load struct {
	InstanceID uuid.UUID
	Source     Source
}

// Play starts (or restarts) playback of an instance, loading it first if
// it isn't already loaded.
type Play struct {
	InstanceID uuid.UUID
	Source     Source
}

// Pause freezes playback in place.
type Pause struct{ InstanceID uuid.UUID }

// Resume continues playback from where it was paused.
type Resume struct{ InstanceID uuid.UUID }

// Stop halts playback and discards the instance (a manual/user-driven
// stop — distinct from natural completion). If the instance carries a
// fade-out, Stop ramps through it gracefully before the instance is
// dropped; HardStop below skips the ramp.
type Stop struct{ InstanceID uuid.UUID }

// HardStop halts playback immediately, ignoring any configured fade-out.
type HardStop struct{ InstanceID uuid.UUID }

// SeekTo moves playback to an absolute position in seconds.
type SeekTo struct {
	InstanceID uuid.UUID
	Position   float64
}

// SeekBy nudges playback by a relative offset in seconds.
type SeekBy struct {
	InstanceID uuid.UUID
	Delta      float64
}

// SetVolume changes the instance's gain, optionally ramped over a fade.
type SetVolume struct {
	InstanceID uuid.UUID
	VolumeDB   float64
	Fade       *model.FadeParam
}

// PerformAction applies an ad hoc CueAction (ToggleRepeat / SetVolume) to a
// running instance without going through the Executor's cue lifecycle.
type PerformAction struct {
	InstanceID uuid.UUID
	Action     event.CueAction
}

// Reconfigure applies live-settings changes (e.g. a base output trim) to
// the engine, affecting subsequent Load/Play calls.
type Reconfigure struct {
	BaseVolumeDB float64
}

func (Load) isAudioCommand()          {}
func (Play) isAudioCommand()          {}
func (Pause) isAudioCommand()         {}
func (Resume) isAudioCommand()        {}
func (Stop) isAudioCommand()          {}
func (HardStop) isAudioCommand()      {}
func (SeekTo) isAudioCommand()        {}
func (SeekBy) isAudioCommand()        {}
func (SetVolume) isAudioCommand()     {}
func (PerformAction) isAudioCommand() {}
func (Reconfigure) isAudioCommand()   {}
