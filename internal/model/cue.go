package model

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// CueParamKind discriminates the closed set of cue-param variants. Handlers
// across Executor/engines switch on this rather than using virtual methods.
type CueParamKind string

const (
	CueParamAudio CueParamKind = "audio"
	CueParamWait  CueParamKind = "wait"
	CueParamFade  CueParamKind = "fade"
	CueParamStart CueParamKind = "start"
	CueParamStop  CueParamKind = "stop"
	CueParamPause CueParamKind = "pause"
	CueParamLoad  CueParamKind = "load"
	CueParamGroup CueParamKind = "group"
)

// CueParam is the closed tagged union of cue-param shapes. Only the types
// declared in this file implement it.
type CueParam interface {
	Kind() CueParamKind
	isCueParam()
}

// SoundType records the static/streaming choice stored with an Audio cue.
// The AudioEngine streams every file from disk as it plays, whatever the
// value; a Static file is not decoded up front.
type SoundType string

const (
	SoundStatic    SoundType = "static"
	SoundStreaming SoundType = "streaming"
)

// FadeParam is a duration+easing pair attached to a fade-in, fade-out, or
// standalone Fade cue.
type FadeParam struct {
	Duration float64 `json:"duration"`
	Easing   Easing  `json:"easing"`
}

// AudioParam is the Audio cue-param variant.
type AudioParam struct {
	Target       string      `json:"target"`
	StartTime    *float64    `json:"startTime,omitempty"`
	EndTime      *float64    `json:"endTime,omitempty"`
	FadeIn       *FadeParam  `json:"fadeIn,omitempty"`
	FadeOut      *FadeParam  `json:"fadeOut,omitempty"`
	VolumeDB     float64     `json:"volumeDb"`
	Pan          float64     `json:"pan"`
	Repeat       bool        `json:"repeat"`
	SoundType    SoundType   `json:"soundType"`
}

func (AudioParam) Kind() CueParamKind { return CueParamAudio }
func (AudioParam) isCueParam()        {}

// WaitParam is the Wait cue-param variant: time passes, nothing else.
type WaitParam struct {
	Duration float64 `json:"duration"`
}

func (WaitParam) Kind() CueParamKind { return CueParamWait }
func (WaitParam) isCueParam()        {}

// FadeCueParam is the standalone Fade cue-param variant: fades a target
// cue's running Audio instance (or a Group's Audio descendants) to a new
// volume over time.
type FadeCueParam struct {
	Target     uuid.UUID `json:"target"`
	TargetDB   float64   `json:"targetDb"`
	FadeParam  FadeParam `json:"fade"`
}

func (FadeCueParam) Kind() CueParamKind { return CueParamFade }
func (FadeCueParam) isCueParam()        {}

// TransportParam is shared shape for the Start/Stop/Pause/Load transport
// cue-param variants, which all carry just a target cue id.
type TransportParam struct {
	Target uuid.UUID `json:"target"`
	kind   CueParamKind
}

func (t TransportParam) Kind() CueParamKind { return t.kind }
func (TransportParam) isCueParam()          {}

// StartParam builds a Start transport variant.
func StartParam(target uuid.UUID) TransportParam { return TransportParam{Target: target, kind: CueParamStart} }

// StopParam builds a Stop transport variant.
func StopParam(target uuid.UUID) TransportParam { return TransportParam{Target: target, kind: CueParamStop} }

// PauseParam builds a Pause transport variant.
func PauseParam(target uuid.UUID) TransportParam { return TransportParam{Target: target, kind: CueParamPause} }

// LoadParam builds a Load transport variant.
func LoadParam(target uuid.UUID) TransportParam { return TransportParam{Target: target, kind: CueParamLoad} }

// GroupMode selects whether a Group's children run serially (Playlist) or
// all at once (Concurrency).
type GroupMode struct {
	Concurrency bool `json:"concurrency"`
	Repeat      bool `json:"repeat"` // only meaningful when Concurrency == false
}

// Playlist returns a serial GroupMode, optionally repeating from the top
// once the last child completes.
func Playlist(repeat bool) GroupMode { return GroupMode{Concurrency: false, Repeat: repeat} }

// Concurrency returns a parallel GroupMode.
func Concurrency() GroupMode { return GroupMode{Concurrency: true} }

// GroupParam is the Group cue-param variant: a container of child cues.
type GroupParam struct {
	Mode     GroupMode `json:"mode"`
	Children []*Cue    `json:"children"`
}

func (GroupParam) Kind() CueParamKind { return CueParamGroup }
func (GroupParam) isCueParam()        {}

// CueSequenceKind discriminates the CueSequence tagged union.
type CueSequenceKind string

const (
	SequenceDoNotContinue CueSequenceKind = "doNotContinue"
	SequenceAutoContinue  CueSequenceKind = "autoContinue"
	SequenceAutoFollow    CueSequenceKind = "autoFollow"
)

// CueSequence controls what, if anything, automatically runs after a cue
// completes. AutoContinue waits PostWait seconds after Completed before
// starting Target; AutoFollow starts Target immediately on Completed.
type CueSequence struct {
	Kind     CueSequenceKind `json:"type"`
	Target   uuid.UUID       `json:"target,omitempty"`
	PostWait float64         `json:"postWait,omitempty"`
}

// DoNotContinue is the default sequence: nothing runs automatically.
func DoNotContinue() CueSequence { return CueSequence{Kind: SequenceDoNotContinue} }

// AutoContinue runs target postWait seconds after this cue's Completed.
func AutoContinue(target uuid.UUID, postWait float64) CueSequence {
	return CueSequence{Kind: SequenceAutoContinue, Target: target, PostWait: postWait}
}

// AutoFollow runs target immediately on this cue's Completed.
func AutoFollow(target uuid.UUID) CueSequence {
	return CueSequence{Kind: SequenceAutoFollow, Target: target}
}

// Cue is a single scripted action in the show.
type Cue struct {
	ID       uuid.UUID   `json:"id"`
	Number   string      `json:"number"`
	Name     string      `json:"name"`
	Notes    string      `json:"notes"`
	PreWait  float64     `json:"preWait"`
	Sequence CueSequence `json:"sequence"`
	Params   CueParam    `json:"params"`
}

// cueWire is the externally-tagged wire shape for Cue: Params is split into
// a "type" discriminator and a "params" payload, matching the rest of the
// show file's enum encoding.
type cueWire struct {
	ID       uuid.UUID       `json:"id"`
	Number   string          `json:"number"`
	Name     string          `json:"name"`
	Notes    string          `json:"notes"`
	PreWait  float64         `json:"preWait"`
	Sequence CueSequence     `json:"sequence"`
	Type     CueParamKind    `json:"type"`
	Params   json.RawMessage `json:"params"`
}

// MarshalJSON encodes Cue with its CueParam flattened into a type+params
// envelope.
func (c Cue) MarshalJSON() ([]byte, error) {
	payload, err := json.Marshal(c.Params)
	if err != nil {
		return nil, fmt.Errorf("marshal cue params: %w", err)
	}
	var kind CueParamKind
	if c.Params != nil {
		kind = c.Params.Kind()
	}
	return json.Marshal(cueWire{
		ID:       c.ID,
		Number:   c.Number,
		Name:     c.Name,
		Notes:    c.Notes,
		PreWait:  c.PreWait,
		Sequence: c.Sequence,
		Type:     kind,
		Params:   payload,
	})
}

// UnmarshalJSON decodes a type+params envelope into the matching concrete
// CueParam implementation.
func (c *Cue) UnmarshalJSON(data []byte) error {
	var wire cueWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	c.ID = wire.ID
	c.Number = wire.Number
	c.Name = wire.Name
	c.Notes = wire.Notes
	c.PreWait = wire.PreWait
	c.Sequence = wire.Sequence

	params, err := unmarshalCueParam(wire.Type, wire.Params)
	if err != nil {
		return fmt.Errorf("cue %s: %w", wire.ID, err)
	}
	c.Params = params
	return nil
}

func unmarshalCueParam(kind CueParamKind, raw json.RawMessage) (CueParam, error) {
	switch kind {
	case CueParamAudio:
		var p AudioParam
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	case CueParamWait:
		var p WaitParam
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	case CueParamFade:
		var p FadeCueParam
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	case CueParamStart, CueParamStop, CueParamPause, CueParamLoad:
		var body struct {
			Target uuid.UUID `json:"target"`
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			return nil, err
		}
		return TransportParam{Target: body.Target, kind: kind}, nil
	case CueParamGroup:
		var p GroupParam
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown cue param type %q", kind)
	}
}
