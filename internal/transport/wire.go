// Package transport implements the HTTP/WebSocket API surface: the
// WsCommand/WsFeedback wire protocol, a one-shot REST snapshot, service
// discovery, and the chi router wiring it all together.
package transport

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/sbsp/playback-engine/internal/controller"
	"github.com/sbsp/playback-engine/internal/event"
	"github.com/sbsp/playback-engine/internal/executor"
	"github.com/sbsp/playback-engine/internal/manager"
	"github.com/sbsp/playback-engine/internal/model"
)

// WsCommandKind discriminates the client->server WsCommand envelope.
type WsCommandKind string

const (
	WsCommandControl          WsCommandKind = "control"
	WsCommandModel            WsCommandKind = "model"
	WsCommandAssetProcessor   WsCommandKind = "assetProcessor"
	WsCommandRequestAssetList WsCommandKind = "requestAssetList"
)

// wsCommandWire is the externally-tagged envelope read off the socket.
type wsCommandWire struct {
	Command WsCommandKind   `json:"command"`
	Data    json.RawMessage `json:"data"`
}

// controlCommandWire mirrors controller.Command's closed set with a
// "type" discriminator, matching the rest of the wire protocol's enum
// encoding.
type controlCommandWire struct {
	Type     string                  `json:"type"`
	CueID    *uuid.UUID              `json:"cueId,omitempty"`
	Position *float64                `json:"position,omitempty"`
	Delta    *float64                `json:"delta,omitempty"`
	Action   json.RawMessage         `json:"action,omitempty"`
	Settings *executor.EngineSettings `json:"settings,omitempty"`
}

type cueActionWire struct {
	Type     string  `json:"type"`
	VolumeDB float32 `json:"volumeDb,omitempty"`
}

// modelCommandWire mirrors manager.ModelCommand's closed set.
type modelCommandWire struct {
	Type      string          `json:"type"`
	Cue       *model.Cue      `json:"cue,omitempty"`
	Cues      []*model.Cue    `json:"cues,omitempty"`
	CueID     *uuid.UUID      `json:"cueId,omitempty"`
	CueIDs    []uuid.UUID     `json:"cueIds,omitempty"`
	AtIndex   int             `json:"atIndex,omitempty"`
	ToIndex   int             `json:"toIndex,omitempty"`
	StartFrom float64         `json:"startFrom,omitempty"`
	Increment float64         `json:"increment,omitempty"`
	Path      string          `json:"path,omitempty"`
	Settings  json.RawMessage `json:"settings,omitempty"`
}

// decodeWsCommand parses one client->server frame into either a
// controller.Command or a manager.ModelCommand (never both), or reports
// that the command kind is recognized but unsupported (AssetProcessor /
// RequestAssetList: the asset-analysis service is an external collaborator
// this repo does not implement).
func decodeWsCommand(raw []byte) (controlCmd controller.Command, modelCmd manager.ModelCommand, unsupported string, err error) {
	var envelope wsCommandWire
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, nil, "", fmt.Errorf("decode WsCommand envelope: %w", err)
	}

	switch envelope.Command {
	case WsCommandControl:
		controlCmd, err = decodeControlCommand(envelope.Data)
		return controlCmd, nil, "", err
	case WsCommandModel:
		modelCmd, err = decodeModelCommand(envelope.Data)
		return nil, modelCmd, "", err
	case WsCommandAssetProcessor:
		return nil, nil, "AssetProcessor", nil
	case WsCommandRequestAssetList:
		return nil, nil, "RequestAssetList", nil
	default:
		return nil, nil, "", fmt.Errorf("unknown WsCommand kind %q", envelope.Command)
	}
}

func decodeControlCommand(raw json.RawMessage) (controller.Command, error) {
	var wire controlCommandWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("decode control command: %w", err)
	}

	cueID := func() uuid.UUID {
		if wire.CueID != nil {
			return *wire.CueID
		}
		return uuid.Nil
	}

	switch wire.Type {
	case "go":
		return controller.Go{}, nil
	case "setPlaybackCursor":
		return controller.SetPlaybackCursor{CueID: cueID()}, nil
	case "load":
		return controller.Load{CueID: cueID()}, nil
	case "execute":
		return controller.Execute{CueID: cueID()}, nil
	case "pause":
		return controller.Pause{CueID: cueID()}, nil
	case "resume":
		return controller.Resume{CueID: cueID()}, nil
	case "stop":
		return controller.Stop{CueID: cueID()}, nil
	case "stopAll":
		return controller.StopAll{}, nil
	case "pauseAll":
		return controller.PauseAll{}, nil
	case "resumeAll":
		return controller.ResumeAll{}, nil
	case "seekTo":
		pos := 0.0
		if wire.Position != nil {
			pos = *wire.Position
		}
		return controller.SeekTo{CueID: cueID(), Position: pos}, nil
	case "seekBy":
		delta := 0.0
		if wire.Delta != nil {
			delta = *wire.Delta
		}
		return controller.SeekBy{CueID: cueID(), Delta: delta}, nil
	case "performAction":
		action, err := decodeCueAction(wire.Action)
		if err != nil {
			return nil, err
		}
		return controller.PerformAction{CueID: cueID(), Action: action}, nil
	case "reconfigureEngines":
		settings := executor.EngineSettings{}
		if wire.Settings != nil {
			settings = *wire.Settings
		}
		return controller.ReconfigureEngines{Settings: settings}, nil
	default:
		return nil, fmt.Errorf("unknown control command type %q", wire.Type)
	}
}

func decodeCueAction(raw json.RawMessage) (event.CueAction, error) {
	var wire cueActionWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("decode cue action: %w", err)
	}
	switch wire.Type {
	case "toggleRepeat":
		return event.ToggleRepeat{}, nil
	case "setVolume":
		return event.SetVolume{VolumeDB: wire.VolumeDB}, nil
	default:
		return nil, fmt.Errorf("unknown cue action type %q", wire.Type)
	}
}

func decodeModelCommand(raw json.RawMessage) (manager.ModelCommand, error) {
	var wire modelCommandWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("decode model command: %w", err)
	}

	switch wire.Type {
	case "updateCue":
		if wire.Cue == nil {
			return nil, fmt.Errorf("updateCue requires cue")
		}
		return manager.UpdateCue{Cue: wire.Cue}, nil
	case "addCue":
		if wire.Cue == nil {
			return nil, fmt.Errorf("addCue requires cue")
		}
		return manager.AddCue{Cue: wire.Cue, AtIndex: wire.AtIndex}, nil
	case "addCues":
		return manager.AddCues{Cues: wire.Cues, AtIndex: wire.AtIndex}, nil
	case "removeCue":
		if wire.CueID == nil {
			return nil, fmt.Errorf("removeCue requires cueId")
		}
		return manager.RemoveCue{CueID: *wire.CueID}, nil
	case "moveCue":
		if wire.CueID == nil {
			return nil, fmt.Errorf("moveCue requires cueId")
		}
		return manager.MoveCue{CueID: *wire.CueID, ToIndex: wire.ToIndex}, nil
	case "renumberCues":
		return manager.RenumberCues{CueIDs: wire.CueIDs, StartFrom: wire.StartFrom, Increment: wire.Increment}, nil
	case "updateSettings":
		var settings model.ShowSettings
		if len(wire.Settings) > 0 {
			if err := json.Unmarshal(wire.Settings, &settings); err != nil {
				return nil, fmt.Errorf("decode settings: %w", err)
			}
		}
		return manager.UpdateSettings{Settings: settings}, nil
	case "save":
		return manager.Save{}, nil
	case "saveToFile":
		return manager.SaveToFile{Path: wire.Path}, nil
	case "loadFromFile":
		return manager.LoadFromFile{Path: wire.Path}, nil
	default:
		return nil, fmt.Errorf("unknown model command type %q", wire.Type)
	}
}

// WsFeedbackKind discriminates the server->client WsFeedback envelope.
type WsFeedbackKind string

const (
	WsFeedbackEvent               WsFeedbackKind = "event"
	WsFeedbackState                WsFeedbackKind = "state"
	WsFeedbackAssetProcessorResult WsFeedbackKind = "assetProcessorResult"
	WsFeedbackError                WsFeedbackKind = "error"
)

type wsFeedbackWire struct {
	Feedback WsFeedbackKind `json:"feedback"`
	Data     any            `json:"data"`
}

// encodeEventFeedback wraps a UiEvent into a WsFeedback::Event frame.
func encodeEventFeedback(evt event.UiEvent) ([]byte, error) {
	return json.Marshal(wsFeedbackWire{Feedback: WsFeedbackEvent, Data: uiEventWire(evt)})
}

// encodeStateFeedback wraps a ShowState into a WsFeedback::State frame.
func encodeStateFeedback(state controller.ShowState) ([]byte, error) {
	return json.Marshal(wsFeedbackWire{Feedback: WsFeedbackState, Data: state})
}

// encodeErrorFeedback reports a malformed or unsupported client command.
func encodeErrorFeedback(message string) ([]byte, error) {
	return json.Marshal(wsFeedbackWire{Feedback: WsFeedbackError, Data: map[string]string{"message": message}})
}

// uiEventWire flattens a UiEvent into a type+payload envelope, matching
// the rest of the wire protocol's externally-tagged enum encoding.
func uiEventWire(evt event.UiEvent) map[string]any {
	switch e := evt.(type) {
	case event.CueLoaded:
		return map[string]any{"type": "cueLoaded", "cueId": e.CueID}
	case event.CuePreWaitStarted:
		return map[string]any{"type": "cuePreWaitStarted", "cueId": e.CueID}
	case event.CuePreWaitProgress:
		return map[string]any{"type": "cuePreWaitProgress", "cueId": e.CueID, "position": e.Position, "duration": e.Duration}
	case event.CuePreWaitPaused:
		return map[string]any{"type": "cuePreWaitPaused", "cueId": e.CueID}
	case event.CuePreWaitResumed:
		return map[string]any{"type": "cuePreWaitResumed", "cueId": e.CueID}
	case event.CuePreWaitStopped:
		return map[string]any{"type": "cuePreWaitStopped", "cueId": e.CueID}
	case event.CuePreWaitCompleted:
		return map[string]any{"type": "cuePreWaitCompleted", "cueId": e.CueID}
	case event.CueStarted:
		return map[string]any{"type": "cueStarted", "cueId": e.CueID}
	case event.CuePaused:
		return map[string]any{"type": "cuePaused", "cueId": e.CueID}
	case event.CueResumed:
		return map[string]any{"type": "cueResumed", "cueId": e.CueID}
	case event.CueStopped:
		return map[string]any{"type": "cueStopped", "cueId": e.CueID}
	case event.CueCompleted:
		return map[string]any{"type": "cueCompleted", "cueId": e.CueID}
	case event.CueError:
		return map[string]any{"type": "cueError", "cueId": e.CueID, "message": e.Message}
	case event.StateParamUpdated:
		return map[string]any{"type": "stateParamUpdated", "cueId": e.CueID, "param": e.Param, "value": e.Value}
	case event.PlaybackCursorMoved:
		return map[string]any{"type": "playbackCursorMoved", "cueId": e.CueID}
	case event.ShowModelLoaded:
		return map[string]any{"type": "showModelLoaded", "path": e.Path}
	case event.ShowModelSaved:
		return map[string]any{"type": "showModelSaved", "path": e.Path}
	case event.CueUpdated:
		return map[string]any{"type": "cueUpdated", "cue": e.Cue}
	case event.CueAdded:
		return map[string]any{"type": "cueAdded", "cue": e.Cue, "atIndex": e.AtIndex}
	case event.CuesAdded:
		return map[string]any{"type": "cuesAdded", "cues": e.Cues, "atIndex": e.AtIndex}
	case event.CueRemoved:
		return map[string]any{"type": "cueRemoved", "cueId": e.CueID}
	case event.CueMoved:
		return map[string]any{"type": "cueMoved", "cueId": e.CueID, "toIndex": e.ToIndex}
	case event.SettingsUpdated:
		return map[string]any{"type": "settingsUpdated", "settings": e.Settings}
	case event.OperationFailed:
		return map[string]any{"type": "operationFailed", "error": uiErrorWire(e.Error)}
	default:
		return map[string]any{"type": "unknown"}
	}
}

func uiErrorWire(err event.UiError) map[string]any {
	switch e := err.(type) {
	case event.FileSaveError:
		return map[string]any{"type": "fileSave", "path": e.Path, "message": e.Message}
	case event.FileLoadError:
		return map[string]any{"type": "fileLoad", "path": e.Path, "message": e.Message}
	case event.CueEditError:
		return map[string]any{"type": "cueEdit", "message": e.Message}
	default:
		return map[string]any{"type": "unknown"}
	}
}

// snapshotResponse is the body of GET /snapshot: the full model and the
// derived playback state, for a new client to bootstrap from before
// subscribing to the websocket feed.
type snapshotResponse struct {
	Model *model.ShowModel    `json:"model"`
	State controller.ShowState `json:"state"`
}
