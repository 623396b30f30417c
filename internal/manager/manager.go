// Package manager implements the ShowModelManager, the concrete external
// collaborator that owns the cue forest, show settings, and JSON show-file
// persistence.
package manager

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/sbsp/playback-engine/internal/event"
	"github.com/sbsp/playback-engine/internal/model"
)

// EventSink is the broadcast UI event publisher the manager emits model
// edits and save/load outcomes through.
type EventSink interface {
	Publish(event.UiEvent)
}

// ShowModelManager is the single writer of the show model. It runs its own
// command-processing goroutine; all mutation goes through ModelCommand.
type ShowModelManager struct {
	mu    sync.RWMutex
	model *model.ShowModel

	commandCh chan ModelCommand
	events    EventSink

	pathMu sync.RWMutex
	path   *string
}

// New creates a manager and its handle. Call Run to start processing
// commands.
func New(events EventSink) (*ShowModelManager, *ShowModelHandle) {
	m := &ShowModelManager{
		model:     model.NewShowModel(),
		commandCh: make(chan ModelCommand, 32),
		events:    events,
	}
	handle := &ShowModelHandle{manager: m}
	return m, handle
}

// Run processes commands until the command channel is closed.
func (m *ShowModelManager) Run() {
	log.Println("ShowModelManager run loop started")
	for cmd := range m.commandCh {
		if err := m.process(cmd); err != nil {
			log.Printf("ShowModelManager: failed processing command: %v", err)
		}
	}
	log.Println("ShowModelManager run loop finished")
}

func (m *ShowModelManager) process(cmd ModelCommand) error {
	switch c := cmd.(type) {
	case UpdateCue:
		m.mu.Lock()
		idx := -1
		for i, existing := range m.model.Cues {
			if existing.ID == c.Cue.ID {
				idx = i
				break
			}
		}
		if idx < 0 {
			m.mu.Unlock()
			m.events.Publish(event.OperationFailed{Error: event.CueEditError{
				Message: fmt.Sprintf("cue doesn't exist: cue_id=%s", c.Cue.ID),
			}})
			return nil
		}
		m.model.Cues[idx] = c.Cue
		m.mu.Unlock()
		m.events.Publish(event.CueUpdated{Cue: c.Cue})

	case AddCue:
		m.mu.Lock()
		if _, found := m.model.FindByID(c.Cue.ID); found {
			m.mu.Unlock()
			m.events.Publish(event.OperationFailed{Error: event.CueEditError{
				Message: fmt.Sprintf("cue already exists: cue_id=%s", c.Cue.ID),
			}})
			return nil
		}
		if c.AtIndex > len(m.model.Cues) {
			m.mu.Unlock()
			m.events.Publish(event.OperationFailed{Error: event.CueEditError{
				Message: "insert index is out of list",
			}})
			return nil
		}
		m.model.Cues = insertCue(m.model.Cues, c.AtIndex, c.Cue)
		m.mu.Unlock()
		m.events.Publish(event.CueAdded{Cue: c.Cue, AtIndex: c.AtIndex})

	case AddCues:
		m.mu.Lock()
		if c.AtIndex > len(m.model.Cues) {
			m.mu.Unlock()
			m.events.Publish(event.OperationFailed{Error: event.CueEditError{
				Message: "insert index is out of list",
			}})
			return nil
		}
		var added []*model.Cue
		insertAt := c.AtIndex
		for _, cue := range c.Cues {
			if _, found := m.model.FindByID(cue.ID); found {
				m.events.Publish(event.OperationFailed{Error: event.CueEditError{
					Message: fmt.Sprintf("cue already exists: cue_id=%s", cue.ID),
				}})
				continue
			}
			m.model.Cues = insertCue(m.model.Cues, insertAt, cue)
			added = append(added, cue)
			insertAt++
		}
		m.mu.Unlock()
		m.events.Publish(event.CuesAdded{Cues: added, AtIndex: c.AtIndex})

	case RemoveCue:
		m.mu.Lock()
		idx := -1
		for i, existing := range m.model.Cues {
			if existing.ID == c.CueID {
				idx = i
				break
			}
		}
		if idx < 0 {
			m.mu.Unlock()
			m.events.Publish(event.OperationFailed{Error: event.CueEditError{
				Message: fmt.Sprintf("cue doesn't exist: cue_id=%s", c.CueID),
			}})
			return nil
		}
		m.model.Cues = append(m.model.Cues[:idx], m.model.Cues[idx+1:]...)
		m.mu.Unlock()
		m.events.Publish(event.CueRemoved{CueID: c.CueID})

	case MoveCue:
		m.mu.Lock()
		idx := -1
		for i, existing := range m.model.Cues {
			if existing.ID == c.CueID {
				idx = i
				break
			}
		}
		if idx < 0 {
			m.mu.Unlock()
			m.events.Publish(event.OperationFailed{Error: event.CueEditError{
				Message: fmt.Sprintf("cue doesn't exist: cue_id=%s", c.CueID),
			}})
			return nil
		}
		if c.ToIndex > len(m.model.Cues)-1 {
			m.mu.Unlock()
			m.events.Publish(event.OperationFailed{Error: event.CueEditError{
				Message: "insert index is out of list",
			}})
			return nil
		}
		cue := m.model.Cues[idx]
		m.model.Cues = append(m.model.Cues[:idx], m.model.Cues[idx+1:]...)
		m.model.Cues = insertCue(m.model.Cues, c.ToIndex, cue)
		m.mu.Unlock()
		m.events.Publish(event.CueMoved{CueID: c.CueID, ToIndex: c.ToIndex})

	case RenumberCues:
		m.mu.Lock()
		targets := make(map[uuid.UUID]bool, len(c.CueIDs))
		for _, id := range c.CueIDs {
			targets[id] = true
		}
		number := c.StartFrom
		renumbered := false
		for _, cue := range m.model.Cues {
			if targets[cue.ID] {
				cue.Number = fmt.Sprintf("%g", number)
				number += c.Increment
				renumbered = true
			}
		}
		cues := m.model.Cues
		m.mu.Unlock()
		if renumbered {
			m.events.Publish(event.CuesAdded{Cues: cues, AtIndex: 0})
		}

	case UpdateSettings:
		m.mu.Lock()
		m.model.Settings = c.Settings
		m.mu.Unlock()
		m.events.Publish(event.SettingsUpdated{Settings: c.Settings})

	case Save:
		m.pathMu.RLock()
		path := m.path
		m.pathMu.RUnlock()
		if path == nil {
			log.Println("Save issued but no file path is set; use SaveToFile first")
			m.events.Publish(event.OperationFailed{Error: event.FileSaveError{
				Message: "no file path is set; use SaveToFile first",
			}})
			return nil
		}
		return m.saveTo(*path)

	case SaveToFile:
		if err := m.saveTo(c.Path); err != nil {
			return err
		}
		m.pathMu.Lock()
		m.path = &c.Path
		m.pathMu.Unlock()

	case LoadFromFile:
		if err := m.loadFrom(c.Path); err != nil {
			return err
		}
		m.pathMu.Lock()
		m.path = &c.Path
		m.pathMu.Unlock()

	default:
		return fmt.Errorf("unknown model command %T", cmd)
	}
	return nil
}

func insertCue(cues []*model.Cue, at int, cue *model.Cue) []*model.Cue {
	cues = append(cues, nil)
	copy(cues[at+1:], cues[at:])
	cues[at] = cue
	return cues
}

func (m *ShowModelManager) saveTo(path string) error {
	m.mu.RLock()
	data, err := json.MarshalIndent(m.model, "", "  ")
	m.mu.RUnlock()
	if err != nil {
		m.events.Publish(event.OperationFailed{Error: event.FileSaveError{Path: path, Message: err.Error()}})
		return fmt.Errorf("marshal show model: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		m.events.Publish(event.OperationFailed{Error: event.FileSaveError{Path: path, Message: err.Error()}})
		return fmt.Errorf("write show file %s: %w", path, err)
	}
	log.Printf("Show saved to: %s", path)
	m.events.Publish(event.ShowModelSaved{Path: path})
	return nil
}

func (m *ShowModelManager) loadFrom(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		m.events.Publish(event.OperationFailed{Error: event.FileLoadError{Path: path, Message: err.Error()}})
		return fmt.Errorf("read show file %s: %w", path, err)
	}
	loaded := model.NewShowModel()
	if err := json.Unmarshal(data, loaded); err != nil {
		m.events.Publish(event.OperationFailed{Error: event.FileLoadError{Path: path, Message: err.Error()}})
		return fmt.Errorf("decode show file %s: %w", path, err)
	}
	m.mu.Lock()
	m.model = loaded
	m.mu.Unlock()
	log.Printf("Show loaded from: %s", path)
	m.events.Publish(event.ShowModelLoaded{Path: path})
	return nil
}
