package manager

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/sbsp/playback-engine/internal/model"
)

// ShowModelHandle is the cheap, clonable handle the Controller, Executor,
// and transport layer use to read the model and enqueue ModelCommands —
// the readable-cue-tree interface the playback core depends on from its
// model collaborator.
type ShowModelHandle struct {
	manager *ShowModelManager
}

// Send enqueues a ModelCommand for the manager's goroutine to process.
func (h *ShowModelHandle) Send(cmd ModelCommand) error {
	select {
	case h.manager.commandCh <- cmd:
		return nil
	default:
		return fmt.Errorf("model command queue full")
	}
}

// Close closes the command channel, causing the manager's Run loop to exit.
func (h *ShowModelHandle) Close() {
	close(h.manager.commandCh)
}

// Snapshot returns a read-locked deep-enough copy of the current show
// model's top-level cue list for callers that need to iterate without
// holding the lock across further work. Callers needing point lookups
// should prefer GetCueByID et al.
func (h *ShowModelHandle) Snapshot() *model.ShowModel {
	h.manager.mu.RLock()
	defer h.manager.mu.RUnlock()
	snapshot := *h.manager.model
	snapshot.Cues = append([]*model.Cue(nil), h.manager.model.Cues...)
	return &snapshot
}

// GetCueByID returns the cue with the given id anywhere in the forest.
func (h *ShowModelHandle) GetCueByID(id uuid.UUID) (*model.Cue, bool) {
	h.manager.mu.RLock()
	defer h.manager.mu.RUnlock()
	return h.manager.model.FindByID(id)
}

// GetCueAndParentByID returns the cue and its immediate Group parent (nil
// if top-level).
func (h *ShowModelHandle) GetCueAndParentByID(id uuid.UUID) (cue *model.Cue, parent *model.Cue, found bool) {
	h.manager.mu.RLock()
	defer h.manager.mu.RUnlock()
	return h.manager.model.FindWithParent(id)
}

// GetAllChildrenByID returns the direct children of id if it is a Group.
func (h *ShowModelHandle) GetAllChildrenByID(id uuid.UUID) ([]*model.Cue, bool) {
	h.manager.mu.RLock()
	defer h.manager.mu.RUnlock()
	return h.manager.model.ChildrenOf(id)
}

// FirstTopLevelCue returns the first top-level cue, if any.
func (h *ShowModelHandle) FirstTopLevelCue() (*model.Cue, bool) {
	h.manager.mu.RLock()
	defer h.manager.mu.RUnlock()
	if len(h.manager.model.Cues) == 0 {
		return nil, false
	}
	return h.manager.model.Cues[0], true
}

// NextTopLevelCue returns the top-level cue immediately after id, if any.
func (h *ShowModelHandle) NextTopLevelCue(id uuid.UUID) (*model.Cue, bool) {
	h.manager.mu.RLock()
	defer h.manager.mu.RUnlock()
	idx := h.manager.model.TopLevelIndex(id)
	if idx < 0 || idx+1 >= len(h.manager.model.Cues) {
		return nil, false
	}
	return h.manager.model.Cues[idx+1], true
}

// GetCurrentFilePath returns the path the model was last loaded from or
// saved to, if any.
func (h *ShowModelHandle) GetCurrentFilePath() (string, bool) {
	h.manager.pathMu.RLock()
	defer h.manager.pathMu.RUnlock()
	if h.manager.path == nil {
		return "", false
	}
	return *h.manager.path, true
}
