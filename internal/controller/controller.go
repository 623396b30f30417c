// Package controller implements the Controller: the operator-facing layer
// that owns the playback cursor, services GO and transport-style fan-out
// commands, and derives the observable ShowState from the Executor's event
// stream. One goroutine folds state by selecting over three channels: UI
// commands, Executor events, and a tee of the UiEvent broadcast.
package controller

import (
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/sbsp/playback-engine/internal/event"
	"github.com/sbsp/playback-engine/internal/executor"
	"github.com/sbsp/playback-engine/internal/model"
)

// ModelReader is the subset of ShowModelHandle the Controller needs to
// resolve the cursor and sequence targets.
type ModelReader interface {
	GetCueByID(id uuid.UUID) (*model.Cue, bool)
	GetCueAndParentByID(id uuid.UUID) (cue *model.Cue, parent *model.Cue, found bool)
	FirstTopLevelCue() (*model.Cue, bool)
	NextTopLevelCue(id uuid.UUID) (*model.Cue, bool)
}

// EventSink is the UI broadcast publisher the Controller re-publishes
// discrete lifecycle events through.
type EventSink interface {
	Publish(event.UiEvent)
}

// Controller owns the playback cursor and ShowState.
type Controller struct {
	model ModelReader
	ui    EventSink

	executorCmds chan<- executor.Command
	executorEvts <-chan executor.Event
	uiEvents     <-chan event.UiEvent

	commandCh chan Command
	state     ShowState
	watch     *StateWatch

	stopCh chan struct{}
}

// New creates a Controller. uiEvents should be a tee of the broadcast Hub
// (a dedicated subscription) so the Controller can react to model edits
// without competing with transport-layer subscribers.
func New(model ModelReader, ui EventSink, executorCmds chan<- executor.Command, executorEvts <-chan executor.Event, uiEvents <-chan event.UiEvent) *Controller {
	return &Controller{
		model:        model,
		ui:           ui,
		executorCmds: executorCmds,
		executorEvts: executorEvts,
		uiEvents:     uiEvents,
		commandCh:    make(chan Command, 32),
		state:        ShowState{ActiveCues: make(map[uuid.UUID]ActiveCue)},
		watch:        NewStateWatch(),
		stopCh:       make(chan struct{}),
	}
}

// CommandChannel returns the channel callers send Commands on.
func (c *Controller) CommandChannel() chan<- Command { return c.commandCh }

// Watch returns the ShowState broadcaster for transport-layer subscribers.
func (c *Controller) Watch() *StateWatch { return c.watch }

// Run is the Controller's goroutine body.
func (c *Controller) Run() {
	log.Println("Controller run loop started")
	for {
		select {
		case cmd, ok := <-c.commandCh:
			if !ok {
				log.Println("Controller run loop finished")
				return
			}
			c.handleCommand(cmd)
		case evt, ok := <-c.executorEvts:
			if !ok {
				log.Println("Controller run loop finished")
				return
			}
			c.handleExecutorEvent(evt)
		case evt, ok := <-c.uiEvents:
			if !ok {
				log.Println("Controller run loop finished")
				return
			}
			c.handleUiEvent(evt)
		case <-c.stopCh:
			log.Println("Controller run loop finished")
			return
		}
	}
}

// Stop halts the Controller's goroutine.
func (c *Controller) Stop() { close(c.stopCh) }

func (c *Controller) handleCommand(cmd Command) {
	switch cmd := cmd.(type) {
	case Go:
		c.handleGo()
	case SetPlaybackCursor:
		c.handleSetCursor(cmd.CueID)
	case Load:
		c.executorCmds <- executor.Load{CueID: cmd.CueID}
	case Execute:
		c.executorCmds <- executor.Execute{CueID: cmd.CueID}
	case Pause:
		c.executorCmds <- executor.Pause{CueID: cmd.CueID}
	case Resume:
		c.executorCmds <- executor.Resume{CueID: cmd.CueID}
	case Stop:
		c.executorCmds <- executor.Stop{CueID: cmd.CueID}
	case StopAll:
		c.fanOutActive(func(id uuid.UUID) { c.executorCmds <- executor.Stop{CueID: id} })
	case PauseAll:
		c.fanOutActive(func(id uuid.UUID) { c.executorCmds <- executor.Pause{CueID: id} })
	case ResumeAll:
		c.fanOutActive(func(id uuid.UUID) { c.executorCmds <- executor.Resume{CueID: id} })
	case SeekTo:
		c.executorCmds <- executor.SeekTo{CueID: cmd.CueID, Position: cmd.Position}
	case SeekBy:
		c.executorCmds <- executor.SeekBy{CueID: cmd.CueID, Delta: cmd.Delta}
	case PerformAction:
		c.executorCmds <- executor.PerformAction{CueID: cmd.CueID, Action: cmd.Action}
	case ReconfigureEngines:
		c.executorCmds <- executor.ReconfigureEngines{Settings: cmd.Settings}
	default:
		log.Printf("Controller: unknown command %T", cmd)
	}
}

// fanOutActive dispatches f for every cue id currently in ShowState's
// active_cues. Used by StopAll/PauseAll/ResumeAll; each dispatch is
// independent of the others' outcome.
func (c *Controller) fanOutActive(f func(uuid.UUID)) {
	for id := range c.state.ActiveCues {
		f(id)
	}
}

func (c *Controller) handleGo() {
	if c.state.PlaybackCursor == nil {
		log.Println("Controller: GO with no playback cursor set, ignored")
		return
	}
	cursor := *c.state.PlaybackCursor
	c.executorCmds <- executor.Execute{CueID: cursor}
	if next, ok := c.model.NextTopLevelCue(cursor); ok {
		c.setCursor(next.ID)
	} else {
		c.clearCursor()
	}
}

func (c *Controller) handleSetCursor(id uuid.UUID) {
	if _, ok := c.model.GetCueByID(id); !ok {
		log.Printf("Controller: SetPlaybackCursor on unknown cue %s, ignored", id)
		return
	}
	c.setCursor(id)
}

func (c *Controller) setCursor(id uuid.UUID) {
	if c.state.PlaybackCursor != nil && *c.state.PlaybackCursor == id {
		return
	}
	c.state.PlaybackCursor = &id
	c.publishState()
	c.ui.Publish(event.PlaybackCursorMoved{CueID: id})
}

func (c *Controller) clearCursor() {
	if c.state.PlaybackCursor == nil {
		return
	}
	c.state.PlaybackCursor = nil
	c.publishState()
}

func (c *Controller) publishState() {
	c.watch.Publish(c.state)
}

// handleUiEvent reacts to model-edit broadcasts that affect the cursor.
func (c *Controller) handleUiEvent(evt event.UiEvent) {
	switch e := evt.(type) {
	case event.ShowModelLoaded:
		if c.state.PlaybackCursor == nil {
			if first, ok := c.model.FirstTopLevelCue(); ok {
				c.setCursor(first.ID)
			}
		}
	case event.CueAdded:
		if c.state.PlaybackCursor == nil && e.Cue != nil {
			c.setCursor(e.Cue.ID)
		}
	case event.CueRemoved:
		if c.state.PlaybackCursor != nil && *c.state.PlaybackCursor == e.CueID {
			if first, ok := c.model.FirstTopLevelCue(); ok {
				c.setCursor(first.ID)
			} else {
				c.clearCursor()
			}
		}
	}
}

func (c *Controller) handleExecutorEvent(evt executor.Event) {
	switch e := evt.(type) {
	case executor.Loaded:
		c.upsertActive(e.CueID, StatusLoaded, e.Position, e.Duration, "")
		c.ui.Publish(event.CueLoaded{CueID: e.CueID})

	case executor.Started:
		c.upsertActive(e.CueID, StatusPlaying, 0, 0, "")
		c.ui.Publish(event.CueStarted{CueID: e.CueID})

	case executor.Progress:
		c.updatePosition(e.CueID, e.Position, e.Duration)

	case executor.Paused:
		c.upsertActive(e.CueID, StatusPaused, e.Position, e.Duration, "")
		c.ui.Publish(event.CuePaused{CueID: e.CueID})

	case executor.Resumed:
		c.updateStatus(e.CueID, StatusPlaying)
		c.ui.Publish(event.CueResumed{CueID: e.CueID})

	case executor.Stopped:
		c.removeActive(e.CueID)
		c.ui.Publish(event.CueStopped{CueID: e.CueID})

	case executor.Completed:
		c.removeActive(e.CueID)
		c.ui.Publish(event.CueCompleted{CueID: e.CueID})
		c.scheduleSequence(e.CueID)

	case executor.Error:
		c.setError(e.CueID, e.Message)
		c.ui.Publish(event.CueError{CueID: e.CueID, Message: e.Message})

	case executor.PreWaitStarted:
		c.upsertActive(e.CueID, StatusPreWaiting, 0, 0, "")
		c.ui.Publish(event.CuePreWaitStarted{CueID: e.CueID})

	case executor.PreWaitProgress:
		c.updatePosition(e.CueID, e.Position, e.Duration)

	case executor.PreWaitPaused:
		c.upsertActive(e.CueID, StatusPreWaitPaused, e.Position, e.Duration, "")
		c.ui.Publish(event.CuePreWaitPaused{CueID: e.CueID})

	case executor.PreWaitResumed:
		c.updateStatus(e.CueID, StatusPreWaiting)
		c.ui.Publish(event.CuePreWaitResumed{CueID: e.CueID})

	case executor.PreWaitStopped:
		c.removeActive(e.CueID)
		c.ui.Publish(event.CuePreWaitStopped{CueID: e.CueID})

	case executor.PreWaitCompleted:
		c.ui.Publish(event.CuePreWaitCompleted{CueID: e.CueID})

	case executor.StateParamUpdated:
		c.ui.Publish(event.StateParamUpdated{CueID: e.CueID, Param: e.Param, Value: e.Value})

	default:
		log.Printf("Controller: unknown executor event %T", evt)
	}
}

func (c *Controller) upsertActive(id uuid.UUID, status PlaybackStatus, position, duration float64, message string) {
	c.state.ActiveCues[id] = ActiveCue{Position: position, Duration: duration, Status: status, Message: message}
	c.publishState()
}

func (c *Controller) updateStatus(id uuid.UUID, status PlaybackStatus) {
	cue, ok := c.state.ActiveCues[id]
	if !ok {
		c.state.ActiveCues[id] = ActiveCue{Status: status}
	} else {
		cue.Status = status
		c.state.ActiveCues[id] = cue
	}
	c.publishState()
}

func (c *Controller) updatePosition(id uuid.UUID, position, duration float64) {
	cue, ok := c.state.ActiveCues[id]
	if !ok {
		return
	}
	cue.Position = position
	cue.Duration = duration
	c.state.ActiveCues[id] = cue
	c.publishState()
}

func (c *Controller) removeActive(id uuid.UUID) {
	if _, ok := c.state.ActiveCues[id]; !ok {
		return
	}
	delete(c.state.ActiveCues, id)
	c.publishState()
}

func (c *Controller) setError(id uuid.UUID, message string) {
	c.state.ActiveCues[id] = ActiveCue{Status: StatusError, Message: message}
	c.publishState()
}

// scheduleSequence implements the AutoContinue/AutoFollow Open Question
// resolution (DESIGN.md #1): it applies only when the completed cue is
// top-level (reached by the cursor's own GO/auto-sequencing), not to cues
// completing as part of a Group's internal Playlist mechanics.
func (c *Controller) scheduleSequence(id uuid.UUID) {
	cue, parent, found := c.model.GetCueAndParentByID(id)
	if !found || parent != nil {
		return
	}
	switch cue.Sequence.Kind {
	case model.SequenceAutoFollow:
		target := cue.Sequence.Target
		c.executorCmds <- executor.Execute{CueID: target}
	case model.SequenceAutoContinue:
		target := cue.Sequence.Target
		delay := time.Duration(cue.Sequence.PostWait * float64(time.Second))
		cmds := c.executorCmds
		time.AfterFunc(delay, func() {
			cmds <- executor.Execute{CueID: target}
		})
	}
}
