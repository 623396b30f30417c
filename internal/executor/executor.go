// Package executor implements the Executor: the per-cue planner that maps
// cues onto engine commands (Audio/Wait) and folds engine events back into
// cue lifecycle events for the Controller. A single goroutine owns a
// mutex-guarded instance map and is its sole writer.
package executor

import (
	"log"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/sbsp/playback-engine/internal/engine/audio"
	"github.com/sbsp/playback-engine/internal/engine/wait"
	"github.com/sbsp/playback-engine/internal/event"
	"github.com/sbsp/playback-engine/internal/model"
)

// ActiveInstance is the per-cue-id record of what is currently in flight.
type ActiveInstance struct {
	CueID      uuid.UUID
	EngineType EngineType
	Executed   bool
}

// ModelReader is the subset of ShowModelHandle the Executor needs: a
// readable cue tree.
type ModelReader interface {
	GetCueByID(id uuid.UUID) (*model.Cue, bool)
	GetCueAndParentByID(id uuid.UUID) (cue *model.Cue, parent *model.Cue, found bool)
	GetAllChildrenByID(id uuid.UUID) ([]*model.Cue, bool)
	GetCurrentFilePath() (string, bool)
}

// Executor is the sole writer of the active-instance table; it runs as one
// goroutine selecting over its command channel and the two engines' event
// channels.
type Executor struct {
	mu        sync.RWMutex
	instances map[uuid.UUID]*ActiveInstance

	model ModelReader

	audioCmds   chan<- audio.Command
	waitCmds    chan<- wait.Command
	audioEvents <-chan audio.Event
	waitEvents  <-chan wait.Event

	commandCh chan Command
	out       chan<- Event

	stopCh chan struct{}
}

// New creates an Executor. audioEvents/waitEvents must be the receiving
// ends of the channels the corresponding engines were constructed with.
func New(model ModelReader, audioCmds chan<- audio.Command, waitCmds chan<- wait.Command, audioEvents <-chan audio.Event, waitEvents <-chan wait.Event, out chan<- Event) *Executor {
	return &Executor{
		instances:   make(map[uuid.UUID]*ActiveInstance),
		model:       model,
		audioCmds:   audioCmds,
		waitCmds:    waitCmds,
		audioEvents: audioEvents,
		waitEvents:  waitEvents,
		commandCh:   make(chan Command, 32),
		out:         out,
		stopCh:      make(chan struct{}),
	}
}

// CommandChannel returns the channel callers send Commands on.
func (e *Executor) CommandChannel() chan<- Command { return e.commandCh }

// Run is the Executor's goroutine body.
func (e *Executor) Run() {
	log.Println("Executor run loop started")
	for {
		select {
		case cmd, ok := <-e.commandCh:
			if !ok {
				log.Println("Executor run loop finished")
				return
			}
			e.handleCommand(cmd)
		case evt, ok := <-e.audioEvents:
			if !ok {
				log.Println("Executor run loop finished")
				return
			}
			e.handleAudioEvent(evt)
		case evt, ok := <-e.waitEvents:
			if !ok {
				log.Println("Executor run loop finished")
				return
			}
			e.handleWaitEvent(evt)
		case <-e.stopCh:
			log.Println("Executor run loop finished")
			return
		}
	}
}

// Stop halts the Executor's goroutine.
func (e *Executor) Stop() { close(e.stopCh) }

// Snapshot returns a shallow copy of the active-instance table, for
// observability and tests.
func (e *Executor) Snapshot() map[uuid.UUID]ActiveInstance {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[uuid.UUID]ActiveInstance, len(e.instances))
	for id, inst := range e.instances {
		out[id] = *inst
	}
	return out
}

func (e *Executor) handleCommand(cmd Command) {
	switch c := cmd.(type) {
	case Load:
		e.handleLoad(c.CueID)
	case Execute:
		e.handleExecute(c.CueID)
	case Pause:
		e.handlePause(c.CueID)
	case Resume:
		e.handleResume(c.CueID)
	case Stop:
		e.handleStop(c.CueID)
	case SeekTo:
		e.handleSeekTo(c.CueID, c.Position)
	case SeekBy:
		e.handleSeekBy(c.CueID, c.Delta)
	case PerformAction:
		e.handlePerformAction(c.CueID, c.Action)
	case ReconfigureEngines:
		e.audioCmds <- audio.Reconfigure{BaseVolumeDB: c.Settings.AudioBaseVolumeDB}
	default:
		log.Printf("Executor: unknown command %T", cmd)
	}
}

// --- Load ---

func (e *Executor) handleLoad(id uuid.UUID) {
	e.mu.RLock()
	_, exists := e.instances[id]
	e.mu.RUnlock()
	if exists {
		return
	}
	cue, ok := e.model.GetCueByID(id)
	if !ok {
		log.Printf("Executor: Load on unknown cue %s", id)
		return
	}
	e.loadCue(id, cue)
}

func (e *Executor) loadCue(id uuid.UUID, cue *model.Cue) {
	switch p := cue.Params.(type) {
	case model.AudioParam:
		e.setInstance(id, EngineTypeAudio)
		e.audioCmds <- audio.Load{InstanceID: id, Source: e.audioSource(p)}
	case model.WaitParam:
		e.setInstance(id, EngineTypeWait)
		e.waitCmds <- wait.Load{InstanceID: id, Flavor: wait.FlavorWait, Duration: p.Duration}
	case model.FadeCueParam:
		e.setInstance(id, EngineTypeFade)
		e.waitCmds <- wait.Load{InstanceID: id, Flavor: wait.FlavorFade, Duration: p.FadeParam.Duration}
	case model.TransportParam:
		e.setInstance(id, EngineTypePlayback)
	case model.GroupParam:
		e.setInstance(id, EngineTypeGroup)
		if p.Mode.Concurrency {
			for _, child := range p.Children {
				e.handleLoad(child.ID)
			}
		} else if len(p.Children) > 0 {
			e.handleLoad(p.Children[0].ID)
		}
	default:
		log.Printf("Executor: Load on cue %s with unrecognized param type %T", id, cue.Params)
	}
}

func (e *Executor) setInstance(id uuid.UUID, et EngineType) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.instances[id]; exists {
		return
	}
	e.instances[id] = &ActiveInstance{CueID: id, EngineType: et, Executed: false}
}

func (e *Executor) audioSource(p model.AudioParam) audio.Source {
	path := p.Target
	if !filepath.IsAbs(path) {
		if showPath, ok := e.model.GetCurrentFilePath(); ok {
			path = filepath.Join(filepath.Dir(showPath), p.Target)
		}
	}
	return audio.Source{
		FilePath:  path,
		SoundType: p.SoundType,
		StartTime: p.StartTime,
		EndTime:   p.EndTime,
		FadeIn:    p.FadeIn,
		FadeOut:   p.FadeOut,
		VolumeDB:  p.VolumeDB,
		Pan:       p.Pan,
		Repeat:    p.Repeat,
	}
}

// --- Execute ---

func deriveEngineType(cue *model.Cue) EngineType {
	switch cue.Params.(type) {
	case model.AudioParam:
		return EngineTypeAudio
	case model.WaitParam:
		return EngineTypeWait
	case model.FadeCueParam:
		return EngineTypeFade
	case model.GroupParam:
		return EngineTypeGroup
	default:
		return EngineTypePlayback
	}
}

func (e *Executor) handleExecute(id uuid.UUID) {
	e.mu.RLock()
	inst, exists := e.instances[id]
	e.mu.RUnlock()
	if !exists {
		e.handleLoad(id)
		e.mu.RLock()
		inst, exists = e.instances[id]
		e.mu.RUnlock()
		if !exists {
			return
		}
	}

	e.mu.Lock()
	if inst.Executed {
		e.mu.Unlock()
		log.Printf("Executor: Execute on already-executed cue %s ignored", id)
		return
	}
	inst.Executed = true
	e.mu.Unlock()

	cue, ok := e.model.GetCueByID(id)
	if !ok {
		log.Printf("Executor: Execute on unknown cue %s", id)
		return
	}

	if cue.PreWait > 0 {
		e.mu.Lock()
		inst.EngineType = EngineTypePreWait
		e.mu.Unlock()
		e.waitCmds <- wait.Start{InstanceID: id, Flavor: wait.FlavorPreWait, Duration: cue.PreWait}
		return
	}

	e.mu.Lock()
	inst.EngineType = deriveEngineType(cue)
	e.mu.Unlock()
	e.executeCue(id, cue)
}

func (e *Executor) executeCue(id uuid.UUID, cue *model.Cue) {
	e.checkAndStartParents(id)

	switch p := cue.Params.(type) {
	case model.AudioParam:
		e.audioCmds <- audio.Play{InstanceID: id, Source: e.audioSource(p)}

	case model.WaitParam:
		e.waitCmds <- wait.Start{InstanceID: id, Flavor: wait.FlavorWait, Duration: p.Duration}

	case model.FadeCueParam:
		target, ok := e.model.GetCueByID(p.Target)
		if !ok {
			log.Printf("Executor: Fade cue %s targets unknown cue %s", id, p.Target)
		} else {
			switch target.Params.(type) {
			case model.AudioParam:
				fp := p.FadeParam
				e.audioCmds <- audio.SetVolume{InstanceID: p.Target, VolumeDB: p.TargetDB, Fade: &fp}
			case model.GroupParam:
				for _, descendant := range model.AudioDescendants(target) {
					fp := p.FadeParam
					e.audioCmds <- audio.SetVolume{InstanceID: descendant.ID, VolumeDB: p.TargetDB, Fade: &fp}
				}
			default:
				log.Printf("Executor: Fade cue %s targets non-fadeable cue %s", id, p.Target)
			}
		}
		e.waitCmds <- wait.Start{InstanceID: id, Flavor: wait.FlavorFade, Duration: p.FadeParam.Duration}

	case model.TransportParam:
		e.executeTransport(id, p)

	case model.GroupParam:
		// A Group has no engine of its own, so unlike Audio/Wait (whose
		// Started comes back from the engine) it announces itself here.
		e.emitOut(Started{CueID: id})
		if p.Mode.Concurrency {
			for _, child := range p.Children {
				e.handleExecute(child.ID)
			}
		} else if len(p.Children) > 0 {
			e.handleExecute(p.Children[0].ID)
		}

	default:
		log.Printf("Executor: execute on cue %s with unrecognized param type %T", id, cue.Params)
	}
}

// executeTransport dispatches a Start/Stop/Pause/Load transport cue onto
// its target, then synthesizes the transport cue's own completion: it has
// no engine-driven lifecycle of its own.
func (e *Executor) executeTransport(id uuid.UUID, p model.TransportParam) {
	switch p.Kind() {
	case model.CueParamStart:
		e.mu.RLock()
		targetInst, exists := e.instances[p.Target]
		e.mu.RUnlock()
		if exists && targetInst.Executed {
			e.handleResume(p.Target)
		} else {
			e.handleExecute(p.Target)
		}
	case model.CueParamStop:
		e.handleStop(p.Target)
	case model.CueParamPause:
		e.handlePause(p.Target)
	case model.CueParamLoad:
		e.handleLoad(p.Target)
	default:
		log.Printf("Executor: transport cue %s has unrecognized kind %s", id, p.Kind())
	}
	e.finishTransport(id)
}

func (e *Executor) finishTransport(id uuid.UUID) {
	e.mu.Lock()
	delete(e.instances, id)
	e.mu.Unlock()
	e.emitOut(Completed{CueID: id})
	e.checkAndStopParents(id, true)
}

// --- Pause/Resume/Stop/Seek/PerformAction ---

func (e *Executor) handlePause(id uuid.UUID) {
	e.mu.RLock()
	inst, ok := e.instances[id]
	e.mu.RUnlock()
	if !ok {
		log.Printf("Executor: Pause on unknown instance %s", id)
		return
	}
	switch inst.EngineType {
	case EngineTypeAudio:
		e.audioCmds <- audio.Pause{InstanceID: id}
	case EngineTypeWait, EngineTypePreWait:
		e.waitCmds <- wait.Pause{InstanceID: id}
	case EngineTypeGroup:
		e.fanOutToActiveChildren(id, func(childID uuid.UUID) { e.handlePause(childID) })
	default:
		log.Printf("Executor: Pause ignored for cue %s (engine type %s does not accept it)", id, inst.EngineType)
	}
}

func (e *Executor) handleResume(id uuid.UUID) {
	e.mu.RLock()
	inst, ok := e.instances[id]
	e.mu.RUnlock()
	if !ok {
		log.Printf("Executor: Resume on unknown instance %s", id)
		return
	}
	switch inst.EngineType {
	case EngineTypeAudio:
		e.audioCmds <- audio.Resume{InstanceID: id}
	case EngineTypeWait, EngineTypePreWait:
		e.waitCmds <- wait.Resume{InstanceID: id}
	case EngineTypeGroup:
		e.fanOutToActiveChildren(id, func(childID uuid.UUID) { e.handleResume(childID) })
	default:
		log.Printf("Executor: Resume ignored for cue %s (engine type %s does not accept it)", id, inst.EngineType)
	}
}

func (e *Executor) handleStop(id uuid.UUID) {
	e.mu.RLock()
	inst, ok := e.instances[id]
	e.mu.RUnlock()
	if !ok {
		log.Printf("Executor: Stop on unknown instance %s", id)
		return
	}
	switch inst.EngineType {
	case EngineTypeAudio:
		e.audioCmds <- audio.Stop{InstanceID: id}
	case EngineTypeWait, EngineTypePreWait:
		e.waitCmds <- wait.Stop{InstanceID: id}
	case EngineTypeGroup:
		e.fanOutToActiveChildren(id, func(childID uuid.UUID) { e.handleStop(childID) })
	default:
		log.Printf("Executor: Stop ignored for cue %s (engine type %s does not accept it)", id, inst.EngineType)
	}
}

func (e *Executor) fanOutToActiveChildren(parentID uuid.UUID, f func(uuid.UUID)) {
	children, ok := e.model.GetAllChildrenByID(parentID)
	if !ok {
		return
	}
	for _, child := range children {
		e.mu.RLock()
		_, active := e.instances[child.ID]
		e.mu.RUnlock()
		if active {
			f(child.ID)
		}
	}
}

func (e *Executor) handleSeekTo(id uuid.UUID, position float64) {
	e.mu.RLock()
	inst, ok := e.instances[id]
	e.mu.RUnlock()
	if !ok {
		log.Printf("Executor: SeekTo on unknown instance %s", id)
		return
	}
	switch inst.EngineType {
	case EngineTypeAudio:
		e.audioCmds <- audio.SeekTo{InstanceID: id, Position: position}
	case EngineTypeWait, EngineTypePreWait:
		e.waitCmds <- wait.SeekTo{InstanceID: id, Position: position}
	default:
		log.Printf("Executor: SeekTo unsupported for cue %s (engine type %s)", id, inst.EngineType)
	}
}

func (e *Executor) handleSeekBy(id uuid.UUID, delta float64) {
	e.mu.RLock()
	inst, ok := e.instances[id]
	e.mu.RUnlock()
	if !ok {
		log.Printf("Executor: SeekBy on unknown instance %s", id)
		return
	}
	switch inst.EngineType {
	case EngineTypeAudio:
		e.audioCmds <- audio.SeekBy{InstanceID: id, Delta: delta}
	case EngineTypeWait, EngineTypePreWait:
		e.waitCmds <- wait.SeekBy{InstanceID: id, Delta: delta}
	default:
		log.Printf("Executor: SeekBy unsupported for cue %s (engine type %s)", id, inst.EngineType)
	}
}

func (e *Executor) handlePerformAction(id uuid.UUID, action event.CueAction) {
	e.mu.RLock()
	inst, ok := e.instances[id]
	e.mu.RUnlock()
	if !ok || inst.EngineType != EngineTypeAudio {
		log.Printf("Executor: PerformAction ignored for cue %s (not an active Audio instance)", id)
		return
	}
	e.audioCmds <- audio.PerformAction{InstanceID: id, Action: action}
	if sv, ok := action.(event.SetVolume); ok {
		e.emitOut(StateParamUpdated{CueID: id, Param: "volume", Value: float64(sv.VolumeDB)})
	}
}

// --- Engine event handling ---

func (e *Executor) handleAudioEvent(evt audio.Event) {
	switch evt.Kind {
	case audio.EventStarted:
		e.emitOut(Started{CueID: evt.InstanceID})
	case audio.EventProgress:
		e.emitOutNonBlocking(Progress{CueID: evt.InstanceID, Position: evt.Position, Duration: evt.Duration})
	case audio.EventPaused:
		e.emitOut(Paused{CueID: evt.InstanceID, Position: evt.Position, Duration: evt.Duration})
	case audio.EventResumed:
		e.emitOut(Resumed{CueID: evt.InstanceID})
	case audio.EventStopped:
		e.terminal(evt.InstanceID, Stopped{CueID: evt.InstanceID}, false)
	case audio.EventCompleted:
		e.terminal(evt.InstanceID, Completed{CueID: evt.InstanceID}, true)
	case audio.EventError:
		e.terminal(evt.InstanceID, Error{CueID: evt.InstanceID, Message: evt.Message}, false)
	default:
		log.Printf("Executor: unknown AudioEngine event kind %q", evt.Kind)
	}
}

func (e *Executor) handleWaitEvent(evt wait.Event) {
	if evt.Flavor == wait.FlavorPreWait {
		e.handlePreWaitEvent(evt)
		return
	}
	switch evt.Kind {
	case wait.EventStarted:
		e.emitOut(Started{CueID: evt.InstanceID})
	case wait.EventProgress:
		e.emitOutNonBlocking(Progress{CueID: evt.InstanceID, Position: evt.Position, Duration: evt.Duration})
	case wait.EventPaused:
		e.emitOut(Paused{CueID: evt.InstanceID, Position: evt.Position, Duration: evt.Duration})
	case wait.EventResumed:
		e.emitOut(Resumed{CueID: evt.InstanceID})
	case wait.EventStopped:
		e.terminal(evt.InstanceID, Stopped{CueID: evt.InstanceID}, false)
	case wait.EventCompleted:
		e.terminal(evt.InstanceID, Completed{CueID: evt.InstanceID}, true)
	case wait.EventLoaded:
		e.emitOut(Loaded{CueID: evt.InstanceID, Duration: evt.Duration})
	default:
		log.Printf("Executor: unknown WaitEngine event kind %q", evt.Kind)
	}
}

func (e *Executor) handlePreWaitEvent(evt wait.Event) {
	switch evt.Kind {
	case wait.EventStarted:
		e.emitOut(PreWaitStarted{CueID: evt.InstanceID})
	case wait.EventProgress:
		e.emitOutNonBlocking(PreWaitProgress{CueID: evt.InstanceID, Position: evt.Position, Duration: evt.Duration})
	case wait.EventPaused:
		e.emitOut(PreWaitPaused{CueID: evt.InstanceID, Position: evt.Position, Duration: evt.Duration})
	case wait.EventResumed:
		e.emitOut(PreWaitResumed{CueID: evt.InstanceID})
	case wait.EventStopped:
		e.terminal(evt.InstanceID, PreWaitStopped{CueID: evt.InstanceID}, false)
	case wait.EventCompleted:
		e.handlePreWaitCompleted(evt.InstanceID)
	default:
		log.Printf("Executor: unknown PreWait event kind %q", evt.Kind)
	}
}

// handlePreWaitCompleted is the one non-terminal special case: the instance
// survives, its engine_type flips to the cue's real type, and the real
// action begins.
func (e *Executor) handlePreWaitCompleted(id uuid.UUID) {
	e.mu.RLock()
	inst, ok := e.instances[id]
	e.mu.RUnlock()
	if !ok {
		return
	}
	cue, ok := e.model.GetCueByID(id)
	if !ok {
		log.Printf("Executor: PreWaitCompleted on unknown cue %s", id)
		return
	}
	e.mu.Lock()
	inst.EngineType = deriveEngineType(cue)
	e.mu.Unlock()
	e.emitOut(PreWaitCompleted{CueID: id})
	e.executeCue(id, cue)
}

// terminal handles a Stopped/Completed/Error engine event common to any
// engine: remove the instance, emit the event, walk ancestors, and (only
// on natural completion) advance a Playlist Group to its next child.
func (e *Executor) terminal(id uuid.UUID, evt Event, isCompleted bool) {
	e.mu.Lock()
	delete(e.instances, id)
	e.mu.Unlock()

	e.emitOut(evt)

	if isCompleted {
		e.advancePlaylist(id)
	}
	e.checkAndStopParents(id, isCompleted)
}

// advancePlaylist starts the next sibling of id within its parent's
// Playlist (or repeats from the top), if id's parent is a serial Group.
func (e *Executor) advancePlaylist(id uuid.UUID) {
	_, parent, found := e.model.GetCueAndParentByID(id)
	if !found || parent == nil {
		return
	}
	group, ok := parent.Params.(model.GroupParam)
	if !ok || group.Mode.Concurrency {
		return
	}
	idx := -1
	for i, child := range group.Children {
		if child.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	if idx+1 < len(group.Children) {
		e.handleExecute(group.Children[idx+1].ID)
		return
	}
	if group.Mode.Repeat && len(group.Children) > 0 {
		e.handleExecute(group.Children[0].ID)
	}
}

// checkAndStartParents walks id's ancestor chain, inserting a Group
// ActiveInstance (and emitting Started) for any ancestor that doesn't
// already have one.
func (e *Executor) checkAndStartParents(id uuid.UUID) {
	current := id
	for {
		_, parent, found := e.model.GetCueAndParentByID(current)
		if !found || parent == nil {
			return
		}
		e.mu.Lock()
		_, exists := e.instances[parent.ID]
		if !exists {
			e.instances[parent.ID] = &ActiveInstance{CueID: parent.ID, EngineType: EngineTypeGroup, Executed: true}
		}
		e.mu.Unlock()
		if !exists {
			e.emitOut(Started{CueID: parent.ID})
		}
		current = parent.ID
	}
}

// checkAndStopParents walks id's ancestor chain, removing a Group
// ActiveInstance (and emitting Completed/Stopped) the moment none of its
// children remain active.
func (e *Executor) checkAndStopParents(id uuid.UUID, isCompleted bool) {
	current := id
	for {
		_, parent, found := e.model.GetCueAndParentByID(current)
		if !found || parent == nil {
			return
		}
		children, ok := e.model.GetAllChildrenByID(parent.ID)
		if !ok {
			return
		}
		anyActive := false
		e.mu.RLock()
		for _, child := range children {
			if _, exists := e.instances[child.ID]; exists {
				anyActive = true
				break
			}
		}
		e.mu.RUnlock()
		if anyActive {
			return
		}
		e.mu.Lock()
		delete(e.instances, parent.ID)
		e.mu.Unlock()
		if isCompleted {
			e.emitOut(Completed{CueID: parent.ID})
		} else {
			e.emitOut(Stopped{CueID: parent.ID})
		}
		current = parent.ID
	}
}

func (e *Executor) emitOut(evt Event) {
	e.out <- evt
}

func (e *Executor) emitOutNonBlocking(evt Event) {
	select {
	case e.out <- evt:
	default:
		log.Printf("Executor: dropped progress-class event for cue (channel full): %T", evt)
	}
}
