package executor

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sbsp/playback-engine/internal/engine/audio"
	"github.com/sbsp/playback-engine/internal/engine/wait"
	"github.com/sbsp/playback-engine/internal/event"
	"github.com/sbsp/playback-engine/internal/model"
)

// fakeModel is a minimal in-memory ModelReader for Executor tests, grounded
// on the same flattened-forest shape ShowModelHandle exposes.
type fakeModel struct {
	cues     map[uuid.UUID]*model.Cue
	parents  map[uuid.UUID]uuid.UUID
	children map[uuid.UUID][]*model.Cue
	filePath string
}

func newFakeModel() *fakeModel {
	return &fakeModel{
		cues:     make(map[uuid.UUID]*model.Cue),
		parents:  make(map[uuid.UUID]uuid.UUID),
		children: make(map[uuid.UUID][]*model.Cue),
	}
}

func (m *fakeModel) add(cue *model.Cue) {
	m.cues[cue.ID] = cue
}

func (m *fakeModel) addGroup(cue *model.Cue, children ...*model.Cue) {
	m.cues[cue.ID] = cue
	m.children[cue.ID] = children
	for _, child := range children {
		m.cues[child.ID] = child
		m.parents[child.ID] = cue.ID
	}
}

func (m *fakeModel) GetCueByID(id uuid.UUID) (*model.Cue, bool) {
	c, ok := m.cues[id]
	return c, ok
}

func (m *fakeModel) GetCueAndParentByID(id uuid.UUID) (*model.Cue, *model.Cue, bool) {
	cue, ok := m.cues[id]
	if !ok {
		return nil, nil, false
	}
	if parentID, ok := m.parents[id]; ok {
		return cue, m.cues[parentID], true
	}
	return cue, nil, true
}

func (m *fakeModel) GetAllChildrenByID(id uuid.UUID) ([]*model.Cue, bool) {
	children, ok := m.children[id]
	return children, ok
}

func (m *fakeModel) GetCurrentFilePath() (string, bool) {
	if m.filePath == "" {
		return "", false
	}
	return m.filePath, true
}

func newCue(params model.CueParam) *model.Cue {
	return &model.Cue{ID: uuid.New(), Sequence: model.DoNotContinue(), Params: params}
}

type harness struct {
	exec        *Executor
	audioCmds   chan audio.Command
	waitCmds    chan wait.Command
	audioEvents chan audio.Event
	waitEvents  chan wait.Event
	out         chan Event
}

func newHarness(m ModelReader) *harness {
	h := &harness{
		audioCmds:   make(chan audio.Command, 32),
		waitCmds:    make(chan wait.Command, 32),
		audioEvents: make(chan audio.Event, 32),
		waitEvents:  make(chan wait.Event, 32),
		out:         make(chan Event, 32),
	}
	h.exec = New(m, h.audioCmds, h.waitCmds, h.audioEvents, h.waitEvents, h.out)
	go h.exec.Run()
	return h
}

func (h *harness) stop() { h.exec.Stop() }

func expectEvent(t *testing.T, ch <-chan Event, want Event) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Fatalf("expected event %#v, got %#v", want, got)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for event %#v", want)
	}
}

func expectAudioCommand(t *testing.T, ch <-chan audio.Command) audio.Command {
	t.Helper()
	select {
	case cmd := <-ch:
		return cmd
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for audio command")
	}
	return nil
}

func expectWaitCommand(t *testing.T, ch <-chan wait.Command) wait.Command {
	t.Helper()
	select {
	case cmd := <-ch:
		return cmd
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for wait command")
	}
	return nil
}

func TestExecuteAudioCueDispatchesPlay(t *testing.T) {
	m := newFakeModel()
	cue := newCue(model.AudioParam{Target: "click.wav", VolumeDB: -6})
	m.add(cue)

	h := newHarness(m)
	defer h.stop()

	h.exec.CommandChannel() <- Execute{CueID: cue.ID}

	// handleExecute's load-if-absent fallback primes the instance (Load)
	// before executeCue dispatches the real Play.
	expectAudioCommand(t, h.audioCmds)
	cmd := expectAudioCommand(t, h.audioCmds)
	play, ok := cmd.(audio.Play)
	if !ok {
		t.Fatalf("expected audio.Play, got %T", cmd)
	}
	if play.InstanceID != cue.ID {
		t.Errorf("expected instance id %s, got %s", cue.ID, play.InstanceID)
	}
	if play.Source.FilePath != "click.wav" {
		t.Errorf("expected file path click.wav, got %s", play.Source.FilePath)
	}

	h.audioEvents <- audio.Event{Kind: audio.EventStarted, InstanceID: cue.ID}
	expectEvent(t, h.out, Started{CueID: cue.ID})
}

func TestExecuteAlreadyExecutedIsIgnored(t *testing.T) {
	m := newFakeModel()
	cue := newCue(model.WaitParam{Duration: 1})
	m.add(cue)

	h := newHarness(m)
	defer h.stop()

	h.exec.CommandChannel() <- Execute{CueID: cue.ID}
	expectWaitCommand(t, h.waitCmds) // Load
	expectWaitCommand(t, h.waitCmds) // Start

	h.exec.CommandChannel() <- Execute{CueID: cue.ID}

	select {
	case cmd := <-h.waitCmds:
		t.Fatalf("expected no second wait command, got %#v", cmd)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPreWaitThenRealExecution(t *testing.T) {
	m := newFakeModel()
	cue := &model.Cue{ID: uuid.New(), PreWait: 2, Sequence: model.DoNotContinue(), Params: model.AudioParam{Target: "a.wav"}}
	m.add(cue)

	h := newHarness(m)
	defer h.stop()

	h.exec.CommandChannel() <- Execute{CueID: cue.ID}

	expectAudioCommand(t, h.audioCmds) // Load, from the load-if-absent fallback

	cmd := expectWaitCommand(t, h.waitCmds)
	start, ok := cmd.(wait.Start)
	if !ok || start.Flavor != wait.FlavorPreWait {
		t.Fatalf("expected PreWait start, got %#v", cmd)
	}

	h.waitEvents <- wait.Event{Flavor: wait.FlavorPreWait, Kind: wait.EventCompleted, InstanceID: cue.ID}

	expectEvent(t, h.out, PreWaitCompleted{CueID: cue.ID})

	playCmd := expectAudioCommand(t, h.audioCmds)
	if _, ok := playCmd.(audio.Play); !ok {
		t.Fatalf("expected audio.Play after pre-wait completion, got %T", playCmd)
	}

	snap := h.exec.Snapshot()
	inst, ok := snap[cue.ID]
	if !ok || inst.EngineType != EngineTypeAudio {
		t.Fatalf("expected instance flipped to Audio engine type, got %#v", inst)
	}
}

func TestGroupPlaylistAdvancesOnCompletion(t *testing.T) {
	m := newFakeModel()
	child1 := newCue(model.WaitParam{Duration: 1})
	child2 := newCue(model.WaitParam{Duration: 1})
	group := newCue(model.GroupParam{Mode: model.Playlist(false), Children: []*model.Cue{child1, child2}})
	m.addGroup(group, child1, child2)

	h := newHarness(m)
	defer h.stop()

	h.exec.CommandChannel() <- Execute{CueID: group.ID}

	expectEvent(t, h.out, Started{CueID: group.ID})
	expectWaitCommand(t, h.waitCmds) // Load(child1)
	expectWaitCommand(t, h.waitCmds) // Start(child1)

	h.waitEvents <- wait.Event{Kind: wait.EventCompleted, InstanceID: child1.ID}
	expectEvent(t, h.out, Completed{CueID: child1.ID})

	expectWaitCommand(t, h.waitCmds) // Load(child2), from advancePlaylist's load-if-absent
	cmd := expectWaitCommand(t, h.waitCmds)
	start, ok := cmd.(wait.Start)
	if !ok || start.InstanceID != child2.ID {
		t.Fatalf("expected wait.Start for second child, got %#v", cmd)
	}

	h.waitEvents <- wait.Event{Kind: wait.EventCompleted, InstanceID: child2.ID}
	expectEvent(t, h.out, Completed{CueID: child2.ID})
	expectEvent(t, h.out, Completed{CueID: group.ID})

	snap := h.exec.Snapshot()
	if _, ok := snap[group.ID]; ok {
		t.Fatalf("expected group instance removed once all children finished")
	}
}

func TestGroupConcurrencyExecutesAllChildren(t *testing.T) {
	m := newFakeModel()
	child1 := newCue(model.AudioParam{Target: "a.wav"})
	child2 := newCue(model.AudioParam{Target: "b.wav"})
	group := newCue(model.GroupParam{Mode: model.Concurrency(), Children: []*model.Cue{child1, child2}})
	m.addGroup(group, child1, child2)

	h := newHarness(m)
	defer h.stop()

	h.exec.CommandChannel() <- Execute{CueID: group.ID}

	expectEvent(t, h.out, Started{CueID: group.ID})
	// The group's load step preloads every Concurrency child (Load) before
	// the fan-out dispatches the real Play.
	expectAudioCommand(t, h.audioCmds) // Load(child1)
	expectAudioCommand(t, h.audioCmds) // Load(child2)
	expectAudioCommand(t, h.audioCmds) // Play(child1)
	expectAudioCommand(t, h.audioCmds) // Play(child2)
}

func TestTransportStartResumesAlreadyExecutedTarget(t *testing.T) {
	m := newFakeModel()
	target := newCue(model.AudioParam{Target: "a.wav"})
	m.add(target)
	transportCue := newCue(model.StartParam(target.ID))
	m.add(transportCue)

	h := newHarness(m)
	defer h.stop()

	h.exec.CommandChannel() <- Execute{CueID: target.ID}
	expectAudioCommand(t, h.audioCmds) // Load
	expectAudioCommand(t, h.audioCmds) // Play

	h.exec.CommandChannel() <- Execute{CueID: transportCue.ID}

	cmd := expectAudioCommand(t, h.audioCmds)
	if _, ok := cmd.(audio.Resume); !ok {
		t.Fatalf("expected audio.Resume for already-executed target, got %T", cmd)
	}
	expectEvent(t, h.out, Completed{CueID: transportCue.ID})
}

func TestPerformActionEmitsStateParamUpdated(t *testing.T) {
	m := newFakeModel()
	cue := newCue(model.AudioParam{Target: "a.wav"})
	m.add(cue)

	h := newHarness(m)
	defer h.stop()

	h.exec.CommandChannel() <- Execute{CueID: cue.ID}
	expectAudioCommand(t, h.audioCmds) // Load
	expectAudioCommand(t, h.audioCmds) // Play

	h.exec.CommandChannel() <- PerformAction{CueID: cue.ID, Action: event.SetVolume{VolumeDB: -10}}

	expectAudioCommand(t, h.audioCmds)
	expectEvent(t, h.out, StateParamUpdated{CueID: cue.ID, Param: "volume", Value: -10})
}
