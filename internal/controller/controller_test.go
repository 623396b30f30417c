package controller

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sbsp/playback-engine/internal/event"
	"github.com/sbsp/playback-engine/internal/executor"
	"github.com/sbsp/playback-engine/internal/model"
)

// fakeModel is a minimal in-memory ModelReader backing the Controller's
// cursor resolution in tests.
type fakeModel struct {
	cues     map[uuid.UUID]*model.Cue
	parents  map[uuid.UUID]uuid.UUID
	topLevel []*model.Cue
}

func newFakeModel(topLevel ...*model.Cue) *fakeModel {
	m := &fakeModel{
		cues:     make(map[uuid.UUID]*model.Cue),
		parents:  make(map[uuid.UUID]uuid.UUID),
		topLevel: topLevel,
	}
	for _, cue := range topLevel {
		m.cues[cue.ID] = cue
	}
	return m
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

func (m *fakeModel) FirstTopLevelCue() (*model.Cue, bool) {
	if len(m.topLevel) == 0 {
		return nil, false
	}
	return m.topLevel[0], true
}

func (m *fakeModel) NextTopLevelCue(id uuid.UUID) (*model.Cue, bool) {
	for i, cue := range m.topLevel {
		if cue.ID == id {
			if i+1 < len(m.topLevel) {
				return m.topLevel[i+1], true
			}
			return nil, false
		}
	}
	return nil, false
}

func newTopCue(seq model.CueSequence) *model.Cue {
	return &model.Cue{ID: uuid.New(), Sequence: seq, Params: model.WaitParam{Duration: 1}}
}

// fakeSink records every UiEvent the Controller publishes, separate from
// the incoming uiEvents tee it also listens on.
type fakeSink struct {
	published chan event.UiEvent
}

func newFakeSink() *fakeSink { return &fakeSink{published: make(chan event.UiEvent, 32)} }

func (s *fakeSink) Publish(evt event.UiEvent) {
	select {
	case s.published <- evt:
	default:
	}
}

func expectPublished(t *testing.T, sink *fakeSink, want event.UiEvent) {
	t.Helper()
	select {
	case got := <-sink.published:
		if got != want {
			t.Fatalf("expected published event %#v, got %#v", want, got)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for published event %#v", want)
	}
}

func expectExecutorCommand(t *testing.T, ch <-chan executor.Command) executor.Command {
	t.Helper()
	select {
	case cmd := <-ch:
		return cmd
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for executor command")
	}
	return nil
}

type testHarness struct {
	ctrl     *Controller
	model    *fakeModel
	sink     *fakeSink
	execCmds chan executor.Command
	execEvts chan executor.Event
	uiEvts   chan event.UiEvent
}

func newTestHarness(m *fakeModel) *testHarness {
	h := &testHarness{
		model:    m,
		sink:     newFakeSink(),
		execCmds: make(chan executor.Command, 32),
		execEvts: make(chan executor.Event, 32),
		uiEvts:   make(chan event.UiEvent, 32),
	}
	h.ctrl = New(m, h.sink, h.execCmds, h.execEvts, h.uiEvts)
	go h.ctrl.Run()
	return h
}

func (h *testHarness) stop() { h.ctrl.Stop() }

func TestGoExecutesCursorAndAdvances(t *testing.T) {
	cue1 := newTopCue(model.DoNotContinue())
	cue2 := newTopCue(model.DoNotContinue())
	m := newFakeModel(cue1, cue2)
	h := newTestHarness(m)
	defer h.stop()

	h.ctrl.CommandChannel() <- SetPlaybackCursor{CueID: cue1.ID}
	expectPublished(t, h.sink, event.PlaybackCursorMoved{CueID: cue1.ID})

	h.ctrl.CommandChannel() <- Go{}

	cmd := expectExecutorCommand(t, h.execCmds)
	exec, ok := cmd.(executor.Execute)
	if !ok || exec.CueID != cue1.ID {
		t.Fatalf("expected Execute(cue1), got %#v", cmd)
	}
	expectPublished(t, h.sink, event.PlaybackCursorMoved{CueID: cue2.ID})

	if got := h.ctrl.Watch().Get().PlaybackCursor; got == nil || *got != cue2.ID {
		t.Fatalf("expected cursor advanced to cue2, got %v", got)
	}
}

func TestSetPlaybackCursorUnknownCueIgnored(t *testing.T) {
	cue1 := newTopCue(model.DoNotContinue())
	m := newFakeModel(cue1)
	h := newTestHarness(m)
	defer h.stop()

	h.ctrl.CommandChannel() <- SetPlaybackCursor{CueID: uuid.New()}

	select {
	case evt := <-h.sink.published:
		t.Fatalf("expected no cursor-moved event for unknown cue, got %#v", evt)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestExecutorEventFoldingUpdatesShowState(t *testing.T) {
	cue1 := newTopCue(model.DoNotContinue())
	m := newFakeModel(cue1)
	h := newTestHarness(m)
	defer h.stop()

	h.execEvts <- executor.Started{CueID: cue1.ID}
	expectPublished(t, h.sink, event.CueStarted{CueID: cue1.ID})

	state := h.ctrl.Watch().Get()
	active, ok := state.ActiveCues[cue1.ID]
	if !ok || active.Status != StatusPlaying {
		t.Fatalf("expected cue1 active with status playing, got %#v", active)
	}

	h.execEvts <- executor.Progress{CueID: cue1.ID, Position: 1.5, Duration: 4}
	time.Sleep(50 * time.Millisecond)
	state = h.ctrl.Watch().Get()
	if state.ActiveCues[cue1.ID].Position != 1.5 {
		t.Fatalf("expected position updated to 1.5, got %#v", state.ActiveCues[cue1.ID])
	}

	h.execEvts <- executor.Completed{CueID: cue1.ID}
	expectPublished(t, h.sink, event.CueCompleted{CueID: cue1.ID})

	state = h.ctrl.Watch().Get()
	if _, ok := state.ActiveCues[cue1.ID]; ok {
		t.Fatalf("expected cue1 removed from active cues after completion")
	}
}

func TestStopAllFansOutOverActiveCues(t *testing.T) {
	cue1 := newTopCue(model.DoNotContinue())
	cue2 := newTopCue(model.DoNotContinue())
	m := newFakeModel(cue1, cue2)
	h := newTestHarness(m)
	defer h.stop()

	h.execEvts <- executor.Started{CueID: cue1.ID}
	expectPublished(t, h.sink, event.CueStarted{CueID: cue1.ID})
	h.execEvts <- executor.Started{CueID: cue2.ID}
	expectPublished(t, h.sink, event.CueStarted{CueID: cue2.ID})

	h.ctrl.CommandChannel() <- StopAll{}

	seen := map[uuid.UUID]bool{}
	for i := 0; i < 2; i++ {
		cmd := expectExecutorCommand(t, h.execCmds)
		stop, ok := cmd.(executor.Stop)
		if !ok {
			t.Fatalf("expected executor.Stop, got %T", cmd)
		}
		seen[stop.CueID] = true
	}
	if !seen[cue1.ID] || !seen[cue2.ID] {
		t.Fatalf("expected Stop dispatched for both active cues, got %#v", seen)
	}
}

func TestAutoFollowExecutesTargetImmediately(t *testing.T) {
	target := newTopCue(model.DoNotContinue())
	cue1 := newTopCue(model.AutoFollow(target.ID))
	m := newFakeModel(cue1, target)
	h := newTestHarness(m)
	defer h.stop()

	h.execEvts <- executor.Completed{CueID: cue1.ID}
	expectPublished(t, h.sink, event.CueCompleted{CueID: cue1.ID})

	cmd := expectExecutorCommand(t, h.execCmds)
	exec, ok := cmd.(executor.Execute)
	if !ok || exec.CueID != target.ID {
		t.Fatalf("expected immediate Execute(target), got %#v", cmd)
	}
}

func TestAutoContinueExecutesTargetAfterPostWait(t *testing.T) {
	target := newTopCue(model.DoNotContinue())
	cue1 := newTopCue(model.AutoContinue(target.ID, 0.05))
	m := newFakeModel(cue1, target)
	h := newTestHarness(m)
	defer h.stop()

	h.execEvts <- executor.Completed{CueID: cue1.ID}
	expectPublished(t, h.sink, event.CueCompleted{CueID: cue1.ID})

	select {
	case cmd := <-h.execCmds:
		t.Fatalf("expected no immediate Execute before post-wait elapses, got %#v", cmd)
	case <-time.After(10 * time.Millisecond):
	}

	cmd := expectExecutorCommand(t, h.execCmds)
	exec, ok := cmd.(executor.Execute)
	if !ok || exec.CueID != target.ID {
		t.Fatalf("expected delayed Execute(target), got %#v", cmd)
	}
}

func TestShowModelLoadedSetsCursorWhenUnset(t *testing.T) {
	cue1 := newTopCue(model.DoNotContinue())
	m := newFakeModel(cue1)
	h := newTestHarness(m)
	defer h.stop()

	h.uiEvts <- event.ShowModelLoaded{Path: "show.json"}
	expectPublished(t, h.sink, event.PlaybackCursorMoved{CueID: cue1.ID})
}

func TestCueRemovedResetsCursorWhenItWasCurrent(t *testing.T) {
	cue1 := newTopCue(model.DoNotContinue())
	cue2 := newTopCue(model.DoNotContinue())
	m := newFakeModel(cue1, cue2)
	h := newTestHarness(m)
	defer h.stop()

	h.ctrl.CommandChannel() <- SetPlaybackCursor{CueID: cue2.ID}
	expectPublished(t, h.sink, event.PlaybackCursorMoved{CueID: cue2.ID})

	h.uiEvts <- event.CueRemoved{CueID: cue2.ID}
	expectPublished(t, h.sink, event.PlaybackCursorMoved{CueID: cue1.ID})
}
