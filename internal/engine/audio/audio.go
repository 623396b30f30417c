// Package audio implements the AudioEngine: the engine that owns actual
// sound playback for Audio cues. It runs a per-instance state machine with
// polling-based edge detection on top of github.com/gopxl/beep for
// decode/mix/output, with commands submitted through a bounded queue and
// drained by a single owning goroutine.
package audio

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"

	"github.com/sbsp/playback-engine/internal/event"
	"github.com/sbsp/playback-engine/internal/model"
)

// silenceFloorDB is the volume a graceful Stop's fade-out ramps toward;
// beep has no "mute" sentinel, so this stands in for -infinity dB.
const silenceFloorDB = -96.0

const sampleRate = beep.SampleRate(44100)

type instanceState string

const (
	stateLoaded  instanceState = "loaded"
	statePlaying instanceState = "playing"
	statePaused  instanceState = "paused"
	stateStopped instanceState = "stopped"
)

type instance struct {
	streamer beep.StreamSeekCloser
	closer   func() error
	ctrl     *beep.Ctrl
	volume   *effects.Volume
	panner   *effects.Pan
	format   beep.Format

	source Source

	naturallyDone  atomic.Bool
	manualStopSent bool
	lastState      instanceState
	started        bool
	baseVolumeDB   float64

	stopping         bool
	stopFadeStart    time.Time
	stopFadeDuration float64
	stopFadeFromDB   float64
	stopEasing       model.Easing

	volFading       bool
	volFadeStart    time.Time
	volFadeDuration float64
	volFadeFromDB   float64
	volFadeToDB     float64
	volEasing       model.Easing
}

// Engine owns every currently-loaded or playing audio instance.
type Engine struct {
	mu        sync.Mutex
	instances map[uuid.UUID]*instance

	commandCh chan Command
	events    chan<- Event

	baseVolumeDB float64

	speakerOnce sync.Once
	stopCh      chan struct{}
}

// New creates an AudioEngine that publishes events onto events.
func New(events chan<- Event) *Engine {
	return &Engine{
		instances: make(map[uuid.UUID]*instance),
		commandCh: make(chan Command, 32),
		events:    events,
		stopCh:    make(chan struct{}),
	}
}

// CommandChannel returns the channel callers send Commands on.
func (e *Engine) CommandChannel() chan<- Command { return e.commandCh }

func (e *Engine) ensureSpeaker() {
	e.speakerOnce.Do(func() {
		if err := speaker.Init(sampleRate, sampleRate.N(50*time.Millisecond)); err != nil {
			log.Printf("AudioEngine: speaker init failed: %v", err)
		}
	})
}

// Run is the engine's goroutine body: processes commands and polls every
// 50ms for edge-triggered state transitions.
func (e *Engine) Run() {
	e.ensureSpeaker()
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	log.Println("AudioEngine run loop started")
	for {
		select {
		case cmd, ok := <-e.commandCh:
			if !ok {
				log.Println("AudioEngine run loop finished")
				return
			}
			e.handle(cmd)
		case <-ticker.C:
			e.poll()
		case <-e.stopCh:
			log.Println("AudioEngine run loop finished")
			return
		}
	}
}

// Stop halts the engine's goroutine and releases every open instance.
func (e *Engine) Stop() {
	close(e.stopCh)
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, inst := range e.instances {
		if inst.closer != nil {
			_ = inst.closer()
		}
	}
}

func decode(path string) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("open audio file %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return mp3.Decode(f)
	case ".wav":
		return wav.Decode(f)
	case ".flac":
		return flac.Decode(f)
	case ".ogg":
		return vorbis.Decode(f)
	default:
		_ = f.Close()
		return nil, beep.Format{}, fmt.Errorf("unsupported audio file extension: %s", path)
	}
}

func (e *Engine) load(id uuid.UUID, src Source) (*instance, error) {
	streamer, format, err := decode(src.FilePath)
	if err != nil {
		return nil, err
	}

	resampled := beep.Resample(4, format.SampleRate, sampleRate, streamer)

	if src.StartTime != nil {
		startSample := format.SampleRate.N(time.Duration(*src.StartTime * float64(time.Second)))
		if err := streamer.Seek(startSample); err != nil {
			log.Printf("AudioEngine: seek to start_time failed for %s: %v", src.FilePath, err)
		}
	}

	var body beep.Streamer = resampled
	if src.EndTime != nil {
		length := *src.EndTime
		if src.StartTime != nil {
			length -= *src.StartTime
		}
		body = beep.Take(sampleRate.N(time.Duration(length*float64(time.Second))), body)
	}

	inst := &instance{streamer: streamer, closer: streamer.Close, format: format, source: src, lastState: stateLoaded, baseVolumeDB: e.baseVolumeDB}

	ctrl := &beep.Ctrl{Streamer: body, Paused: true}
	volume := &effects.Volume{Streamer: ctrl, Base: 2, Volume: dbToBeepVolume(src.VolumeDB + inst.baseVolumeDB), Silent: false}
	panner := &effects.Pan{Streamer: volume, Pan: clampPan(src.Pan)}

	inst.ctrl = ctrl
	inst.volume = volume
	inst.panner = panner
	return inst, nil
}

func dbToBeepVolume(db float64) float64 {
	// beep's Volume field is an exponent on Base (2 by default): db/6 maps
	// roughly 6dB per doubling, matching the common audio convention.
	return db / 6
}

func clampPan(p float64) float64 {
	if p < -1 {
		return -1
	}
	if p > 1 {
		return 1
	}
	return p
}

func (e *Engine) handle(cmd Command) {
	switch c := cmd.(type) {
	case Load:
		e.mu.Lock()
		if _, exists := e.instances[c.InstanceID]; exists {
			e.mu.Unlock()
			return
		}
		inst, err := e.load(c.InstanceID, c.Source)
		if err != nil {
			e.mu.Unlock()
			e.emit(Event{Kind: EventError, InstanceID: c.InstanceID, Message: err.Error()})
			return
		}
		inst.lastState = statePaused
		e.instances[c.InstanceID] = inst
		e.mu.Unlock()

	case Play:
		e.mu.Lock()
		inst, exists := e.instances[c.InstanceID]
		if !exists {
			var err error
			inst, err = e.load(c.InstanceID, c.Source)
			if err != nil {
				e.mu.Unlock()
				e.emit(Event{Kind: EventError, InstanceID: c.InstanceID, Message: err.Error()})
				return
			}
			e.instances[c.InstanceID] = inst
		}
		inst.source.Repeat = c.Source.Repeat
		done := make(chan struct{})
		playable := wrapForPlayback(inst, done)
		go func() {
			<-done
			inst.naturallyDone.Store(true)
		}()
		if !inst.started && inst.source.FadeIn != nil && inst.source.FadeIn.Duration > 0 {
			speaker.Lock()
			inst.volume.Volume = dbToBeepVolume(silenceFloorDB)
			speaker.Unlock()
			inst.volFading = true
			inst.volFadeStart = time.Now()
			inst.volFadeDuration = inst.source.FadeIn.Duration
			inst.volFadeFromDB = silenceFloorDB
			inst.volFadeToDB = inst.source.VolumeDB + inst.baseVolumeDB
			inst.volEasing = inst.source.FadeIn.Easing
		}
		speaker.Lock()
		inst.ctrl.Paused = false
		speaker.Unlock()
		inst.lastState = statePlaying
		if !inst.started {
			inst.started = true
			speaker.Play(playable)
		}
		e.mu.Unlock()
		e.emit(Event{Kind: EventStarted, InstanceID: c.InstanceID})

	case Pause:
		e.mu.Lock()
		inst, ok := e.instances[c.InstanceID]
		if !ok {
			e.mu.Unlock()
			e.emit(Event{Kind: EventError, InstanceID: c.InstanceID, Message: "unknown audio instance"})
			return
		}
		speaker.Lock()
		inst.ctrl.Paused = true
		speaker.Unlock()
		inst.lastState = statePaused
		position, duration := e.positionLocked(inst)
		e.mu.Unlock()
		e.emit(Event{Kind: EventPaused, InstanceID: c.InstanceID, Position: position, Duration: duration})

	case Resume:
		e.mu.Lock()
		inst, ok := e.instances[c.InstanceID]
		if !ok {
			e.mu.Unlock()
			e.emit(Event{Kind: EventError, InstanceID: c.InstanceID, Message: "unknown audio instance"})
			return
		}
		speaker.Lock()
		inst.ctrl.Paused = false
		speaker.Unlock()
		inst.lastState = statePlaying
		e.mu.Unlock()
		e.emit(Event{Kind: EventResumed, InstanceID: c.InstanceID})

	case Stop:
		e.mu.Lock()
		inst, ok := e.instances[c.InstanceID]
		deferred := false
		if ok {
			inst.manualStopSent = true
			if inst.source.FadeOut != nil && inst.source.FadeOut.Duration > 0 {
				speaker.Lock()
				currentDB := inst.volume.Volume * 6
				speaker.Unlock()
				inst.stopping = true
				inst.stopFadeStart = time.Now()
				inst.stopFadeDuration = inst.source.FadeOut.Duration
				inst.stopFadeFromDB = currentDB
				inst.stopEasing = inst.source.FadeOut.Easing
				deferred = true // defer removal/emit to the fade-out completing in poll()
			} else {
				e.finalizeStopLocked(inst, c.InstanceID)
			}
		}
		e.mu.Unlock()
		switch {
		case !ok:
			e.emit(Event{Kind: EventError, InstanceID: c.InstanceID, Message: "unknown audio instance"})
		case !deferred:
			e.emit(Event{Kind: EventStopped, InstanceID: c.InstanceID})
		}

	case HardStop:
		e.mu.Lock()
		inst, ok := e.instances[c.InstanceID]
		if ok {
			inst.manualStopSent = true
			e.finalizeStopLocked(inst, c.InstanceID)
		}
		e.mu.Unlock()
		if ok {
			e.emit(Event{Kind: EventStopped, InstanceID: c.InstanceID})
		}

	case SeekTo:
		e.mu.Lock()
		inst, ok := e.instances[c.InstanceID]
		if !ok {
			e.mu.Unlock()
			e.emit(Event{Kind: EventError, InstanceID: c.InstanceID, Message: "unknown audio instance"})
			return
		}
		speaker.Lock()
		_ = inst.streamer.Seek(inst.format.SampleRate.N(time.Duration(c.Position * float64(time.Second))))
		speaker.Unlock()
		e.mu.Unlock()

	case SeekBy:
		e.mu.Lock()
		inst, ok := e.instances[c.InstanceID]
		if !ok {
			e.mu.Unlock()
			e.emit(Event{Kind: EventError, InstanceID: c.InstanceID, Message: "unknown audio instance"})
			return
		}
		speaker.Lock()
		current := inst.streamer.Position()
		target := current + inst.format.SampleRate.N(time.Duration(c.Delta*float64(time.Second)))
		if target < 0 {
			target = 0
		}
		_ = inst.streamer.Seek(target)
		speaker.Unlock()
		e.mu.Unlock()

	case SetVolume:
		e.mu.Lock()
		inst, ok := e.instances[c.InstanceID]
		if !ok {
			e.mu.Unlock()
			return
		}
		if c.Fade != nil && c.Fade.Duration > 0 {
			speaker.Lock()
			currentDB := inst.volume.Volume * 6
			speaker.Unlock()
			inst.volFading = true
			inst.volFadeStart = time.Now()
			inst.volFadeDuration = c.Fade.Duration
			inst.volFadeFromDB = currentDB
			inst.volFadeToDB = c.VolumeDB
			inst.volEasing = c.Fade.Easing
		} else {
			inst.volFading = false
			speaker.Lock()
			inst.volume.Volume = dbToBeepVolume(c.VolumeDB)
			speaker.Unlock()
		}
		e.mu.Unlock()

	case PerformAction:
		e.mu.Lock()
		inst, ok := e.instances[c.InstanceID]
		if !ok {
			e.mu.Unlock()
			return
		}
		switch a := c.Action.(type) {
		case event.ToggleRepeat:
			inst.source.Repeat = !inst.source.Repeat
		case event.SetVolume:
			inst.volFading = false
			speaker.Lock()
			inst.volume.Volume = dbToBeepVolume(float64(a.VolumeDB))
			speaker.Unlock()
		}
		e.mu.Unlock()

	case Reconfigure:
		e.mu.Lock()
		e.baseVolumeDB = c.BaseVolumeDB
		e.mu.Unlock()
	}
}

// finalizeStopLocked pauses, closes, and drops an instance. Caller must
// hold e.mu; it acquires speaker.Lock internally.
func (e *Engine) finalizeStopLocked(inst *instance, id uuid.UUID) {
	speaker.Lock()
	inst.ctrl.Paused = true
	speaker.Unlock()
	if inst.closer != nil {
		_ = inst.closer()
	}
	delete(e.instances, id)
}

// wrapForPlayback applies looping and wires the completion callback that
// flips naturallyDone — everything downstream of the volume/pan chain.
func wrapForPlayback(inst *instance, done chan struct{}) beep.Streamer {
	if inst.source.Repeat {
		return beep.Loop(-1, inst.panner)
	}
	return beep.Seq(inst.panner, beep.Callback(func() { close(done) }))
}

func (e *Engine) positionLocked(inst *instance) (position, duration float64) {
	speaker.Lock()
	pos := inst.streamer.Position()
	length := inst.streamer.Len()
	speaker.Unlock()
	return float64(pos) / float64(inst.format.SampleRate), float64(length) / float64(inst.format.SampleRate)
}

func (e *Engine) poll() {
	e.mu.Lock()
	type outgoing struct {
		evt Event
	}
	var out []outgoing
	var toRemove []uuid.UUID
	for id, inst := range e.instances {
		if inst.volFading {
			elapsed := time.Since(inst.volFadeStart).Seconds()
			speaker.Lock()
			if elapsed >= inst.volFadeDuration {
				inst.volume.Volume = dbToBeepVolume(inst.volFadeToDB)
				inst.volFading = false
			} else {
				progress := elapsed / inst.volFadeDuration
				db := model.Interpolate(inst.volFadeFromDB, inst.volFadeToDB, progress, inst.volEasing)
				inst.volume.Volume = dbToBeepVolume(db)
			}
			speaker.Unlock()
		}

		if inst.stopping {
			elapsed := time.Since(inst.stopFadeStart).Seconds()
			if elapsed >= inst.stopFadeDuration {
				e.finalizeStopLocked(inst, id)
				out = append(out, outgoing{Event{Kind: EventStopped, InstanceID: id}})
				continue
			}
			progress := elapsed / inst.stopFadeDuration
			db := model.Interpolate(inst.stopFadeFromDB, silenceFloorDB, progress, inst.stopEasing)
			speaker.Lock()
			inst.volume.Volume = dbToBeepVolume(db)
			speaker.Unlock()
			position, duration := e.positionLocked(inst)
			out = append(out, outgoing{Event{Kind: EventProgress, InstanceID: id, Position: position, Duration: duration}})
			continue
		}

		paused := inst.ctrl.Paused
		done := inst.naturallyDone.Load()

		var state instanceState
		switch {
		case done && !inst.manualStopSent:
			state = stateStopped
		case paused:
			state = statePaused
		default:
			state = statePlaying
		}

		if state == inst.lastState {
			if state == statePlaying {
				position, duration := e.positionLocked(inst)
				out = append(out, outgoing{Event{Kind: EventProgress, InstanceID: id, Position: position, Duration: duration}})
			}
			continue
		}

		position, duration := e.positionLocked(inst)
		switch state {
		case statePaused:
			out = append(out, outgoing{Event{Kind: EventPaused, InstanceID: id, Position: position, Duration: duration}})
		case statePlaying:
			out = append(out, outgoing{Event{Kind: EventResumed, InstanceID: id}})
		case stateStopped:
			if inst.manualStopSent {
				out = append(out, outgoing{Event{Kind: EventStopped, InstanceID: id}})
			} else {
				out = append(out, outgoing{Event{Kind: EventCompleted, InstanceID: id}})
			}
			toRemove = append(toRemove, id)
		}
		inst.lastState = state
	}
	for _, id := range toRemove {
		if inst, ok := e.instances[id]; ok && inst.closer != nil {
			_ = inst.closer()
		}
		delete(e.instances, id)
	}
	e.mu.Unlock()

	for _, o := range out {
		if o.evt.Kind == EventProgress {
			e.emitNonBlocking(o.evt)
		} else {
			e.emit(o.evt)
		}
	}
}

func (e *Engine) emit(evt Event) {
	e.events <- evt
}

func (e *Engine) emitNonBlocking(evt Event) {
	select {
	case e.events <- evt:
	default:
		log.Printf("AudioEngine: dropped progress event for instance %s (channel full)", evt.InstanceID)
	}
}
