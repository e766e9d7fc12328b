/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

// Package playback mixes tracks of looping clips into one output device.
package playback

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"

	"hdxloop/internal/config"
	"hdxloop/pkg/spec"
)

// volume at or below this is muted
const minVolume = -10.0

// ======================================================
// Output clock
// ======================================================

// clock counts every frame handed to the device.
type clock struct {
	s      beep.Streamer
	played *atomic.Uint64
}

func (c *clock) Stream(samples [][2]float64) (int, bool) {
	n, _ := c.s.Stream(samples)
	for i := n; i < len(samples); i++ {
		samples[i] = [2]float64{}
	}
	c.played.Add(uint64(len(samples)))
	return len(samples), true
}

func (c *clock) Err() error { return nil }

// ======================================================
// Engine
// ======================================================

// Engine owns the output device, the mixer feeding it and the tracks
// added to the mixer.
type Engine struct {
	sr     beep.SampleRate
	device Device
	svc    *Services
	log    *slog.Logger

	mixer  *beep.Mixer
	volume *effects.Volume
	ctrl   *beep.Ctrl
	played atomic.Uint64

	lookup *Lookup

	mtx      sync.Mutex
	tracks   []*Track
	trackSeq int
	closed   bool
}

// NewEngine opens dev and starts pulling from an empty mixer, paused.
func NewEngine(cfg config.Config, dev Device, svc *Services) (*Engine, error) {
	if dev == nil {
		dev = SpeakerDevice{}
	}
	if svc == nil {
		svc = &Services{}
	}
	svc = svc.withDefaults()

	sr := beep.SampleRate(cfg.SampleRate)
	if sr <= 0 {
		sr = spec.SampleRate
	}
	buffer := cfg.BufferDuration
	if buffer <= 0 {
		buffer = spec.BufferMs * time.Millisecond
	}

	if err := dev.Open(sr, sr.N(buffer)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDevice, err)
	}

	e := &Engine{
		sr:     sr,
		device: dev,
		svc:    svc,
		log:    svc.Logger.With("component", "engine"),
		mixer:  &beep.Mixer{},
		lookup: newLookup(),
	}
	e.volume = &effects.Volume{
		Streamer: &clock{s: e.mixer, played: &e.played},
		Base:     2,
	}
	e.ctrl = &beep.Ctrl{Streamer: e.volume, Paused: true}
	dev.Play(e.ctrl)

	e.log.Info("output opened", "sample_rate", int(sr), "buffer", buffer)
	return e, nil
}

func (e *Engine) SampleRate() beep.SampleRate { return e.sr }

// Services are the collaborators shared with clips and tracks.
func (e *Engine) Services() *Services { return e.svc }

// attach registers a streamer with the mixer.
func (e *Engine) attach(s beep.Streamer) {
	e.device.Lock()
	e.mixer.Add(s)
	e.device.Unlock()
}

// TotalFramesPlayed counts frames the device has pulled while playing.
func (e *Engine) TotalFramesPlayed() uint64 { return e.played.Load() }

func (e *Engine) Paused() bool {
	e.device.Lock()
	defer e.device.Unlock()
	return e.ctrl.Paused
}

func (e *Engine) setPaused(p bool) {
	e.device.Lock()
	e.ctrl.Paused = p
	e.device.Unlock()

	e.log.Debug("paused changed", "paused", p)
	e.emitPlayback()
}

func (e *Engine) Play()  { e.setPaused(false) }
func (e *Engine) Pause() { e.setPaused(true) }

func (e *Engine) TogglePlayback() {
	e.device.Lock()
	p := !e.ctrl.Paused
	e.ctrl.Paused = p
	e.device.Unlock()

	e.emitPlayback()
}

// SetVolume sets the master gain as a base-2 exponent; 0 is unity.
func (e *Engine) SetVolume(v float64) {
	e.device.Lock()
	e.volume.Volume = v
	e.volume.Silent = v <= minVolume
	e.device.Unlock()

	e.emitPlayback()
}

func (e *Engine) Volume() float64 {
	e.device.Lock()
	defer e.device.Unlock()
	return e.volume.Volume
}

// TrySeek seeks every track to pos and resets the play clock to match.
// Tracks that fail keep their position; their errors are joined.
func (e *Engine) TrySeek(pos time.Duration) error {
	if pos < 0 {
		pos = 0
	}

	var errs []error
	for _, t := range e.Tracks() {
		if err := t.TrySeek(pos); err != nil {
			errs = append(errs, fmt.Errorf("track %s: %w", t.Name(), err))
		}
	}

	// a callback already in flight may still add its buffer on top
	e.played.Store(uint64(math.Floor(pos.Seconds() * float64(e.sr))))
	e.emitPlayback()

	return errors.Join(errs...)
}

// AddTrack creates a track on the mixer. An empty name becomes "Track N".
func (e *Engine) AddTrack(name string) *Track {
	e.mtx.Lock()
	e.trackSeq++
	if name == "" {
		name = fmt.Sprintf("Track %d", e.trackSeq)
	}
	e.mtx.Unlock()

	t := newTrack(name, e)

	e.mtx.Lock()
	e.tracks = append(e.tracks, t)
	e.mtx.Unlock()

	e.log.Info("track added", "track", name)
	e.emitTracks()
	return t
}

func (e *Engine) Tracks() []*Track {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return append([]*Track(nil), e.tracks...)
}

// LastTrack is the most recently added track.
func (e *Engine) LastTrack() (*Track, bool) {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	if len(e.tracks) == 0 {
		return nil, false
	}
	return e.tracks[len(e.tracks)-1], true
}

// Lookup resolves clip ids to clips and their tracks.
func (e *Engine) Lookup() *Lookup { return e.lookup }

// FindClip is Lookup().Find over the engine's tracks.
func (e *Engine) FindClip(id uint64) (*Clip, *Track, bool) {
	return e.lookup.Find(id, e.Tracks())
}

func (e *Engine) Snapshot() PlaybackSnapshot {
	return PlaybackSnapshot{
		IsPaused:    e.Paused(),
		TotalFrames: e.TotalFramesPlayed(),
		Channels:    spec.Channels,
		SampleRate:  int(e.sr),
	}
}

func (e *Engine) TrackSnapshots() []TrackSnapshot {
	tracks := e.Tracks()
	out := make([]TrackSnapshot, len(tracks))
	for i, t := range tracks {
		out[i] = t.Snapshot()
	}
	return out
}

func (e *Engine) emitTracks()   { e.svc.Emitter.Emit(spec.KeyTracks, e.TrackSnapshots()) }
func (e *Engine) emitPlayback() { e.svc.Emitter.Emit(spec.KeyPlayback, e.Snapshot()) }

// Refresh re-emits the full state.
func (e *Engine) Refresh() {
	e.emitTracks()
	e.emitPlayback()
}

// Close stops all background work and releases the device.
func (e *Engine) Close() error {
	e.mtx.Lock()
	if e.closed {
		e.mtx.Unlock()
		return nil
	}
	e.closed = true
	tracks := append([]*Track(nil), e.tracks...)
	e.mtx.Unlock()

	e.svc.Jobs.CancelAll()
	for _, t := range tracks {
		t.Close()
	}
	e.svc.Jobs.Wait()

	if err := e.device.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrDevice, err)
	}
	e.log.Info("engine closed")
	return nil
}
