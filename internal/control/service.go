/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

// Package control is the command surface shared by every transport.
package control

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"hdxloop/internal/asset"
	"hdxloop/internal/codec"
	hlog "hdxloop/internal/log"
	"hdxloop/internal/playback"
	"hdxloop/pkg/spec"
)

var (
	ErrNoTrack  = errors.New("no track to add the clip to")
	ErrArgument = errors.New("invalid argument")
)

const waveformPoints = 256

// Service runs commands against one engine. Missing clips and assets are
// reported as absent results with a nil error.
type Service struct {
	engine *playback.Engine
	log    *slog.Logger
}

func NewService(e *playback.Engine, logger *slog.Logger) *Service {
	return &Service{engine: e, log: hlog.Or(logger).With("component", "control")}
}

func (s *Service) Engine() *playback.Engine { return s.engine }

func (s *Service) emitTracks() {
	s.engine.Services().Emitter.Emit(spec.KeyTracks, s.engine.TrackSnapshots())
}

// ======================================================
// Playback
// ======================================================

func (s *Service) Play()           { s.engine.Play() }
func (s *Service) Pause()          { s.engine.Pause() }
func (s *Service) TogglePlayback() { s.engine.TogglePlayback() }

func (s *Service) SetVolume(v float64) { s.engine.SetVolume(v) }

// TrySeek seeks all tracks to seconds.
func (s *Service) TrySeek(seconds float64) error {
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return fmt.Errorf("%w: seek to %v", ErrArgument, seconds)
	}
	return s.engine.TrySeek(time.Duration(seconds * float64(time.Second)))
}

func (s *Service) Status() playback.PlaybackSnapshot { return s.engine.Snapshot() }

func (s *Service) Tracks() []playback.TrackSnapshot { return s.engine.TrackSnapshots() }

// Refresh re-publishes tracks and playback state.
func (s *Service) Refresh() { s.engine.Refresh() }

// ======================================================
// Tracks & clips
// ======================================================

// AddTrack appends an unnamed track.
func (s *Service) AddTrack() playback.TrackSnapshot {
	return s.engine.AddTrack("").Snapshot()
}

// OpenFile adds path as a clip on the newest track.
func (s *Service) OpenFile(path string) (*playback.ClipSnapshot, error) {
	tr, ok := s.engine.LastTrack()
	if !ok {
		return nil, ErrNoTrack
	}

	c, err := playback.NewClip(path, s.engine.Services())
	if err != nil {
		s.log.Warn("open failed", "path", path, "err", err)
		return nil, err
	}
	tr.AddClip(c)
	s.emitTracks()

	snap := c.Snapshot()
	return &snap, nil
}

func (s *Service) GetClip(id uint64) (*playback.ClipSnapshot, bool) {
	c, _, ok := s.engine.FindClip(id)
	if !ok {
		return nil, false
	}
	snap := c.Snapshot()
	return &snap, true
}

func secondsToDuration(v float64) (time.Duration, error) {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %v seconds", ErrArgument, v)
	}
	return time.Duration(v * float64(time.Second)), nil
}

// SetClipLoop loops clip id between two times in seconds.
func (s *Service) SetClipLoop(id uint64, start, end float64) (bool, error) {
	c, _, ok := s.engine.FindClip(id)
	if !ok {
		return false, nil
	}
	ds, err := secondsToDuration(start)
	if err != nil {
		return true, err
	}
	de, err := secondsToDuration(end)
	if err != nil {
		return true, err
	}
	if err := c.SetLoop(ds, de); err != nil {
		return true, err
	}
	s.emitTracks()
	return true, nil
}

func (s *Service) SetClipLoopFrames(id uint64, start, end uint32) (bool, error) {
	c, _, ok := s.engine.FindClip(id)
	if !ok {
		return false, nil
	}
	if err := c.SetLoopFrames(start, end); err != nil {
		return true, err
	}
	s.emitTracks()
	return true, nil
}

func (s *Service) ClearClipLoop(id uint64) bool {
	c, _, ok := s.engine.FindClip(id)
	if !ok {
		return false
	}
	c.ClearLoop()
	s.emitTracks()
	return true
}

// GetClipPreferredTransitionBeats maps neighbouring beat ordinals in the
// clip's track index to their distance from beat ordinal.
func (s *Service) GetClipPreferredTransitionBeats(id uint64, ordinal, count int) (map[uint64]float32, bool, error) {
	c, tr, ok := s.engine.FindClip(id)
	if !ok {
		return nil, false, nil
	}
	if count <= 0 {
		return nil, true, fmt.Errorf("%w: count %d", ErrArgument, count)
	}

	matches, err := c.GetPreferredTransitionBeats(tr.Index(), ordinal, count)
	if err != nil {
		return nil, true, err
	}

	out := make(map[uint64]float32, len(matches))
	for _, m := range matches {
		out[m.Key] = m.Distance
	}
	return out, true, nil
}

// ======================================================
// Assets
// ======================================================

// AudioData is the analysis view of a cached asset.
type AudioData struct {
	Path       string   `json:"path"`
	Digest     string   `json:"digest"`
	Status     string   `json:"status"`
	SampleRate int      `json:"sampleRate"`
	Channels   int      `json:"channels"`
	Length     uint64   `json:"length"`
	Tempo      float32  `json:"tempo"`
	Beats      []uint32 `json:"beats"`
	Waveform   []byte   `json:"waveform"`
}

// GetAudioData describes an asset already opened by some clip.
func (s *Service) GetAudioData(path string) (*AudioData, bool) {
	a, ok := s.engine.Services().Assets.Lookup(path)
	if !ok {
		return nil, false
	}
	return audioData(a), true
}

// Beats is the tempo and beat grid of an analyzed asset.
type Beats struct {
	Path  string   `json:"path"`
	Tempo float32  `json:"tempo"`
	Beats []uint32 `json:"beats"`
}

func (s *Service) GetBeats(path string) (*Beats, bool) {
	a, ok := s.engine.Services().Assets.Lookup(path)
	if !ok {
		return nil, false
	}
	res, err := a.Analysis()
	if err != nil {
		return nil, false
	}
	return &Beats{Path: a.Path(), Tempo: res.Tempo, Beats: res.Beats}, true
}

func audioData(a *asset.Asset) *AudioData {
	snap := a.Snapshot()
	d := &AudioData{
		Path:   snap.Path,
		Digest: snap.Digest,
		Status: snap.Status.String(),
		Tempo:  snap.Result.Tempo,
		Beats:  snap.Result.Beats,
	}
	if pcm, err := a.PCM(); err == nil {
		fill(d, pcm)
	}
	return d
}

func fill(d *AudioData, pcm *codec.PCM) {
	d.SampleRate = pcm.SampleRate
	d.Channels = pcm.Channels
	d.Length = pcm.TotalFrames()
	d.Waveform = codec.Waveform(pcm, waveformPoints)
}
