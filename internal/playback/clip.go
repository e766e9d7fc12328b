/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package playback

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/faiface/beep"

	"hdxloop/internal/analysis"
	"hdxloop/internal/asset"
	"hdxloop/internal/index"
	"hdxloop/internal/source"
	"hdxloop/pkg/spec"
)

// Clip is one placement of an asset on a track, with its own cursor and
// loop.
type Clip struct {
	id    uint64
	asset *asset.Asset
	src   *source.Source

	startAt atomic.Pointer[uint64]

	// set when this clip started the asset's analysis
	job *analysis.Handle
}

// NewClip loads path through the shared cache and, if nobody has yet,
// starts analyzing it in the background.
func NewClip(path string, svc *Services) (*Clip, error) {
	svc = svc.withDefaults()

	a, err := svc.Assets.Get(path)
	if err != nil {
		return nil, err
	}
	pcm, err := a.PCM()
	if err != nil {
		return nil, err
	}

	c := &Clip{
		id:    svc.IDs.Next(),
		asset: a,
		src:   source.New(pcm),
	}

	if a.BeginAnalysis() {
		key := spec.ClipStateKey(a.Name())
		svc.Emitter.Emit(key, spec.ClipProcessing)

		c.job = svc.Jobs.Go("analyze "+a.Name(), func(ctx context.Context) error {
			if err := analysis.Run(ctx, svc.Analyzer, a, svc.FeatureBatch); err != nil {
				return err
			}
			svc.Emitter.Emit(key, spec.ClipProcessed)
			return nil
		})
	}

	svc.Logger.Debug("clip created", "clip_id", c.id, "path", a.Path(), "analysis", c.job != nil)
	return c, nil
}

func (c *Clip) ID() uint64           { return c.id }
func (c *Clip) Path() string         { return c.asset.Path() }
func (c *Clip) Name() string         { return c.asset.Name() }
func (c *Clip) Asset() *asset.Asset  { return c.asset }
func (c *Clip) Source() *source.Source { return c.src }

// AnalysisJob is the background analysis this clip started, if any.
func (c *Clip) AnalysisJob() *analysis.Handle { return c.job }

// StartAt is the advisory scheduled start in frames, nil when unset.
func (c *Clip) StartAt() *uint64 {
	p := c.startAt.Load()
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func (c *Clip) setStartAt(frames uint64) { c.startAt.Store(&frames) }

// SetLoop loops between two positions, each floored to a frame.
func (c *Clip) SetLoop(start, end time.Duration) error {
	sr := float64(c.src.SampleRate())
	return c.SetLoopFrames(
		uint32(math.Floor(start.Seconds()*sr)),
		uint32(math.Floor(end.Seconds()*sr)),
	)
}

func (c *Clip) SetLoopFrames(start, end uint32) error { return c.src.SetLoop(start, end) }

func (c *Clip) SetLoopWithRepeatCount(start, end uint32, count uint16) error {
	return c.src.SetLoopWithRepeatCount(start, end, count)
}

func (c *Clip) ClearLoop() { c.src.ClearLoop() }

func (c *Clip) TrySeek(pos time.Duration) error { return c.src.SeekTime(pos) }

func (c *Clip) TotalFrames() uint64 { return c.src.TotalFrames() }

func (c *Clip) SampleRate() beep.SampleRate { return c.src.SampleRate() }

// GetPreferredTransitionBeats returns the count beats in idx closest to
// beat ordinal of this clip.
func (c *Clip) GetPreferredTransitionBeats(idx *index.Index, ordinal, count int) ([]index.Match, error) {
	res, err := c.asset.Analysis()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotReady, c.Name())
	}
	if ordinal < 0 || ordinal >= len(res.Features) {
		return nil, fmt.Errorf("%w: %d of %d", ErrBeatOutOfRange, ordinal, len(res.Features))
	}
	return idx.Search(res.Features[ordinal], count)
}

func (c *Clip) Snapshot() ClipSnapshot {
	l := c.src.Loop()
	return ClipSnapshot{
		ID:      c.id,
		Path:    c.Path(),
		Name:    c.Name(),
		StartAt: c.StartAt(),
		Audio: AudioSnapshot{
			Length:         c.TotalFrames(),
			SampleRate:     uint32(c.src.SampleRate()),
			LoopStart:      l.Enabled(),
			LoopCount:      l.RepeatCount,
			LoopStartFrame: l.Start,
			LoopEndFrame:   l.End,
		},
	}
}
