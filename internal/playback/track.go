/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package playback

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/faiface/beep"

	"hdxloop/internal/analysis"
	"hdxloop/internal/index"
	"hdxloop/pkg/spec"
)

// Track sequences clips into one queue on the engine mixer and keeps a
// beat index over the clips it has analyzed.
type Track struct {
	name   string
	engine *Engine
	svc    *Services
	log    *slog.Logger

	queue *queue
	idx   *index.Index

	mtx   sync.Mutex
	clips []*Clip
	jobs  []*analysis.Handle
}

func newTrack(name string, e *Engine) *Track {
	t := &Track{
		name:   name,
		engine: e,
		svc:    e.svc,
		log:    e.svc.Logger.With("track", name),
		queue:  &queue{},
		idx:    index.New(spec.FeatureDim, e.svc.IndexCapacity),
	}
	e.attach(t.queue)
	return t
}

func (t *Track) Name() string         { return t.name }
func (t *Track) Index() *index.Index { return t.idx }

// AddClip appends c to the queue. The first clip of a track that has no
// scheduled clip yet gets an advisory start of max(track length, engine
// position); no silence is inserted for it.
func (t *Track) AddClip(c *Clip) {
	var stream beep.Streamer = c.src
	if sr := t.engine.SampleRate(); c.SampleRate() != sr {
		stream = beep.Resample(t.svc.ResampleQuality, c.SampleRate(), sr, c.src)
	}

	t.mtx.Lock()
	scheduled := false
	for _, x := range t.clips {
		if x.StartAt() != nil {
			scheduled = true
			break
		}
	}
	if !scheduled {
		c.setStartAt(max(t.totalFramesLocked(), t.engine.TotalFramesPlayed()))
	}
	t.clips = append(t.clips, c)
	t.mtx.Unlock()

	t.queue.add(c, stream)
	t.engine.lookup.put(c.ID(), t)

	h := t.svc.Jobs.Go("seed loop "+c.Name(), func(ctx context.Context) error {
		return t.seedLoop(ctx, c)
	})
	t.mtx.Lock()
	t.jobs = append(t.jobs, h)
	t.mtx.Unlock()

	if at := c.StartAt(); at != nil {
		t.log.Info("clip added", "clip_id", c.ID(), "path", c.Path(), "start_at", *at)
	} else {
		t.log.Info("clip added", "clip_id", c.ID(), "path", c.Path())
	}
}

// seedLoop waits for the clip's analysis, indexes its beats by ordinal and
// loops the clip from beat 0 to the beat most similar to it.
func (t *Track) seedLoop(ctx context.Context, c *Clip) error {
	res, err := c.asset.Wait(ctx)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// keys are beat ordinals, so the largest clip sets the size
	t.idx.Reserve(len(res.Features))
	for i, f := range res.Features {
		if err := t.idx.Add(uint64(i), f); err != nil {
			t.log.Warn("beat not indexed", "clip_id", c.ID(), "beat", i, "err", err)
			if errors.Is(err, index.ErrCapacity) {
				break
			}
		}
	}

	if len(res.Features) == 0 || len(res.Beats) == 0 {
		t.log.Info("no beats to seed a loop", "clip_id", c.ID())
		return nil
	}

	matches, err := t.idx.Search(res.Features[0], t.svc.SeedNeighbors)
	if err != nil {
		t.log.Warn("seed search failed", "clip_id", c.ID(), "err", err)
		return nil
	}
	if len(matches) < 2 {
		return nil
	}

	key := matches[1].Key
	if key >= uint64(len(res.Beats)) {
		t.log.Warn("seed match outside clip", "clip_id", c.ID(), "beat", key)
		return nil
	}
	if err := c.SetLoopFrames(res.Beats[0], res.Beats[key]); err != nil {
		t.log.Warn("seed loop rejected", "clip_id", c.ID(), "err", err)
		return nil
	}

	t.log.Info("loop seeded", "clip_id", c.ID(), "start", res.Beats[0], "end", res.Beats[key])
	t.engine.emitTracks()
	return nil
}

// TotalFrames is the summed length of every clip.
func (t *Track) TotalFrames() (uint64, bool) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return t.totalFramesLocked(), true
}

func (t *Track) totalFramesLocked() uint64 {
	var n uint64
	for _, c := range t.clips {
		n += c.TotalFrames()
	}
	return n
}

// TrySeek seeks the clip that is playing now.
func (t *Track) TrySeek(pos time.Duration) error {
	return t.queue.seek(pos)
}

func (t *Track) Clips() []*Clip {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return append([]*Clip(nil), t.clips...)
}

func (t *Track) Clip(id uint64) (*Clip, bool) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	for _, c := range t.clips {
		if c.ID() == id {
			return c, true
		}
	}
	return nil, false
}

// Jobs are the loop seeding jobs started by AddClip.
func (t *Track) Jobs() []*analysis.Handle {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return append([]*analysis.Handle(nil), t.jobs...)
}

// Close cancels the track's jobs and takes its queue off the mixer.
func (t *Track) Close() {
	for _, h := range t.Jobs() {
		h.Cancel()
	}
	t.queue.close()
}

func (t *Track) Snapshot() TrackSnapshot {
	cur := t.queue.current()

	t.mtx.Lock()
	defer t.mtx.Unlock()

	s := TrackSnapshot{Name: t.name, Clips: make([]ClipSnapshot, len(t.clips))}
	for i, c := range t.clips {
		s.Clips[i] = c.Snapshot()
		if c == cur {
			i := i
			s.Current = &i
		}
	}
	return s
}
