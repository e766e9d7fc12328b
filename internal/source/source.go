/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

// Package source provides a seekable, loopable beep streamer over decoded
// PCM.
package source

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/faiface/beep"

	"hdxloop/internal/codec"
)

var (
	ErrSeek        = errors.New("seek out of range")
	ErrInvalidLoop = errors.New("loop start must be before loop end")
)

// Source streams one PCM buffer from a private cursor. Many sources may
// share the same PCM.
type Source struct {
	pcm *codec.PCM

	mtx sync.Mutex
	pos int

	loop      atomic.Pointer[LoopState]
	loopBacks atomic.Uint64
}

var _ beep.StreamSeeker = (*Source)(nil)

func New(pcm *codec.PCM) *Source {
	s := &Source{pcm: pcm}
	s.loop.Store(&LoopState{})
	return s
}

// Stream fills samples from the cursor. When a loop is set and the cursor
// reaches its end frame, the cursor jumps back to the start frame before
// the next frame is read.
func (s *Source) Stream(samples [][2]float64) (n int, ok bool) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	frames := s.pcm.Frames()
	for n < len(samples) {
		if l := s.loop.Load(); l.Enabled() && s.pos == int(*l.End) {
			s.pos = int(*l.Start)
			s.loopBacks.Add(1)
		}
		if s.pos >= frames {
			break
		}
		samples[n] = s.pcm.Frame(s.pos)
		s.pos++
		n++
	}
	return n, n > 0
}

func (s *Source) Err() error { return nil }

// Len is the total number of frames.
func (s *Source) Len() int { return s.pcm.Frames() }

func (s *Source) Position() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.pos
}

// Seek moves the cursor to frame p, 0 <= p <= Len. Out of range targets
// leave the cursor where it was.
func (s *Source) Seek(p int) error {
	if p < 0 || p > s.Len() {
		return fmt.Errorf("%w: frame %d of %d", ErrSeek, p, s.Len())
	}
	s.mtx.Lock()
	s.pos = p
	s.mtx.Unlock()
	return nil
}

// SeekTime seeks to floor(d * sample rate).
func (s *Source) SeekTime(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("%w: %v", ErrSeek, d)
	}
	return s.Seek(int(math.Floor(d.Seconds() * float64(s.pcm.SampleRate))))
}

// SetLoop loops [start, end) until cleared.
func (s *Source) SetLoop(start, end uint32) error {
	if start >= end {
		return fmt.Errorf("%w: [%d, %d)", ErrInvalidLoop, start, end)
	}
	s.loop.Store(&LoopState{Start: &start, End: &end})
	return nil
}

// SetLoopWithRepeatCount is SetLoop that also records a repeat count. The
// source keeps looping regardless; callers compare LoopBacks to it.
func (s *Source) SetLoopWithRepeatCount(start, end uint32, count uint16) error {
	if start >= end {
		return fmt.Errorf("%w: [%d, %d)", ErrInvalidLoop, start, end)
	}
	s.loop.Store(&LoopState{Start: &start, End: &end, RepeatCount: &count})
	return nil
}

func (s *Source) ClearLoop() {
	s.loop.Store(&LoopState{})
}

// Loop returns a copy of the current loop state.
func (s *Source) Loop() LoopState {
	return s.loop.Load().clone()
}

// LoopBacks counts how many times the cursor jumped back to a loop start.
func (s *Source) LoopBacks() uint64 { return s.loopBacks.Load() }

func (s *Source) SampleRate() beep.SampleRate { return beep.SampleRate(s.pcm.SampleRate) }

func (s *Source) Channels() int { return s.pcm.Channels }

func (s *Source) Duration() time.Duration { return s.pcm.Duration() }

// TotalFrames is round(duration * sample rate).
func (s *Source) TotalFrames() uint64 { return s.pcm.TotalFrames() }
