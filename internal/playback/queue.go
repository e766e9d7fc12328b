/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package playback

import (
	"sync"
	"time"

	"github.com/faiface/beep"
)

type queued struct {
	clip   *Clip
	stream beep.Streamer
}

// queue plays clips one after another. It stays in the mixer while idle,
// filling with silence, until it is closed.
type queue struct {
	mtx    sync.Mutex
	items  []queued
	closed bool
}

func (q *queue) add(c *Clip, s beep.Streamer) {
	q.mtx.Lock()
	q.items = append(q.items, queued{clip: c, stream: s})
	q.mtx.Unlock()
}

func (q *queue) Stream(samples [][2]float64) (n int, ok bool) {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	if q.closed {
		return 0, false
	}

	filled := 0
	for filled < len(samples) && len(q.items) > 0 {
		sn, sok := q.items[0].stream.Stream(samples[filled:])
		filled += sn
		if !sok || sn == 0 {
			q.items[0] = queued{}
			q.items = q.items[1:]
		}
	}
	for i := filled; i < len(samples); i++ {
		samples[i] = [2]float64{}
	}
	return len(samples), true
}

func (q *queue) Err() error { return nil }

// current is the clip at the head of the queue, or nil when idle.
func (q *queue) current() *Clip {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	return q.items[0].clip
}

// seek moves the playing clip. An idle queue ignores it.
func (q *queue) seek(pos time.Duration) error {
	c := q.current()
	if c == nil {
		return nil
	}
	return c.TrySeek(pos)
}

func (q *queue) close() {
	q.mtx.Lock()
	q.closed = true
	q.items = nil
	q.mtx.Unlock()
}
