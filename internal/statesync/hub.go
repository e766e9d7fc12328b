/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package statesync

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	hlog "hdxloop/internal/log"
)

const defaultBuffer = 64

// Hub is an Emitter that fans payloads out to subscribers. A subscriber
// whose buffer is full is dropped and its channel closed.
type Hub struct {
	log    *slog.Logger
	buffer int

	mtx  sync.Mutex
	subs map[string]chan Payload
	last map[string]Payload
}

func NewHub(logger *slog.Logger, buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{
		log:    hlog.Or(logger),
		buffer: buffer,
		subs:   make(map[string]chan Payload),
		last:   make(map[string]Payload),
	}
}

var _ Emitter = (*Hub)(nil)

func (h *Hub) Emit(key string, value any) {
	p, err := NewPayload(key, value)
	if err != nil {
		h.log.Error("state sync encode failed", "key", key, "err", err)
		return
	}

	h.mtx.Lock()
	defer h.mtx.Unlock()

	h.last[key] = p
	for id, ch := range h.subs {
		select {
		case ch <- p:
		default:
			close(ch)
			delete(h.subs, id)
			h.log.Warn("dropping slow state subscriber", "subscriber", id)
		}
	}
}

// Subscribe registers a new observer.
func (h *Hub) Subscribe() (string, <-chan Payload) {
	id := uuid.NewString()
	ch := make(chan Payload, h.buffer)

	h.mtx.Lock()
	h.subs[id] = ch
	h.mtx.Unlock()

	return id, ch
}

// Unsubscribe closes the subscriber's channel. Unknown ids are ignored.
func (h *Hub) Unsubscribe(id string) {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	if ch, ok := h.subs[id]; ok {
		close(ch)
		delete(h.subs, id)
	}
}

// Last is the most recent payload for key.
func (h *Hub) Last(key string) (Payload, bool) {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	p, ok := h.last[key]
	return p, ok
}

// Len is the number of live subscribers.
func (h *Hub) Len() int {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	return len(h.subs)
}
