/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

// Package statesync publishes keyed state snapshots to observers.
package statesync

import (
	"encoding/json"
	"fmt"

	"hdxloop/pkg/spec"
)

// Emitter receives state changes. Implementations must not block.
type Emitter interface {
	Emit(key string, value any)
}

// Payload is one state change. Value holds the JSON encoding of the
// snapshot, as a string.
type Payload struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// NewPayload encodes value. Plain strings are encoded too, so "processing"
// arrives as "\"processing\"".
func NewPayload(key string, value any) (Payload, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return Payload{}, fmt.Errorf("encode %s: %w", key, err)
	}
	return Payload{Key: key, Value: string(b)}, nil
}

// Event is the envelope sent to remote observers.
type Event struct {
	Name    string  `json:"event"`
	Payload Payload `json:"payload"`
}

func (p Payload) Event() Event {
	return Event{Name: spec.StateSyncEvent, Payload: p}
}

// Func adapts a function to Emitter.
type Func func(key string, value any)

func (f Func) Emit(key string, value any) { f(key, value) }

// Multi fans out to several emitters in order.
type Multi []Emitter

func (m Multi) Emit(key string, value any) {
	for _, e := range m {
		if e != nil {
			e.Emit(key, value)
		}
	}
}

type discard struct{}

func (discard) Emit(string, any) {}

// Discard drops every change.
var Discard Emitter = discard{}
