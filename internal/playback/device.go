/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package playback

import (
	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
)

// Device is an audio output that pulls from one streamer on its own
// goroutine. Lock and Unlock exclude that goroutine.
type Device interface {
	Open(sr beep.SampleRate, bufferSize int) error
	Play(s beep.Streamer)
	Lock()
	Unlock()
	Close() error
}

// SpeakerDevice is the system default output.
type SpeakerDevice struct{}

func (SpeakerDevice) Open(sr beep.SampleRate, bufferSize int) error {
	return speaker.Init(sr, bufferSize)
}

func (SpeakerDevice) Play(s beep.Streamer) { speaker.Play(s) }
func (SpeakerDevice) Lock()                { speaker.Lock() }
func (SpeakerDevice) Unlock()              { speaker.Unlock() }

func (SpeakerDevice) Close() error {
	speaker.Close()
	return nil
}
