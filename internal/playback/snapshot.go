/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package playback

// Wire shapes of the state-sync snapshots.

type AudioSnapshot struct {
	Length         uint64  `json:"length"`
	SampleRate     uint32  `json:"sampleRate"`
	LoopStart      bool    `json:"loopStart"`
	LoopCount      *uint16 `json:"loopCount,omitempty"`
	LoopStartFrame *uint32 `json:"loopStartFrame,omitempty"`
	LoopEndFrame   *uint32 `json:"loopEndFrame,omitempty"`
}

type ClipSnapshot struct {
	Path    string        `json:"path"`
	Name    string        `json:"name"`
	Audio   AudioSnapshot `json:"audio"`
	StartAt *uint64       `json:"startAt"`
	ID      uint64        `json:"id"`
}

type TrackSnapshot struct {
	Name    string         `json:"name"`
	Clips   []ClipSnapshot `json:"clips"`
	Current *int           `json:"current"`
}

type PlaybackSnapshot struct {
	IsPaused    bool   `json:"isPaused"`
	TotalFrames uint64 `json:"totalFrames"`
	Channels    int    `json:"channels"`
	SampleRate  int    `json:"sampleRate"`
}
