/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package codec

import (
	"math"
	"time"
)

// PCM is a fully decoded stream: interleaved float32 samples in [-1,1].
// It is never mutated after decoding, so it is shared freely between
// sources reading the same asset.
type PCM struct {
	SampleRate int
	Channels   int
	Samples    []float32
}

// Frames is the number of frames (one sample per channel).
func (p *PCM) Frames() int {
	if p == nil || p.Channels <= 0 {
		return 0
	}
	return len(p.Samples) / p.Channels
}

// Seconds is the stream length in seconds.
func (p *PCM) Seconds() float64 {
	if p == nil || p.SampleRate <= 0 {
		return 0
	}
	return float64(p.Frames()) / float64(p.SampleRate)
}

func (p *PCM) Duration() time.Duration {
	return time.Duration(p.Seconds() * float64(time.Second))
}

// TotalFrames is round(duration * sample rate).
func (p *PCM) TotalFrames() uint64 {
	return uint64(math.Round(p.Seconds() * float64(p.SampleRate)))
}

// Frame returns frame i as a stereo pair. Mono is duplicated, channels
// past the second are dropped.
func (p *PCM) Frame(i int) [2]float64 {
	base := i * p.Channels
	l := float64(p.Samples[base])
	if p.Channels == 1 {
		return [2]float64{l, l}
	}
	return [2]float64{l, float64(p.Samples[base+1])}
}

// Mono returns the first channel of frame i.
func (p *PCM) Mono(i int) float32 {
	return p.Samples[i*p.Channels]
}

// MonoFloat64 copies the first channel out as float64.
func (p *PCM) MonoFloat64() []float64 {
	n := p.Frames()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = float64(p.Samples[i*p.Channels])
	}
	return out
}
