/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

// Package audiotest writes small audio fixtures for tests.
package audiotest

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/aiff"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WriteWAV encodes interleaved 16-bit samples into dir/name and returns the path.
func WriteWAV(tb testing.TB, dir, name string, sampleRate, channels int, data []int) string {
	tb.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		tb.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	if err := enc.Write(intBuffer(sampleRate, channels, data)); err != nil {
		tb.Fatalf("encode wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		tb.Fatalf("close wav: %v", err)
	}
	return path
}

// WriteAIFF is WriteWAV for AIFF.
func WriteAIFF(tb testing.TB, dir, name string, sampleRate, channels int, data []int) string {
	tb.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		tb.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	enc := aiff.NewEncoder(f, sampleRate, 16, channels)
	if err := enc.Write(intBuffer(sampleRate, channels, data)); err != nil {
		tb.Fatalf("encode aiff: %v", err)
	}
	if err := enc.Close(); err != nil {
		tb.Fatalf("close aiff: %v", err)
	}
	return path
}

// ReadFile is os.ReadFile that fails the test.
func ReadFile(tb testing.TB, path string) []byte {
	tb.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		tb.Fatalf("read %s: %v", path, err)
	}
	return b
}

// Ramp yields frames*channels samples where every channel of frame i holds i.
func Ramp(frames, channels int) []int {
	out := make([]int, frames*channels)
	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			out[i*channels+c] = i % 32768
		}
	}
	return out
}

// Sine yields a 16-bit sine at freq Hz, amplitude 0.5.
func Sine(frames, channels, sampleRate int, freq float64) []int {
	out := make([]int, frames*channels)
	for i := 0; i < frames; i++ {
		v := int(0.5 * 32767 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
		for c := 0; c < channels; c++ {
			out[i*channels+c] = v
		}
	}
	return out
}

// Clicks yields silence with a short full-scale burst every period frames.
func Clicks(frames, channels, period int) []int {
	out := make([]int, frames*channels)
	for i := 0; i < frames; i++ {
		if i%period < 64 {
			v := 30000
			if i%2 == 1 {
				v = -30000
			}
			for c := 0; c < channels; c++ {
				out[i*channels+c] = v
			}
		}
	}
	return out
}

func intBuffer(sampleRate, channels int, data []int) *audio.IntBuffer {
	return &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
}
