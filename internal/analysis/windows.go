/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package analysis

import "hdxloop/internal/codec"

// BuildWindows cuts one mono window of 2*sampleRate+1 samples around each
// beat, starting one second before it. Samples outside the stream are zero.
func BuildWindows(pcm *codec.PCM, beats []uint32, sampleRate int) [][]float32 {
	size := 2*sampleRate + 1
	frames := pcm.Frames()

	windows := make([][]float32, len(beats))
	for i, beat := range beats {
		w := make([]float32, size)

		start := int(beat) - sampleRate
		pad := 0
		if start < 0 {
			pad = -start
			start = 0
		}

		for j := pad; j < size; j++ {
			f := start + j - pad
			if f >= frames {
				break
			}
			w[j] = pcm.Mono(f)
		}
		windows[i] = w
	}
	return windows
}
