/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package codec

import (
	"math"
)

// Waveform reduces the first channel to at most points RMS bytes (0-255)
// for an overview strip.
func Waveform(p *PCM, points int) []byte {
	frames := p.Frames()
	if frames == 0 || points <= 0 {
		return nil
	}

	step := frames / points
	if step == 0 {
		step = 1
	}

	waveform := make([]byte, 0, points)
	for i := 0; i < frames && len(waveform) < points; i += step {
		var sum float64
		count := 0
		for j := 0; j < step && i+j < frames; j++ {
			v := float64(p.Mono(i + j))
			sum += v * v
			count++
		}

		rms := math.Sqrt(sum / float64(count))
		// x5 so quiet material still shows up
		waveform = append(waveform, uint8(math.Min(rms*255.0*5.0, 255.0)))
	}
	return waveform
}
