/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package analysis

import (
	"context"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"

	"hdxloop/pkg/spec"
)

const (
	fftSize = 2 * spec.FeatureDim
	fftHop  = fftSize / 2
)

// ExtractFeatures averages the Hann-windowed magnitude spectrum of each
// window into spec.FeatureDim bins, log-compressed and L2 normalized.
func (d *DSPAnalyzer) ExtractFeatures(ctx context.Context, windows [][]float32, _ int) ([][]float32, error) {
	out := make([][]float32, len(windows))
	for i, w := range windows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = spectrum(w)
	}
	return out, nil
}

func spectrum(w []float32) []float32 {
	acc := make([]float64, spec.FeatureDim)
	frame := make([]float64, fftSize)
	count := 0

	for off := 0; off == 0 || off+fftSize <= len(w); off += fftHop {
		for i := range frame {
			frame[i] = 0
			if off+i < len(w) {
				frame[i] = float64(w[off+i])
			}
		}
		window.Apply(frame, window.Hann)

		bins := fft.FFTReal(frame)
		for k := 0; k < spec.FeatureDim; k++ {
			acc[k] += cmplx.Abs(bins[k])
		}
		count++
	}

	var norm float64
	for k := range acc {
		acc[k] = math.Log1p(acc[k] / float64(count))
		norm += acc[k] * acc[k]
	}
	norm = math.Sqrt(norm)

	vec := make([]float32, spec.FeatureDim)
	if norm == 0 {
		return vec
	}
	for k, v := range acc {
		vec[k] = float32(v / norm)
	}
	return vec
}
