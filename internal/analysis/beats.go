/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package analysis

import (
	"context"
	"sort"

	"github.com/goccmack/godsp"
	"github.com/goccmack/godsp/dwt"

	"hdxloop/internal/codec"
)

const (
	// dwtLevel is the number of scales the DWT is computed over
	dwtLevel = 4
	// envScale is how many input frames one envelope sample covers
	envScale = 1 << dwtLevel

	minDWTLen = 1 << 8

	// peakFrac is the share of the strongest peak's persistence a peak
	// needs to count as a beat
	peakFrac = 0.1
)

// DetectBeats finds energy peaks in the summed DWT detail envelope of the
// first channel.
func (d *DSPAnalyzer) DetectBeats(ctx context.Context, pcm *codec.PCM, sampleRate int) (float32, []uint32, error) {
	frames := pcm.Frames()
	if frames == 0 {
		return 0, nil, nil
	}

	x := make([]float64, nextPow2(max(frames, minDWTLen)))
	copy(x, pcm.MonoFloat64())

	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}

	db4 := dwt.Daubechies4(x, dwtLevel)
	absX := godsp.AbsAll(db4.GetCoefficients())
	dsX := godsp.DownSampleAll(absX)
	sumX := godsp.SumVectors(dsX)
	avg := godsp.Average(sumX)
	if avg == 0 {
		// digital silence
		return 0, nil, nil
	}
	sumX = godsp.DivS(sumX, avg)

	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}

	sep := int(d.peakSeparation().Milliseconds()) * sampleRate / (envScale * 1000)
	if sep <= 0 {
		sep = 1
	}

	pks := separate(sumX, persistentPeaks(sumX), sep)

	beats := make([]uint32, 0, len(pks))
	for _, p := range pks {
		f := p * envScale
		if f >= frames {
			continue
		}
		beats = append(beats, uint32(f))
	}

	return tempoOf(beats, sampleRate), beats, nil
}

// persistentPeaks returns the envelope indices whose peak persistence is at
// least peakFrac of the strongest finite one.
func persistentPeaks(env []float64) []int {
	idx := godsp.GetPeaks(env).GetIndices(peakFrac)
	if len(idx) > 0 {
		return idx
	}
	// a single peak has no finite persistence to compare against
	best := 0
	for i, v := range env {
		if v > env[best] {
			best = i
		}
	}
	if env[best] <= 0 {
		return nil
	}
	return []int{best}
}

// separate keeps the strongest candidates so that no two are closer than
// sep envelope samples, and returns them in ascending order.
func separate(env []float64, cands []int, sep int) []int {
	byHeight := append([]int(nil), cands...)
	sort.SliceStable(byHeight, func(i, j int) bool { return env[byHeight[i]] > env[byHeight[j]] })

	var kept []int
	for _, c := range byHeight {
		ok := true
		for _, k := range kept {
			if c-k < sep && k-c < sep {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, c)
		}
	}
	sort.Ints(kept)
	return kept
}

// tempoOf is 60 s over the median beat interval.
func tempoOf(beats []uint32, sampleRate int) float32 {
	if len(beats) < 2 {
		return 0
	}
	iv := make([]int, len(beats)-1)
	for i := 1; i < len(beats); i++ {
		iv[i-1] = int(beats[i] - beats[i-1])
	}
	sort.Ints(iv)
	med := iv[len(iv)/2]
	if med == 0 {
		return 0
	}
	return float32(60 * float64(sampleRate) / float64(med))
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
