/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

// Package analysis runs beat detection and per-beat feature extraction for
// assets in the background.
package analysis

import (
	"context"

	"hdxloop/internal/codec"
)

// Analyzer is the beat analysis backend.
type Analyzer interface {
	// DetectBeats returns the tempo in BPM and beat positions in frames,
	// ascending.
	DetectBeats(ctx context.Context, pcm *codec.PCM, sampleRate int) (float32, []uint32, error)

	// ExtractFeatures returns one vector per window, in window order.
	ExtractFeatures(ctx context.Context, windows [][]float32, sampleRate int) ([][]float32, error)
}
