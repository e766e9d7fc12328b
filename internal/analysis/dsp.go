/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package analysis

import "time"

const defaultPeakSeparation = 250 * time.Millisecond

// DSPAnalyzer is the in-process Analyzer: DWT envelope peaks for beats,
// averaged FFT magnitudes for features.
type DSPAnalyzer struct {
	// PeakSeparation is the minimum distance between two beats.
	PeakSeparation time.Duration
}

var _ Analyzer = (*DSPAnalyzer)(nil)

func NewDSPAnalyzer(sep time.Duration) *DSPAnalyzer {
	return &DSPAnalyzer{PeakSeparation: sep}
}

func (d *DSPAnalyzer) peakSeparation() time.Duration {
	if d.PeakSeparation <= 0 {
		return defaultPeakSeparation
	}
	return d.PeakSeparation
}
