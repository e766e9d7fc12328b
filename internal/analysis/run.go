/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package analysis

import (
	"context"
	"fmt"

	"hdxloop/internal/asset"
	"hdxloop/pkg/spec"
)

// Run analyzes a and completes it. The caller must already hold the
// Processing state through a.BeginAnalysis. Any error fails the attempt.
func Run(ctx context.Context, an Analyzer, a *asset.Asset, batch int) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("%w: %s: %w", ErrAnalysis, a.Name(), err)
			a.Fail(err)
		}
	}()

	if batch <= 0 {
		batch = spec.FeatureBatchSize
	}

	pcm, err := a.PCM()
	if err != nil {
		return err
	}
	sr := pcm.SampleRate

	tempo, beats, err := an.DetectBeats(ctx, pcm, sr)
	if err != nil {
		return fmt.Errorf("detect beats: %w", err)
	}

	windows := BuildWindows(pcm, beats, sr)
	features := make([][]float32, 0, len(windows))
	for i := 0; i < len(windows); i += batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(i+batch, len(windows))
		out, err := an.ExtractFeatures(ctx, windows[i:end], sr)
		if err != nil {
			return fmt.Errorf("extract features: %w", err)
		}
		features = append(features, out...)
	}

	if len(features) != len(beats) {
		return fmt.Errorf("%w: %d features for %d beats", ErrFeatureCount, len(features), len(beats))
	}
	for i, f := range features {
		if len(f) != spec.FeatureDim {
			return fmt.Errorf("%w: beat %d has %d values", ErrFeatureDim, i, len(f))
		}
	}

	return a.Complete(asset.Analysis{Tempo: tempo, Beats: beats, Features: features})
}
