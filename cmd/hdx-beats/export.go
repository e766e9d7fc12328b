/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"hdxloop/internal/analysis"
	"hdxloop/internal/asset"
)

type BeatFile struct {
	Path       string   `json:"path"`
	Digest     string   `json:"digest"`
	SampleRate int      `json:"sampleRate"`
	Tempo      float32  `json:"tempo"`
	Beats      []uint32 `json:"beats"`
}

// analyzeFile decodes path, detects its beats and writes the JSON next to
// it, or into outDir when set. It returns the written path.
func analyzeFile(ctx context.Context, an *analysis.DSPAnalyzer, path, outDir string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	a := asset.New(path, data, nil)
	pcm, err := a.PCM()
	if err != nil {
		return "", err
	}

	tempo, beats, err := an.DetectBeats(ctx, pcm, pcm.SampleRate)
	if err != nil {
		return "", err
	}
	if beats == nil {
		beats = []uint32{}
	}

	dir := outDir
	if dir == "" {
		dir = filepath.Dir(path)
	}
	dst := filepath.Join(dir, a.Name()+".beats.json")

	out, err := json.MarshalIndent(BeatFile{
		Path:       path,
		Digest:     a.Digest(),
		SampleRate: pcm.SampleRate,
		Tempo:      tempo,
		Beats:      beats,
	}, "", "  ")
	if err != nil {
		return "", err
	}
	return dst, os.WriteFile(dst, out, 0o644)
}
