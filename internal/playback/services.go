/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package playback

import (
	"log/slog"

	"hdxloop/internal/analysis"
	"hdxloop/internal/asset"
	"hdxloop/internal/config"
	hlog "hdxloop/internal/log"
	"hdxloop/internal/statesync"
	"hdxloop/pkg/spec"
)

// Services are the shared collaborators of an engine and everything it
// creates.
type Services struct {
	Assets   *asset.Cache
	IDs      *IDAllocator
	Jobs     *analysis.Jobs
	Analyzer analysis.Analyzer
	Emitter  statesync.Emitter
	Logger   *slog.Logger

	FeatureBatch    int
	IndexCapacity   int
	SeedNeighbors   int
	ResampleQuality int
}

// NewServices wires the defaults for cfg. Emitter and Analyzer may be nil.
func NewServices(cfg config.Config, an analysis.Analyzer, em statesync.Emitter, logger *slog.Logger) *Services {
	logger = hlog.Or(logger)
	if an == nil {
		an = analysis.NewDSPAnalyzer(cfg.PeakSeparation)
	}
	return (&Services{
		Assets:          asset.NewCache(),
		IDs:             &IDAllocator{},
		Jobs:            analysis.NewJobs(logger),
		Analyzer:        an,
		Emitter:         em,
		Logger:          logger,
		FeatureBatch:    cfg.FeatureBatch,
		IndexCapacity:   cfg.IndexCapacity,
		SeedNeighbors:   cfg.SeedNeighbors,
		ResampleQuality: cfg.ResampleQual,
	}).withDefaults()
}

func (s *Services) withDefaults() *Services {
	if s.Assets == nil {
		s.Assets = asset.NewCache()
	}
	if s.IDs == nil {
		s.IDs = &IDAllocator{}
	}
	if s.Logger == nil {
		s.Logger = hlog.L()
	}
	if s.Jobs == nil {
		s.Jobs = analysis.NewJobs(s.Logger)
	}
	if s.Analyzer == nil {
		s.Analyzer = analysis.NewDSPAnalyzer(0)
	}
	if s.Emitter == nil {
		s.Emitter = statesync.Discard
	}
	if s.FeatureBatch <= 0 {
		s.FeatureBatch = spec.FeatureBatchSize
	}
	if s.IndexCapacity <= 0 {
		s.IndexCapacity = spec.IndexReserve
	}
	if s.SeedNeighbors < 2 {
		s.SeedNeighbors = spec.SeedNeighbors
	}
	if s.ResampleQuality <= 0 {
		s.ResampleQuality = 4
	}
	return s
}
