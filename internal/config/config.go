/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"hdxloop/pkg/spec"
)

var ErrInvalid = errors.New("invalid config")

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	// Output device
	SampleRate     int
	BufferDuration time.Duration
	ResampleQual   int // beep resampler quality, 1..64

	// Transport
	SocketPath string
	HTTPAddr   string // empty disables HTTP

	LogLevel string

	// Beat index / analysis
	IndexCapacity  int
	FeatureBatch   int
	SeedNeighbors  int
	PeakSeparation time.Duration
}

// Load reads configuration from environment variables with sane defaults.
func Load() Config {
	return Config{
		SampleRate:     envInt("HDX_SAMPLE_RATE", spec.SampleRate),
		BufferDuration: envDur("HDX_BUFFER_MS", spec.BufferMs*time.Millisecond),
		ResampleQual:   envInt("HDX_RESAMPLE_QUALITY", 4),

		SocketPath: envStr("HDX_SOCKET", "/tmp/hdx-loop.sock"),
		HTTPAddr:   envStr("HDX_HTTP_ADDR", ":7420"),

		LogLevel: envStr("HDX_LOG_LEVEL", "info"),

		IndexCapacity:  envInt("HDX_INDEX_CAPACITY", spec.IndexReserve),
		FeatureBatch:   envInt("HDX_FEATURE_BATCH", spec.FeatureBatchSize),
		SeedNeighbors:  envInt("HDX_SEED_NEIGHBORS", spec.SeedNeighbors),
		PeakSeparation: envDur("HDX_PEAK_SEP_MS", 250*time.Millisecond),
	}
}

// Default is Load without looking at the environment.
func Default() Config {
	return Config{
		SampleRate:     spec.SampleRate,
		BufferDuration: spec.BufferMs * time.Millisecond,
		ResampleQual:   4,
		SocketPath:     "/tmp/hdx-loop.sock",
		HTTPAddr:       ":7420",
		LogLevel:       "info",
		IndexCapacity:  spec.IndexReserve,
		FeatureBatch:   spec.FeatureBatchSize,
		SeedNeighbors:  spec.SeedNeighbors,
		PeakSeparation: 250 * time.Millisecond,
	}
}

// Validate checks the configuration for obvious mistakes.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalid, c.SampleRate)
	}
	if c.BufferDuration <= 0 {
		return fmt.Errorf("%w: buffer duration must be positive, got %v", ErrInvalid, c.BufferDuration)
	}
	if c.ResampleQual < 1 || c.ResampleQual > 64 {
		return fmt.Errorf("%w: resample quality must be in 1..64, got %d", ErrInvalid, c.ResampleQual)
	}
	if c.IndexCapacity <= 0 {
		return fmt.Errorf("%w: index capacity must be positive, got %d", ErrInvalid, c.IndexCapacity)
	}
	if c.FeatureBatch <= 0 {
		return fmt.Errorf("%w: feature batch must be positive, got %d", ErrInvalid, c.FeatureBatch)
	}
	// the auto loop needs the second-ranked neighbour
	if c.SeedNeighbors < 2 {
		return fmt.Errorf("%w: seed neighbours must be at least 2, got %d", ErrInvalid, c.SeedNeighbors)
	}
	if c.PeakSeparation <= 0 {
		return fmt.Errorf("%w: peak separation must be positive, got %v", ErrInvalid, c.PeakSeparation)
	}
	return nil
}

// BufferFrames is the device buffer length in frames.
func (c Config) BufferFrames() int {
	return int(c.BufferDuration.Seconds() * float64(c.SampleRate))
}

func envStr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// envDur reads a whole number of milliseconds.
func envDur(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Millisecond
		}
	}
	return fallback
}
