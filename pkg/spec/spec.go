/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package spec

const (
	// === IDENTITY & VERSIONING ===
	ServerName   = "HDX-Loop"
	VersionMajor = 1
	VersionMinor = 0

	// === ENGINE SPECS ===
	SampleRate = 48000
	Channels   = 2
	BufferMs   = 100

	// === BEAT INDEX ===
	FeatureDim       = 512
	IndexReserve     = 1000
	SeedNeighbors    = 5
	FeatureBatchSize = 10

	// === STATE SYNC ===
	StateSyncEvent = "state_sync_event"
	KeyTracks      = "tracks"
	KeyPlayback    = "playback"

	ClipProcessing = "processing"
	ClipProcessed  = "processed"
)

// ClipStateKey is the state-sync key carrying a clip's analysis status.
func ClipStateKey(name string) string {
	return "clip." + name + ".state"
}
