/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package analysis

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"hdxloop/internal/asset"
	"hdxloop/internal/audiotest"
	"hdxloop/internal/codec"
	"hdxloop/pkg/spec"
)

// fakeAnalyzer returns fixed beats and a feature per window whose first
// value is the window's first non-zero sample.
type fakeAnalyzer struct {
	beats   []uint32
	tempo   float32
	short   bool
	mtx     sync.Mutex
	batches []int
}

func (f *fakeAnalyzer) DetectBeats(context.Context, *codec.PCM, int) (float32, []uint32, error) {
	return f.tempo, f.beats, nil
}

func (f *fakeAnalyzer) ExtractFeatures(_ context.Context, windows [][]float32, _ int) ([][]float32, error) {
	f.mtx.Lock()
	f.batches = append(f.batches, len(windows))
	f.mtx.Unlock()

	n := len(windows)
	if f.short {
		n--
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = make([]float32, spec.FeatureDim)
		out[i][0] = float32(i + 1)
	}
	return out, nil
}

func rampPCM(frames, sr int) *codec.PCM {
	s := make([]float32, frames)
	for i := range s {
		s[i] = float32(i)
	}
	return &codec.PCM{SampleRate: sr, Channels: 1, Samples: s}
}

func TestBuildWindows(t *testing.T) {
	t.Parallel()

	const sr = 10
	pcm := rampPCM(50, sr)
	w := BuildWindows(pcm, []uint32{0, 25, 45}, sr)

	if len(w) != 3 {
		t.Fatalf("got %d windows", len(w))
	}
	for i := range w {
		if len(w[i]) != 2*sr+1 {
			t.Fatalf("window %d has %d samples, want %d", i, len(w[i]), 2*sr+1)
		}
	}

	// beat 0: ten samples of leading silence, then frames 0..10
	for j := 0; j < sr; j++ {
		if w[0][j] != 0 {
			t.Fatalf("window 0 sample %d = %v, want padding", j, w[0][j])
		}
	}
	if w[0][sr] != 0 || w[0][sr+1] != 1 || w[0][2*sr] != 10 {
		t.Errorf("window 0 tail = %v", w[0][sr:])
	}

	// beat 25: frames 15..35
	if w[1][0] != 15 || w[1][2*sr] != 35 {
		t.Errorf("window 1 = %v", w[1])
	}

	// beat 45: frames 35..49 then trailing silence
	if w[2][0] != 35 || w[2][14] != 49 || w[2][15] != 0 {
		t.Errorf("window 2 = %v", w[2])
	}
}

func newAsset(t *testing.T) *asset.Asset {
	t.Helper()
	path := audiotest.WriteWAV(t, t.TempDir(), "a.wav", 8000, 1, audiotest.Sine(8000, 1, 8000, 220))
	return asset.New(path, audiotest.ReadFile(t, path), nil)
}

func TestRunBatchesFeatures(t *testing.T) {
	t.Parallel()

	beats := make([]uint32, 23)
	for i := range beats {
		beats[i] = uint32(i * 300)
	}
	an := &fakeAnalyzer{beats: beats, tempo: 96}
	a := newAsset(t)
	a.BeginAnalysis()

	if err := Run(context.Background(), an, a, 10); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := an.batches; len(got) != 3 || got[0] != 10 || got[1] != 10 || got[2] != 3 {
		t.Errorf("batches = %v, want [10 10 3]", got)
	}

	res, err := a.Analysis()
	if err != nil {
		t.Fatalf("Analysis: %v", err)
	}
	if res.Tempo != 96 || len(res.Features) != 23 {
		t.Fatalf("result tempo=%v features=%d", res.Tempo, len(res.Features))
	}
	// batch order is preserved
	if res.Features[10][0] != 1 || res.Features[22][0] != 3 {
		t.Errorf("features out of order: %v %v", res.Features[10][0], res.Features[22][0])
	}
}

func TestRunFailureResetsAsset(t *testing.T) {
	t.Parallel()

	an := &fakeAnalyzer{beats: []uint32{0, 100}, short: true}
	a := newAsset(t)
	a.BeginAnalysis()

	err := Run(context.Background(), an, a, 10)
	if !errors.Is(err, ErrAnalysis) || !errors.Is(err, ErrFeatureCount) {
		t.Fatalf("Run err = %v, want ErrAnalysis wrapping ErrFeatureCount", err)
	}
	if a.Status() != asset.Unanalyzed {
		t.Errorf("status = %v, want unanalyzed", a.Status())
	}
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := newAsset(t)
	a.BeginAnalysis()
	err := Run(ctx, &fakeAnalyzer{beats: []uint32{0}}, a, 10)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run err = %v, want canceled", err)
	}
	if a.Status() != asset.Unanalyzed {
		t.Errorf("status = %v", a.Status())
	}
}

func TestJobs(t *testing.T) {
	t.Parallel()

	j := NewJobs(nil)

	ok := j.Go("ok", func(context.Context) error { return nil })
	blocked := j.Go("blocked", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	if ok.ID == "" || ok.ID == blocked.ID {
		t.Fatalf("bad ids %q %q", ok.ID, blocked.ID)
	}

	<-ok.Done()
	if ok.Err() != nil {
		t.Errorf("ok.Err() = %v", ok.Err())
	}
	if blocked.Err() != nil {
		t.Error("Err() of a running job should be nil")
	}

	blocked.Cancel()
	select {
	case <-blocked.Done():
	case <-time.After(time.Second):
		t.Fatal("cancelled job did not stop")
	}
	if !errors.Is(blocked.Err(), context.Canceled) {
		t.Errorf("blocked.Err() = %v", blocked.Err())
	}

	j.CancelAll()
	late := j.Go("late", func(ctx context.Context) error { return ctx.Err() })
	j.Wait()
	if !errors.Is(late.Err(), context.Canceled) {
		t.Errorf("job started after CancelAll got %v", late.Err())
	}
	if j.Active() != 0 {
		t.Errorf("Active = %d after Wait", j.Active())
	}
}

func TestDSPAnalyzerFindsClicks(t *testing.T) {
	t.Parallel()

	const sr = 8000
	path := audiotest.WriteWAV(t, t.TempDir(), "clicks.wav", sr, 1, audiotest.Clicks(4*sr, 1, sr/2))
	pcm, err := codec.DefaultRegistry().Decode(path, audiotest.ReadFile(t, path))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	const period = sr / 2
	d := NewDSPAnalyzer(200 * time.Millisecond)
	tempo, beats, err := d.DetectBeats(context.Background(), pcm, sr)
	if err != nil {
		t.Fatalf("DetectBeats: %v", err)
	}
	if len(beats) < 7 || len(beats) > 8 {
		t.Fatalf("found %d beats in 8 clicks: %v", len(beats), beats)
	}
	for i, b := range beats {
		if int(b) >= pcm.Frames() {
			t.Errorf("beat %d = %d past the end", i, b)
		}
		if i > 0 && b <= beats[i-1] {
			t.Errorf("beats not ascending at %d: %v", i, beats)
		}
		// nearest click onset
		click := (int(b) + period/2) / period * period
		if off := int(b) - click; off < -200 || off > 200 {
			t.Errorf("beat %d = %d is %d frames from the click at %d", i, b, off, click)
		}
	}
	if math.Abs(float64(tempo)-120) > 3 {
		t.Errorf("tempo = %v, want about 120", tempo)
	}
}

func TestSeparateKeepsStrongest(t *testing.T) {
	t.Parallel()

	env := []float64{0, 5, 0, 3, 0, 0, 0, 0, 4, 0, 9, 0}
	got := separate(env, []int{1, 3, 8, 10}, 3)
	want := []int{1, 10}
	if len(got) != len(want) {
		t.Fatalf("separate = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("separate = %v, want %v", got, want)
		}
	}
}

func TestPersistentPeaksSinglePeak(t *testing.T) {
	t.Parallel()

	if got := persistentPeaks([]float64{0, 1, 4, 1, 0}); len(got) != 1 || got[0] != 2 {
		t.Errorf("persistentPeaks = %v, want [2]", got)
	}
	if got := persistentPeaks([]float64{0, 0, 0}); got != nil {
		t.Errorf("flat envelope peaks = %v, want none", got)
	}
}

func TestDSPAnalyzerSilence(t *testing.T) {
	t.Parallel()

	pcm := &codec.PCM{SampleRate: 8000, Channels: 1, Samples: make([]float32, 8000)}
	tempo, beats, err := NewDSPAnalyzer(0).DetectBeats(context.Background(), pcm, 8000)
	if err != nil || tempo != 0 || len(beats) != 0 {
		t.Errorf("silence: tempo=%v beats=%v err=%v", tempo, beats, err)
	}
}

func TestFeaturesAreUnitVectors(t *testing.T) {
	t.Parallel()

	const sr = 8000
	w := make([]float32, 2*sr+1)
	for i := range w {
		w[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / sr))
	}

	out, err := NewDSPAnalyzer(0).ExtractFeatures(context.Background(), [][]float32{w, make([]float32, 2*sr+1)}, sr)
	if err != nil {
		t.Fatalf("ExtractFeatures: %v", err)
	}
	if len(out) != 2 || len(out[0]) != spec.FeatureDim {
		t.Fatalf("shape = %d x %d", len(out), len(out[0]))
	}

	var norm float64
	for _, v := range out[0] {
		norm += float64(v) * float64(v)
	}
	if math.Abs(norm-1) > 1e-4 {
		t.Errorf("|v|^2 = %v, want 1", norm)
	}
	for _, v := range out[1] {
		if v != 0 {
			t.Fatal("silent window should give the zero vector")
		}
	}
}

func TestTempoOf(t *testing.T) {
	t.Parallel()

	if got := tempoOf([]uint32{0, 24000, 48000, 72000}, 48000); got != 120 {
		t.Errorf("tempo = %v, want 120", got)
	}
	if got := tempoOf([]uint32{5}, 48000); got != 0 {
		t.Errorf("single beat tempo = %v", got)
	}
}
