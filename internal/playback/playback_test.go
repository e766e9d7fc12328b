/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package playback

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/faiface/beep"

	"hdxloop/internal/audiotest"
	"hdxloop/internal/codec"
	"hdxloop/internal/config"
	"hdxloop/internal/index"
	"hdxloop/internal/log"
	"hdxloop/pkg/spec"
)

const testRate = 8000

// ======================================================
// Fakes
// ======================================================

// manualDevice lets the test pull the output by hand.
type manualDevice struct {
	mtx      sync.Mutex
	s        beep.Streamer
	openErr  error
	closed   bool
	bufferSz int
}

func (d *manualDevice) Open(_ beep.SampleRate, n int) error {
	d.bufferSz = n
	return d.openErr
}

func (d *manualDevice) Play(s beep.Streamer) { d.s = s }
func (d *manualDevice) Lock()                { d.mtx.Lock() }
func (d *manualDevice) Unlock()              { d.mtx.Unlock() }

func (d *manualDevice) Close() error {
	d.closed = true
	return nil
}

func (d *manualDevice) pull(n int) [][2]float64 {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	buf := make([][2]float64, n)
	d.s.Stream(buf)
	return buf
}

// fakeAnalyzer returns fixed beats and features. Every window list fits
// in one feature batch.
type fakeAnalyzer struct {
	beats    []uint32
	features [][]float32
	gate     chan struct{}

	calls atomic.Int32
}

func (f *fakeAnalyzer) DetectBeats(ctx context.Context, _ *codec.PCM, _ int) (float32, []uint32, error) {
	f.calls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return 0, nil, ctx.Err()
		}
	}
	return 120, f.beats, nil
}

func (f *fakeAnalyzer) ExtractFeatures(_ context.Context, windows [][]float32, _ int) ([][]float32, error) {
	return f.features[:len(windows)], nil
}

type recorder struct {
	mtx  sync.Mutex
	keys []string
	vals []any
}

func (r *recorder) Emit(key string, value any) {
	r.mtx.Lock()
	r.keys = append(r.keys, key)
	r.vals = append(r.vals, value)
	r.mtx.Unlock()
}

func (r *recorder) valuesFor(key string) []any {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	var out []any
	for i, k := range r.keys {
		if k == key {
			out = append(out, r.vals[i])
		}
	}
	return out
}

// ======================================================
// Helpers
// ======================================================

func vec(pairs ...float32) []float32 {
	v := make([]float32, spec.FeatureDim)
	for i := 0; i+1 < len(pairs); i += 2 {
		v[int(pairs[i])] = pairs[i+1]
	}
	return v
}

// seedAnalyzer: beat 0 is most similar to beat 2.
func seedAnalyzer() *fakeAnalyzer {
	return &fakeAnalyzer{
		beats: []uint32{0, 100, 250, 400},
		features: [][]float32{
			vec(0, 1),
			vec(1, 1),
			vec(0, 0.9, 1, 0.1),
			vec(2, 1),
		},
	}
}

func constWAV(t *testing.T, name string, frames int, value int) string {
	t.Helper()
	data := make([]int, frames)
	for i := range data {
		data[i] = value
	}
	return audiotest.WriteWAV(t, t.TempDir(), name, testRate, 1, data)
}

func newTestEngine(t *testing.T, an *fakeAnalyzer, em *recorder) (*Engine, *manualDevice) {
	t.Helper()

	cfg := config.Default()
	cfg.SampleRate = testRate
	cfg.BufferDuration = 10 * time.Millisecond

	svc := &Services{Analyzer: an, Logger: log.Discard()}
	if em != nil {
		svc.Emitter = em
	}

	dev := &manualDevice{}
	e, err := NewEngine(cfg, dev, svc)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })
	return e, dev
}

func waitDone(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for job")
	}
}

// ======================================================
// Tests
// ======================================================

func TestNewEngineDeviceError(t *testing.T) {
	t.Parallel()

	dev := &manualDevice{openErr: errors.New("no card")}
	_, err := NewEngine(config.Default(), dev, &Services{Logger: log.Discard()})
	if !errors.Is(err, ErrDevice) {
		t.Fatalf("err = %v, want ErrDevice", err)
	}
}

func TestEngineStartsPausedAndCountsFrames(t *testing.T) {
	t.Parallel()

	e, dev := newTestEngine(t, seedAnalyzer(), nil)
	if dev.bufferSz != 80 {
		t.Errorf("buffer = %d frames, want 80", dev.bufferSz)
	}
	if !e.Paused() {
		t.Fatal("engine should start paused")
	}

	dev.pull(128)
	if e.TotalFramesPlayed() != 0 {
		t.Errorf("paused engine counted %d frames", e.TotalFramesPlayed())
	}

	e.Play()
	out := dev.pull(256)
	for i, f := range out {
		if f != [2]float64{} {
			t.Fatalf("frame %d = %v, want silence from empty mixer", i, f)
		}
	}
	if e.TotalFramesPlayed() != 256 {
		t.Errorf("TotalFramesPlayed = %d, want 256", e.TotalFramesPlayed())
	}

	e.TogglePlayback()
	if !e.Paused() {
		t.Error("toggle did not pause")
	}
}

func TestTracksMixIndependently(t *testing.T) {
	t.Parallel()

	// no beats, so no loop gets seeded
	e, dev := newTestEngine(t, &fakeAnalyzer{}, nil)
	a := e.AddTrack("")
	b := e.AddTrack("")
	if a.Name() != "Track 1" || b.Name() != "Track 2" {
		t.Errorf("names = %q, %q", a.Name(), b.Name())
	}

	ca, err := NewClip(constWAV(t, "quarter.wav", 100, 8192), e.Services())
	if err != nil {
		t.Fatal(err)
	}
	cb, err := NewClip(constWAV(t, "half.wav", 300, 16384), e.Services())
	if err != nil {
		t.Fatal(err)
	}
	a.AddClip(ca)
	b.AddClip(cb)

	e.Play()
	out := dev.pull(400)
	check := func(i int, want float64) {
		t.Helper()
		if out[i][0] != want || out[i][1] != want {
			t.Fatalf("frame %d = %v, want %v", i, out[i], want)
		}
	}
	check(0, 0.75)
	check(99, 0.75)
	check(100, 0.5)
	check(299, 0.5)
	check(300, 0)
	check(399, 0)
}

func TestAutoLoopSeeding(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t, seedAnalyzer(), nil)
	tr := e.AddTrack("deck")

	c, err := NewClip(constWAV(t, "groove.wav", testRate, 1000), e.Services())
	if err != nil {
		t.Fatal(err)
	}
	tr.AddClip(c)

	jobs := tr.Jobs()
	if len(jobs) != 1 {
		t.Fatalf("track has %d jobs", len(jobs))
	}
	waitDone(t, jobs[0].Done())
	if err := jobs[0].Err(); err != nil {
		t.Fatalf("seed job: %v", err)
	}

	l := c.Source().Loop()
	if !l.Enabled() || *l.Start != 0 || *l.End != 250 {
		t.Fatalf("loop = %+v, want [0, 250)", l)
	}
	if tr.Index().Len() != 4 {
		t.Errorf("index has %d beats", tr.Index().Len())
	}

	s := c.Snapshot()
	if !s.Audio.LoopStart || *s.Audio.LoopEndFrame != 250 || s.Audio.Length != testRate {
		t.Errorf("snapshot audio = %+v", s.Audio)
	}
}

func TestSeedingGrowsSmallIndex(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t, seedAnalyzer(), nil)
	e.Services().IndexCapacity = 2
	tr := e.AddTrack("")
	if tr.Index().Capacity() != 2 {
		t.Fatalf("initial capacity = %d, want 2", tr.Index().Capacity())
	}

	c, err := NewClip(constWAV(t, "wide.wav", testRate, 1000), e.Services())
	if err != nil {
		t.Fatal(err)
	}
	tr.AddClip(c)
	waitDone(t, tr.Jobs()[0].Done())

	if tr.Index().Len() != 4 || tr.Index().Capacity() < 4 {
		t.Errorf("index len=%d cap=%d, want all 4 beats", tr.Index().Len(), tr.Index().Capacity())
	}
	if l := c.Source().Loop(); !l.Enabled() || *l.End != 250 {
		t.Errorf("loop = %+v, want end 250", l)
	}
}

func TestSchedulingUsesEnginePosition(t *testing.T) {
	t.Parallel()

	e, dev := newTestEngine(t, seedAnalyzer(), nil)
	e.Play()
	dev.pull(500)

	tr := e.AddTrack("")
	first, _ := NewClip(constWAV(t, "a.wav", 200, 0), e.Services())
	second, _ := NewClip(constWAV(t, "b.wav", 200, 0), e.Services())
	tr.AddClip(first)
	tr.AddClip(second)

	if got := first.StartAt(); got == nil || *got != 500 {
		t.Errorf("first start = %v, want 500", got)
	}
	if second.StartAt() != nil {
		t.Errorf("second start = %v, want unset", *second.StartAt())
	}
	if n, ok := tr.TotalFrames(); !ok || n != 400 {
		t.Errorf("TotalFrames = %d, %v", n, ok)
	}
}

func TestClipsOnOneTrackPlayBackToBack(t *testing.T) {
	t.Parallel()

	e, dev := newTestEngine(t, &fakeAnalyzer{}, nil)
	tr := e.AddTrack("")

	first, err := NewClip(constWAV(t, "first.wav", 100, 8192), e.Services())
	if err != nil {
		t.Fatal(err)
	}
	second, err := NewClip(constWAV(t, "second.wav", 150, 16384), e.Services())
	if err != nil {
		t.Fatal(err)
	}
	tr.AddClip(first)
	tr.AddClip(second)

	if got := tr.Clips(); len(got) != 2 || got[1] != second {
		t.Fatalf("track clips = %v", got)
	}

	e.Play()
	out := dev.pull(300)
	for i, f := range out {
		want := 0.0
		switch {
		case i < 100:
			want = 0.25
		case i < 250:
			want = 0.5
		}
		if f[0] != want || f[1] != want {
			t.Fatalf("frame %d = %v, want %v", i, f, want)
		}
	}
}

func TestAnalysisRunsOncePerAsset(t *testing.T) {
	t.Parallel()

	an := seedAnalyzer()
	an.gate = make(chan struct{})
	em := &recorder{}
	e, _ := newTestEngine(t, an, em)

	path := constWAV(t, "shared.wav", testRate, 1000)
	c1, err := NewClip(path, e.Services())
	if err != nil {
		t.Fatal(err)
	}
	c2, err := NewClip(path, e.Services())
	if err != nil {
		t.Fatal(err)
	}

	if c1.Asset() != c2.Asset() {
		t.Fatal("clips on one path have different assets")
	}
	if c1.ID() == c2.ID() || c1.ID() == 0 {
		t.Errorf("ids = %d, %d", c1.ID(), c2.ID())
	}
	if c1.AnalysisJob() == nil || c2.AnalysisJob() != nil {
		t.Fatal("want exactly one analysis job, started by the first clip")
	}

	close(an.gate)
	waitDone(t, c1.AnalysisJob().Done())

	if an.calls.Load() != 1 {
		t.Errorf("DetectBeats called %d times", an.calls.Load())
	}
	r1, _ := c1.Asset().Analysis()
	r2, _ := c2.Asset().Analysis()
	if len(r1.Beats) != 4 || len(r2.Beats) != 4 {
		t.Errorf("results = %v / %v", r1.Beats, r2.Beats)
	}

	states := em.valuesFor(spec.ClipStateKey("shared"))
	if len(states) != 2 || states[0] != spec.ClipProcessing || states[1] != spec.ClipProcessed {
		t.Errorf("clip states = %v", states)
	}
}

func TestTransitionBeats(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t, seedAnalyzer(), nil)
	tr := e.AddTrack("")

	an := seedAnalyzer()
	an.gate = make(chan struct{})
	e.Services().Analyzer = an

	c, _ := NewClip(constWAV(t, "t.wav", testRate, 1000), e.Services())
	if _, err := c.GetPreferredTransitionBeats(tr.Index(), 0, 3); !errors.Is(err, ErrNotReady) {
		t.Fatalf("before analysis: %v", err)
	}

	tr.AddClip(c)
	close(an.gate)
	waitDone(t, tr.Jobs()[0].Done())

	got, err := c.GetPreferredTransitionBeats(tr.Index(), 0, 3)
	if err != nil {
		t.Fatal(err)
	}
	want := []uint64{0, 2}
	for i, k := range want {
		if got[i].Key != k {
			t.Fatalf("matches = %v, want keys starting %v", got, want)
		}
	}
	if _, err := c.GetPreferredTransitionBeats(tr.Index(), 9, 3); !errors.Is(err, ErrBeatOutOfRange) {
		t.Errorf("ordinal 9: %v", err)
	}
	if _, err := c.GetPreferredTransitionBeats(index.New(spec.FeatureDim, 1), 0, 3); !errors.Is(err, index.ErrEmpty) {
		t.Errorf("empty index: %v", err)
	}
}

func TestEngineSeek(t *testing.T) {
	t.Parallel()

	em := &recorder{}
	e, dev := newTestEngine(t, seedAnalyzer(), em)
	tr := e.AddTrack("")

	ramp := audiotest.WriteWAV(t, t.TempDir(), "ramp.wav", testRate, 1, audiotest.Ramp(testRate, 1))
	c, err := NewClip(ramp, e.Services())
	if err != nil {
		t.Fatal(err)
	}
	tr.AddClip(c)

	if err := e.TrySeek(500 * time.Millisecond); err != nil {
		t.Fatalf("TrySeek: %v", err)
	}
	if e.TotalFramesPlayed() != 4000 {
		t.Errorf("clock = %d, want 4000", e.TotalFramesPlayed())
	}
	if c.Source().Position() != 4000 {
		t.Errorf("clip position = %d", c.Source().Position())
	}

	e.Play()
	out := dev.pull(1)
	if want := 4000.0 / 32768.0; out[0][0] != want {
		t.Errorf("first frame after seek = %v, want %v", out[0][0], want)
	}

	err = e.TrySeek(5 * time.Second)
	if err == nil {
		t.Fatal("seek past the clip should fail")
	}
	if c.Source().Position() != 4001 {
		t.Errorf("failed seek moved clip to %d", c.Source().Position())
	}
	if len(em.valuesFor(spec.KeyPlayback)) < 2 {
		t.Error("seek did not emit playback state")
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t, seedAnalyzer(), nil)
	t1 := e.AddTrack("")
	t2 := e.AddTrack("")

	c1, _ := NewClip(constWAV(t, "x.wav", 100, 0), e.Services())
	c2, _ := NewClip(constWAV(t, "y.wav", 100, 0), e.Services())
	t1.AddClip(c1)
	t2.AddClip(c2)

	if c, tr, ok := e.FindClip(c2.ID()); !ok || c != c2 || tr != t2 {
		t.Errorf("FindClip(%d) = %v %v %v", c2.ID(), c, tr, ok)
	}
	if _, _, ok := e.FindClip(999); ok {
		t.Error("FindClip hit an unknown id")
	}

	// a fresh lookup falls back to scanning tracks
	l := newLookup()
	if c, tr, ok := l.Find(c1.ID(), e.Tracks()); !ok || c != c1 || tr != t1 {
		t.Errorf("scan fallback = %v %v %v", c, tr, ok)
	}

	if last, ok := e.LastTrack(); !ok || last != t2 {
		t.Error("LastTrack is not the newest track")
	}
}

func TestTrackCloseDetachesQueue(t *testing.T) {
	t.Parallel()

	e, dev := newTestEngine(t, seedAnalyzer(), nil)
	tr := e.AddTrack("")
	c, _ := NewClip(constWAV(t, "loud.wav", 1000, 16384), e.Services())
	tr.AddClip(c)

	e.Play()
	if out := dev.pull(10); out[0][0] != 0.5 {
		t.Fatalf("frame = %v", out[0])
	}

	tr.Close()
	if out := dev.pull(10); out[0][0] != 0 {
		t.Errorf("closed track still audible: %v", out[0])
	}

	snap := tr.Snapshot()
	if snap.Current != nil {
		t.Errorf("closed track reports current clip %d", *snap.Current)
	}
}
