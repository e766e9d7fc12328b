/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

// Package asset holds decoded audio files shared by every clip that plays
// them, together with their beat analysis state.
package asset

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"hdxloop/internal/codec"
)

var ErrNotProcessing = errors.New("asset is not being analyzed")

// Status of the beat analysis for an asset.
type Status int

const (
	Unanalyzed Status = iota
	Processing
	Ready
)

func (s Status) String() string {
	switch s {
	case Unanalyzed:
		return "unanalyzed"
	case Processing:
		return "processing"
	case Ready:
		return "ready"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Analysis is the result of a completed analysis.
type Analysis struct {
	Tempo    float32
	Beats    []uint32    // beat positions in frames, ascending
	Features [][]float32 // one vector per beat, same order
}

func (a Analysis) clone() Analysis {
	out := Analysis{Tempo: a.Tempo}
	out.Beats = append([]uint32(nil), a.Beats...)
	out.Features = make([][]float32, len(a.Features))
	for i, f := range a.Features {
		out.Features[i] = append([]float32(nil), f...)
	}
	return out
}

// attempt is one Processing period. done closes when it ends.
type attempt struct {
	done chan struct{}
	err  error
}

// Asset is one audio file. Raw bytes and decoded PCM never change after
// load; only the analysis state does.
type Asset struct {
	path   string
	data   []byte
	digest string
	reg    *codec.Registry

	decodeOnce sync.Once
	pcm        *codec.PCM
	decodeErr  error

	mtx      sync.Mutex
	status   Status
	analysis Analysis
	current  *attempt
}

// New wraps raw file content. Decoding is deferred to the first PCM call.
func New(path string, data []byte, reg *codec.Registry) *Asset {
	if reg == nil {
		reg = codec.DefaultRegistry()
	}
	return &Asset{
		path:   path,
		data:   data,
		digest: codec.Fingerprint(data),
		reg:    reg,
	}
}

func (a *Asset) Path() string   { return a.path }
func (a *Asset) Digest() string { return a.digest }
func (a *Asset) Bytes() []byte  { return a.data }

// Name is the file name without directory or extension.
func (a *Asset) Name() string {
	base := filepath.Base(a.path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// PCM decodes the asset once and returns the shared result.
func (a *Asset) PCM() (*codec.PCM, error) {
	a.decodeOnce.Do(func() {
		a.pcm, a.decodeErr = a.reg.Decode(a.path, a.data)
	})
	return a.pcm, a.decodeErr
}

func (a *Asset) Status() Status {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	return a.status
}

// BeginAnalysis moves Unanalyzed to Processing. It reports false when
// another attempt is running or the asset is already Ready.
func (a *Asset) BeginAnalysis() bool {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	if a.status != Unanalyzed {
		return false
	}
	a.status = Processing
	a.current = &attempt{done: make(chan struct{})}
	return true
}

// Complete stores the result and wakes every waiter.
func (a *Asset) Complete(res Analysis) error {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	if a.status != Processing {
		return ErrNotProcessing
	}
	a.status = Ready
	a.analysis = res.clone()
	close(a.current.done)
	a.current = nil
	return nil
}

// Fail drops the attempt back to Unanalyzed and wakes waiters with err.
func (a *Asset) Fail(err error) {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	if a.status != Processing {
		return
	}
	if err == nil {
		err = errors.New("analysis failed")
	}
	a.status = Unanalyzed
	a.current.err = err
	close(a.current.done)
	a.current = nil
}

// Wait blocks until the asset is Ready, the running attempt fails, or ctx
// ends. An asset that is not being analyzed returns ErrNotProcessing.
func (a *Asset) Wait(ctx context.Context) (Analysis, error) {
	a.mtx.Lock()
	switch a.status {
	case Ready:
		res := a.analysis.clone()
		a.mtx.Unlock()
		return res, nil
	case Unanalyzed:
		a.mtx.Unlock()
		return Analysis{}, ErrNotProcessing
	}
	cur := a.current
	a.mtx.Unlock()

	select {
	case <-ctx.Done():
		return Analysis{}, ctx.Err()
	case <-cur.done:
	}

	if cur.err != nil {
		return Analysis{}, cur.err
	}
	return a.Analysis()
}

// Analysis returns a copy of the result when Ready.
func (a *Asset) Analysis() (Analysis, error) {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	if a.status != Ready {
		return Analysis{}, fmt.Errorf("asset %s is %s", a.Name(), a.status)
	}
	return a.analysis.clone(), nil
}

// Snapshot is a point-in-time view of the analysis state.
type Snapshot struct {
	Path   string
	Digest string
	Status Status
	Result Analysis
}

func (a *Asset) Snapshot() Snapshot {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	s := Snapshot{Path: a.path, Digest: a.digest, Status: a.status}
	if a.status == Ready {
		s.Result = a.analysis.clone()
	}
	return s
}
