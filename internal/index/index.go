/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

// Package index is a small exact nearest-neighbour index over beat feature
// vectors using cosine distance.
package index

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
)

var (
	ErrIndex     = errors.New("index error")
	ErrCapacity  = fmt.Errorf("%w: capacity exhausted", ErrIndex)
	ErrDimension = fmt.Errorf("%w: dimension mismatch", ErrIndex)
	ErrEmpty     = fmt.Errorf("%w: index is empty", ErrIndex)
)

// Match is one search hit.
type Match struct {
	Key      uint64
	Distance float32
}

// Index stores vectors of a fixed dimension under uint64 keys.
type Index struct {
	dim int

	mtx      sync.RWMutex
	capacity int
	keys     []uint64
	vecs     [][]float32
	norms    []float64
	slot     map[uint64]int
}

// New creates an index for dim-sized vectors with room for capacity keys.
func New(dim, capacity int) *Index {
	return &Index{
		dim:      dim,
		capacity: capacity,
		keys:     make([]uint64, 0, capacity),
		vecs:     make([][]float32, 0, capacity),
		norms:    make([]float64, 0, capacity),
		slot:     make(map[uint64]int, capacity),
	}
}

func (x *Index) Dim() int { return x.dim }

func (x *Index) Len() int {
	x.mtx.RLock()
	defer x.mtx.RUnlock()
	return len(x.keys)
}

func (x *Index) Capacity() int {
	x.mtx.RLock()
	defer x.mtx.RUnlock()
	return x.capacity
}

// Reserve grows the capacity to at least n.
func (x *Index) Reserve(n int) {
	x.mtx.Lock()
	defer x.mtx.Unlock()
	if n > x.capacity {
		x.capacity = n
	}
}

// Add stores a copy of vec under key. An existing key is overwritten in
// place and does not use capacity.
func (x *Index) Add(key uint64, vec []float32) error {
	if len(vec) != x.dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimension, len(vec), x.dim)
	}
	v := append([]float32(nil), vec...)
	n := norm(v)

	x.mtx.Lock()
	defer x.mtx.Unlock()

	if i, ok := x.slot[key]; ok {
		x.vecs[i] = v
		x.norms[i] = n
		return nil
	}
	if len(x.keys) >= x.capacity {
		return fmt.Errorf("%w: %d entries", ErrCapacity, x.capacity)
	}

	x.slot[key] = len(x.keys)
	x.keys = append(x.keys, key)
	x.vecs = append(x.vecs, v)
	x.norms = append(x.norms, n)
	return nil
}

// Search returns up to k entries closest to vec, nearest first. Equal
// distances are ordered by key.
func (x *Index) Search(vec []float32, k int) ([]Match, error) {
	if len(vec) != x.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimension, len(vec), x.dim)
	}
	qn := norm(vec)

	x.mtx.RLock()
	if len(x.keys) == 0 {
		x.mtx.RUnlock()
		return nil, ErrEmpty
	}
	all := make([]Match, len(x.keys))
	for i, key := range x.keys {
		all[i] = Match{Key: key, Distance: cosine(vec, qn, x.vecs[i], x.norms[i])}
	}
	x.mtx.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].Distance != all[j].Distance {
			return all[i].Distance < all[j].Distance
		}
		return all[i].Key < all[j].Key
	})

	if k < 0 {
		k = 0
	}
	if k < len(all) {
		all = all[:k]
	}
	return all, nil
}

func norm(v []float32) float64 {
	var s float64
	for _, f := range v {
		s += float64(f) * float64(f)
	}
	return math.Sqrt(s)
}

// cosine distance, 1 - cos. A zero vector is at distance 1 from everything.
func cosine(a []float32, an float64, b []float32, bn float64) float32 {
	if an == 0 || bn == 0 {
		return 1
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(1 - dot/(an*bn))
}
