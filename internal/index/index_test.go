/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package index

import (
	"errors"
	"math/rand"
	"testing"
)

func unit(dim, hot int) []float32 {
	v := make([]float32, dim)
	v[hot] = 1
	return v
}

func TestSearchOrdersByDistanceThenKey(t *testing.T) {
	t.Parallel()

	x := New(4, 10)
	must(t, x.Add(7, []float32{1, 0, 0, 0}))
	must(t, x.Add(3, []float32{0, 1, 0, 0}))
	must(t, x.Add(5, []float32{0, 1, 0, 0}))
	must(t, x.Add(1, []float32{1, 1, 0, 0}))

	got, err := x.Search([]float32{0, 1, 0, 0}, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	wantKeys := []uint64{3, 5, 1, 7}
	if len(got) != len(wantKeys) {
		t.Fatalf("got %d matches", len(got))
	}
	for i, m := range got {
		if m.Key != wantKeys[i] {
			t.Fatalf("order = %v, want keys %v", got, wantKeys)
		}
	}
	if got[0].Distance != 0 || got[3].Distance != 1 {
		t.Errorf("distances = %v", got)
	}
}

func TestSearchIsDeterministicAcrossInsertOrder(t *testing.T) {
	t.Parallel()

	const dim, n = 16, 50
	rng := rand.New(rand.NewSource(1))
	vecs := make([][]float32, n)
	for i := range vecs {
		vecs[i] = make([]float32, dim)
		for j := range vecs[i] {
			// coarse values produce plenty of ties
			vecs[i][j] = float32(rng.Intn(3))
		}
	}

	a, b := New(dim, n), New(dim, n)
	for i := 0; i < n; i++ {
		must(t, a.Add(uint64(i), vecs[i]))
		must(t, b.Add(uint64(n-1-i), vecs[n-1-i]))
	}

	for q := 0; q < 5; q++ {
		ra, _ := a.Search(vecs[q], 10)
		rb, _ := b.Search(vecs[q], 10)
		for i := range ra {
			if ra[i] != rb[i] {
				t.Fatalf("query %d differs at %d: %v vs %v", q, i, ra[i], rb[i])
			}
		}
	}
}

func TestAddErrors(t *testing.T) {
	t.Parallel()

	x := New(3, 2)
	if err := x.Add(1, []float32{1, 2}); !errors.Is(err, ErrDimension) || !errors.Is(err, ErrIndex) {
		t.Errorf("short vector: %v", err)
	}
	must(t, x.Add(1, unit(3, 0)))
	must(t, x.Add(2, unit(3, 1)))
	if err := x.Add(3, unit(3, 2)); !errors.Is(err, ErrCapacity) {
		t.Errorf("over capacity: %v", err)
	}

	// replacing does not need room
	must(t, x.Add(1, unit(3, 2)))
	if x.Len() != 2 {
		t.Errorf("Len = %d after replace", x.Len())
	}
	got, _ := x.Search(unit(3, 2), 1)
	if got[0].Key != 1 || got[0].Distance != 0 {
		t.Errorf("replaced vector not used: %v", got)
	}

	x.Reserve(3)
	must(t, x.Add(3, unit(3, 0)))
	if x.Capacity() != 3 {
		t.Errorf("Capacity = %d", x.Capacity())
	}
}

func TestSearchErrors(t *testing.T) {
	t.Parallel()

	x := New(2, 4)
	if _, err := x.Search([]float32{1, 0}, 1); !errors.Is(err, ErrEmpty) {
		t.Errorf("empty: %v", err)
	}
	must(t, x.Add(1, []float32{0, 0}))
	if _, err := x.Search([]float32{1}, 1); !errors.Is(err, ErrDimension) {
		t.Errorf("dim: %v", err)
	}
	got, err := x.Search([]float32{1, 0}, 3)
	if err != nil || len(got) != 1 || got[0].Distance != 1 {
		t.Errorf("zero vector search = %v, %v", got, err)
	}
	if got, _ := x.Search([]float32{1, 0}, 0); len(got) != 0 {
		t.Errorf("k=0 returned %v", got)
	}
}

func TestAddCopiesInput(t *testing.T) {
	t.Parallel()

	x := New(2, 1)
	v := []float32{1, 0}
	must(t, x.Add(9, v))
	v[0], v[1] = 0, 1

	got, _ := x.Search([]float32{1, 0}, 1)
	if got[0].Distance != 0 {
		t.Error("index aliases the caller's slice")
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}
