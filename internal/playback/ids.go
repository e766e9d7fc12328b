/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package playback

import "sync/atomic"

// IDAllocator hands out clip ids starting at 1.
type IDAllocator struct {
	last atomic.Uint64
}

func (a *IDAllocator) Next() uint64 { return a.last.Add(1) }
