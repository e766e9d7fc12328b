/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package playback

import "sync"

// Lookup maps clip ids to the track holding them.
type Lookup struct {
	mtx   sync.RWMutex
	owner map[uint64]*Track
}

func newLookup() *Lookup {
	return &Lookup{owner: make(map[uint64]*Track)}
}

func (l *Lookup) put(id uint64, t *Track) {
	l.mtx.Lock()
	l.owner[id] = t
	l.mtx.Unlock()
}

// Find returns the clip and its track. Ids missing from the map are
// searched for in tracks.
func (l *Lookup) Find(id uint64, tracks []*Track) (*Clip, *Track, bool) {
	l.mtx.RLock()
	t, ok := l.owner[id]
	l.mtx.RUnlock()

	if ok {
		if c, ok := t.Clip(id); ok {
			return c, t, true
		}
	}

	for _, t := range tracks {
		if c, ok := t.Clip(id); ok {
			l.put(id, t)
			return c, t, true
		}
	}
	return nil, nil, false
}
