/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package source

// LoopState describes an optional loop region in frames, end exclusive.
// It is replaced as a whole, never mutated.
type LoopState struct {
	Start       *uint32
	End         *uint32
	RepeatCount *uint16 // informational only
}

// Enabled reports whether both bounds are set.
func (l LoopState) Enabled() bool {
	return l.Start != nil && l.End != nil
}

func (l LoopState) clone() LoopState {
	out := LoopState{}
	if l.Start != nil {
		v := *l.Start
		out.Start = &v
	}
	if l.End != nil {
		v := *l.End
		out.End = &v
	}
	if l.RepeatCount != nil {
		v := *l.RepeatCount
		out.RepeatCount = &v
	}
	return out
}
