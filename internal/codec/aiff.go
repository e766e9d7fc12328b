/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package codec

import (
	"io"

	"github.com/go-audio/aiff"
)

// AIFF decodes big-endian AIFF/AIFC integer PCM.
type AIFF struct{}

func (AIFF) Decode(r io.ReadSeeker) (*PCM, error) {
	dec := aiff.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrInvalidFile
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, err
	}

	return fromIntBuffer(buf, int(dec.BitDepth), false)
}
