/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package codec

import (
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAV decodes RIFF/WAVE integer PCM.
type WAV struct{}

func (WAV) Decode(r io.ReadSeeker) (*PCM, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrInvalidFile
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, err
	}

	// 8-bit WAV is unsigned
	return fromIntBuffer(buf, int(dec.BitDepth), true)
}

// fromIntBuffer normalizes a go-audio integer buffer into float PCM.
func fromIntBuffer(buf *audio.IntBuffer, bitDepth int, unsigned8 bool) (*PCM, error) {
	if buf == nil || buf.Format == nil {
		return nil, ErrInvalidFile
	}

	var scale, offset float32
	switch bitDepth {
	case 8:
		scale = 128
		if unsigned8 {
			offset = 128
		}
	case 16, 24, 32:
		scale = float32(int64(1) << (bitDepth - 1))
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bitDepth)
	}

	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = (float32(v) - offset) / scale
	}

	return &PCM{
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
		Samples:    samples,
	}, nil
}
