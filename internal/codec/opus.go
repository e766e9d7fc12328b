/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/hraban/opus"
)

// opus always decodes at 48 kHz regardless of the input rate in the header
const opusRate = 48000

// Opus decodes Ogg Opus files through libopusfile.
type Opus struct{}

func (Opus) Decode(r io.ReadSeeker) (*PCM, error) {
	head := make([]byte, 512)
	n, _ := io.ReadFull(r, head)
	channels, err := opusChannels(head[:n])
	if err != nil {
		return nil, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	s, err := opus.NewStream(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	defer s.Close()

	// 120 ms is the largest opus frame
	buf := make([]float32, 5760*channels)
	var samples []float32
	for {
		n, err := s.ReadFloat32(buf)
		if n > 0 {
			samples = append(samples, buf[:n*channels]...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if n == 0 {
			break
		}
	}

	return &PCM{
		SampleRate: opusRate,
		Channels:   channels,
		Samples:    samples,
	}, nil
}

// opusChannels reads the channel count from the OpusHead packet.
func opusChannels(head []byte) (int, error) {
	idx := bytes.Index(head, []byte("OpusHead"))
	// magic(8) version(1) channels(1)
	if idx < 0 || idx+10 > len(head) {
		return 0, fmt.Errorf("%w: missing OpusHead", ErrInvalidFile)
	}
	ch := int(head[idx+9])
	if ch < 1 || ch > 2 {
		return 0, fmt.Errorf("%w: %d channel opus", ErrInvalidFile, ch)
	}
	return ch, nil
}
