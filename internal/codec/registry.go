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
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Format keys.
const (
	FormatWAV    = "wav"
	FormatAIFF   = "aiff"
	FormatMP3    = "mp3"
	FormatVorbis = "ogg vorbis"
	FormatOpus   = "ogg opus"
)

// Decoder turns a whole encoded file into PCM.
type Decoder interface {
	Decode(r io.ReadSeeker) (*PCM, error)
}

// DecoderFunc adapts a plain function to Decoder.
type DecoderFunc func(r io.ReadSeeker) (*PCM, error)

func (f DecoderFunc) Decode(r io.ReadSeeker) (*PCM, error) { return f(r) }

// Registry for decoders by format key.
type Registry struct {
	codecs map[string]Decoder
	mtx    sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{codecs: make(map[string]Decoder)}
}

// DefaultRegistry knows every format this package can decode.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(FormatWAV, WAV{})
	r.Register(FormatAIFF, AIFF{})
	r.Register(FormatMP3, MP3{})
	r.Register(FormatVorbis, Vorbis{})
	r.Register(FormatOpus, Opus{})
	return r
}

func (r *Registry) Register(format string, d Decoder) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.codecs[format] = d
}

func (r *Registry) Get(format string) (Decoder, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	d, ok := r.codecs[format]
	return d, ok
}

// Formats lists the registered keys, sorted.
func (r *Registry) Formats() []string {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	out := make([]string, 0, len(r.codecs))
	for k := range r.codecs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Decode sniffs the format of data (falling back to the extension of name)
// and decodes it.
func (r *Registry) Decode(name string, data []byte) (*PCM, error) {
	format := Detect(name, data)
	d, ok := r.Get(format)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, filepath.Base(name))
	}

	pcm, err := d.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", format, err)
	}
	if pcm.SampleRate <= 0 || pcm.Channels <= 0 {
		return nil, fmt.Errorf("decode %s: %w: %d Hz, %d channels", format, ErrInvalidFile, pcm.SampleRate, pcm.Channels)
	}
	if pcm.Frames() == 0 {
		return nil, fmt.Errorf("decode %s: %w", format, ErrEmptyStream)
	}
	return pcm, nil
}

// Detect picks a format key from magic bytes, then from the file extension.
// It returns "" when nothing matches.
func Detect(name string, head []byte) string {
	switch {
	case len(head) >= 12 && string(head[:4]) == "RIFF" && string(head[8:12]) == "WAVE":
		return FormatWAV
	case len(head) >= 12 && string(head[:4]) == "FORM" &&
		(string(head[8:12]) == "AIFF" || string(head[8:12]) == "AIFC"):
		return FormatAIFF
	case len(head) >= 4 && string(head[:4]) == "OggS":
		// the OpusHead packet sits in the first page
		probe := head
		if len(probe) > 512 {
			probe = probe[:512]
		}
		if bytes.Contains(probe, []byte("OpusHead")) {
			return FormatOpus
		}
		return FormatVorbis
	case len(head) >= 3 && string(head[:3]) == "ID3":
		return FormatMP3
	case len(head) >= 2 && head[0] == 0xFF && head[1]&0xE0 == 0xE0:
		return FormatMP3
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".wav", ".wave":
		return FormatWAV
	case ".aif", ".aiff", ".aifc":
		return FormatAIFF
	case ".mp3":
		return FormatMP3
	case ".ogg", ".oga":
		return FormatVorbis
	case ".opus":
		return FormatOpus
	}
	return ""
}
