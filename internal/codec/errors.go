/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package codec

import "errors"

var (
	ErrUnknownFormat       = errors.New("unknown audio format")
	ErrInvalidFile         = errors.New("invalid audio file")
	ErrUnsupportedBitDepth = errors.New("unsupported bit depth")
	ErrEmptyStream         = errors.New("decoded stream is empty")
)
