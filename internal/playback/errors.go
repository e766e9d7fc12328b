/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package playback

import "errors"

var (
	ErrDevice         = errors.New("output device error")
	ErrNotReady       = errors.New("clip analysis is not ready")
	ErrBeatOutOfRange = errors.New("beat ordinal out of range")
)
