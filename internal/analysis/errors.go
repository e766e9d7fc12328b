/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package analysis

import "errors"

var (
	ErrAnalysis     = errors.New("analysis failed")
	ErrFeatureCount = errors.New("feature count does not match beat count")
	ErrFeatureDim   = errors.New("feature has wrong dimension")
)
