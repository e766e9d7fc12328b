/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package codec

import (
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint identifies raw file content, independent of its path.
func Fingerprint(data []byte) string {
	sum := blake2b.Sum256(data)
	return fmt.Sprintf("HDXL-%x", sum[:12])
}
