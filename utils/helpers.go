package utils

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ScaleDimensions computes output (w, h) preserving aspect ratio.
// Pass 0 for either axis to calculate it from the other.
func ScaleDimensions(srcW, srcH, targetW, targetH int) (int, int) {
	if targetW == 0 && targetH == 0 {
		return srcW, srcH
	}
	if srcW == 0 || srcH == 0 {
		return targetW, targetH
	}
	if targetW == 0 {
		ratio := float64(targetH) / float64(srcH)
		return max(1, int(float64(srcW)*ratio)), targetH
	}
	if targetH == 0 {
		ratio := float64(targetW) / float64(srcW)
		return targetW, max(1, int(float64(srcH)*ratio))
	}
	return targetW, targetH
}

// Extension returns the extension of path without the leading dot, or "" if
// the final element has none.
func Extension(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimPrefix(ext, ".")
}

// FramePath returns the path used for frame n of a set of total frames.
// A single frame keeps path unchanged; otherwise "dir/stem.ext" becomes
// "dir/stem-n.ext".
func FramePath(path string, n, total int) string {
	if total <= 1 {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	return fmt.Sprintf("%s-%d%s", stem, n, ext)
}

// CloneBytes returns a copy of b (safe for use after the source buffer is released).
func CloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
