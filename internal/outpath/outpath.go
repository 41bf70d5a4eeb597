// Package outpath derives output file names for finished jobs.
package outpath

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WithSuffix builds the default output path for src by appending
// _suffix before the extension, in the same directory:
// /a/clip.mp4 with suffix "small" becomes /a/clip_small.mp4.
func WithSuffix(src, suffix string) string {
	dir := filepath.Dir(src)
	base := filepath.Base(src)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	return filepath.Join(dir, name+"_"+suffix+ext)
}

// Uniquify returns path if nothing exists there, otherwise the first of
// name-1.ext, name-2.ext, ... that is free. Existing files are never
// overwritten.
func Uniquify(path string) string {
	if _, err := os.Stat(path); err != nil {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s-%d%s", stem, i, ext)
		if _, err := os.Stat(candidate); err != nil {
			return candidate
		}
	}
}
