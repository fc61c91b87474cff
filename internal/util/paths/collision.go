// Package paths picks local file names for downloads.
package paths

import (
	"fmt"
	"path/filepath"
	"strings"
)

// maxSuffix bounds the search; past it the caller falls back to a unique id.
const maxSuffix = 9999

// UniqueName returns name if taken(name) is false, otherwise the first free
// "stem (n).ext" for n = 1, 2, ... Returns "" when every candidate up to
// maxSuffix is taken.
//
// Example: with "report.pdf" and "report (1).pdf" present, "report.pdf"
// becomes "report (2).pdf".
func UniqueName(name string, taken func(string) bool) string {
	if !taken(name) {
		return name
	}

	stem, ext := SplitExt(name)
	for n := 1; n <= maxSuffix; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, n, ext)
		if !taken(candidate) {
			return candidate
		}
	}
	return ""
}

// SplitExt splits name into stem and extension. Dot files without a further
// extension (".bashrc") and compound archive suffixes (".tar.gz") are kept
// whole.
func SplitExt(name string) (stem, ext string) {
	lower := strings.ToLower(name)
	for _, compound := range []string{".tar.gz", ".tar.bz2", ".tar.xz", ".tar.zst"} {
		if strings.HasSuffix(lower, compound) && len(name) > len(compound) {
			return name[:len(name)-len(compound)], name[len(name)-len(compound):]
		}
	}

	ext = filepath.Ext(name)
	stem = name[:len(name)-len(ext)]
	if stem == "" {
		return name, ""
	}
	return stem, ext
}

// Reserver hands out unique names within one batch, on top of what already
// exists on disk, so two downloads never target the same file.
type Reserver struct {
	exists   func(string) bool
	reserved map[string]bool
}

// NewReserver creates a Reserver. exists reports whether a name is already
// taken outside the batch.
func NewReserver(exists func(string) bool) *Reserver {
	return &Reserver{exists: exists, reserved: make(map[string]bool)}
}

// Reserve returns a free name for name and marks it taken. Names are
// compared case-insensitively so batches are safe on macOS and Windows.
func (r *Reserver) Reserve(name string) string {
	got := UniqueName(name, func(candidate string) bool {
		return r.reserved[strings.ToLower(candidate)] || r.exists(candidate)
	})
	if got != "" {
		r.reserved[strings.ToLower(got)] = true
	}
	return got
}

// Release frees a reserved name, e.g. after a failed download.
func (r *Reserver) Release(name string) {
	delete(r.reserved, strings.ToLower(name))
}
