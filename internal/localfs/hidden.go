// Package localfs lists and walks the local filesystem in the shapes the
// rest of filehop speaks: models.FileEntry for listings served to peers and
// flat file lists for recursive uploads.
package localfs

import (
	"path/filepath"
	"strings"

	"github.com/filehop/filehop/internal/models"
)

// IsHidden returns true if the file or directory at the given path is hidden
// (its base name starts with a dot).
func IsHidden(path string) bool {
	return IsHiddenName(filepath.Base(path))
}

// IsHiddenName is IsHidden for a bare name. "." and ".." are not hidden.
func IsHiddenName(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	return models.FileEntry{Name: name}.IsHidden()
}

// hasHiddenComponent reports whether any segment of a relative path is hidden.
func hasHiddenComponent(rel string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if IsHiddenName(seg) {
			return true
		}
	}
	return false
}
