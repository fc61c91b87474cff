// Package pathutil handles the two kinds of paths filehop deals with:
// slash-separated remote paths on a device (Join, Parent, Segments, Breadcrumbs)
// and local filesystem paths such as the download directory (ResolveAbsolutePath).
package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

// ResolveAbsolutePath turns a local path into an absolute one, expanding a
// leading ~. Symlinks are resolved in the deepest existing ancestor and the
// missing tail is appended, so a download directory that does not exist yet
// still resolves through a symlinked parent.
func ResolveAbsolutePath(path string) (string, error) {
	if path == "" {
		return os.Getwd()
	}
	if path == "~" || strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[1:])
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	existing, tail := abs, ""
	for {
		if resolved, err := filepath.EvalSymlinks(existing); err == nil {
			return filepath.Join(resolved, tail), nil
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			return abs, nil
		}
		tail = filepath.Join(filepath.Base(existing), tail)
		existing = parent
	}
}
