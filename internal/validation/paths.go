// Package validation checks names and paths that arrive from peers before
// they touch the local filesystem.
package validation

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// ErrInvalidPath marks a request path that cannot be served.
var ErrInvalidPath = errors.New("invalid path")

// ValidateFilename validates a single name (not a path): an uploaded file
// name, a listing entry about to be saved locally, the last segment of a
// mkdir or rename target.
//
// Returns an error if the name:
//   - Is empty, "." or ".."
//   - Contains path separators (/ or \)
//   - Contains null bytes
func ValidateFilename(name string) error {
	if name == "" {
		return fmt.Errorf("%w: filename cannot be empty", ErrInvalidPath)
	}
	if strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: filename contains null byte", ErrInvalidPath)
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: filename cannot contain path separators: %s", ErrInvalidPath, name)
	}
	// "foo..bar.txt" is fine; only the literal traversal names are not.
	if name == "." || name == ".." {
		return fmt.Errorf("%w: filename cannot be %q", ErrInvalidPath, name)
	}
	return nil
}

// ResolveUnderRoot maps an absolute slash-separated request path ("/a/b")
// onto the local directory root and returns the local path. "/" maps to
// root itself. The result never escapes root.
func ResolveUnderRoot(root, requestPath string) (string, error) {
	if root == "" {
		return "", fmt.Errorf("root directory cannot be empty")
	}
	if requestPath == "" {
		return "", fmt.Errorf("%w: path cannot be empty", ErrInvalidPath)
	}
	if strings.ContainsRune(requestPath, 0) {
		return "", fmt.Errorf("%w: path contains null byte", ErrInvalidPath)
	}
	if !strings.HasPrefix(requestPath, "/") {
		return "", fmt.Errorf("%w: path must be absolute: %s", ErrInvalidPath, requestPath)
	}
	// Backslashes would become separators on Windows after FromSlash.
	if strings.ContainsRune(requestPath, '\\') {
		return "", fmt.Errorf("%w: path cannot contain backslashes: %s", ErrInvalidPath, requestPath)
	}
	for _, seg := range strings.Split(requestPath, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: path cannot contain '..': %s", ErrInvalidPath, requestPath)
		}
	}

	cleaned := path.Clean(requestPath)
	local := filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(cleaned, "/")))
	if err := ValidatePathInDirectory(local, root); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	return local, nil
}

// ValidatePathInDirectory validates that a path, when resolved, stays within baseDir.
//
// Both path and baseDir are cleaned and made absolute before comparison.
//
// Example:
//
//	ValidatePathInDirectory("../../etc/passwd", "/tmp/uploads") // Error: escapes base dir
//	ValidatePathInDirectory("subdir/file.txt", "/tmp/uploads")   // OK: within base dir
func ValidatePathInDirectory(p string, baseDir string) error {
	if p == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if baseDir == "" {
		return fmt.Errorf("base directory cannot be empty")
	}

	cleanBase, err := filepath.Abs(filepath.Clean(baseDir))
	if err != nil {
		return fmt.Errorf("failed to resolve base directory: %w", err)
	}

	resolved := filepath.Clean(p)
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(cleanBase, resolved)
	}

	rel, err := filepath.Rel(cleanBase, resolved)
	if err != nil {
		return fmt.Errorf("failed to compute relative path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path escapes base directory: %s (base: %s)", p, baseDir)
	}
	return nil
}
