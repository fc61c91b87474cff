package models

import (
	"sort"
	"strings"
	"time"
)

// FileEntry is one item of a remote directory listing.
// Field names match the wire format of GET /api/files.
type FileEntry struct {
	Name     string `json:"name"`
	IsDir    bool   `json:"is_dir"`
	Size     uint64 `json:"size"`
	Modified int64  `json:"modified"` // unix seconds
}

// ModTime returns Modified as a time.Time.
func (e FileEntry) ModTime() time.Time {
	return time.Unix(e.Modified, 0)
}

// IsHidden reports whether the entry is a dot-file.
// Listings include hidden entries; filtering is left to the presenter.
func (e FileEntry) IsHidden() bool {
	return strings.HasPrefix(e.Name, ".")
}

// SortEntries orders a listing directories first, then by name.
func SortEntries(entries []FileEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
}

// RenameRequest is the body of PUT /api/files/rename.
type RenameRequest struct {
	OldPath string `json:"old_path"`
	NewPath string `json:"new_path"`
}

// MkdirRequest is the body of POST /api/files/mkdir.
type MkdirRequest struct {
	Path string `json:"path"`
}

// ThrottleRequest is the body of PUT /api/settings/throttle.
type ThrottleRequest struct {
	BytesPerSec uint64 `json:"bytes_per_sec"`
}

// LogRecord is one forwarded client log entry, the body of POST /api/logs.
type LogRecord struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Source  string         `json:"source,omitempty"`
	Fields  map[string]any `json:"fields,omitempty"`
}
