// Package filter selects listing entries and walked files by glob pattern
// and search term, for the CLI's --include, --exclude and --search flags.
package filter

import (
	"path"
	"strings"

	"github.com/filehop/filehop/internal/localfs"
	"github.com/filehop/filehop/internal/models"
)

// Config holds filter configuration.
type Config struct {
	// Include patterns (glob-style) matched against the name. Empty means include all.
	Include []string

	// Exclude patterns (glob-style). Takes precedence over Include.
	Exclude []string

	// Search terms (case-insensitive substring). A name must contain ALL of them.
	Search []string

	// PathInclude patterns match the slash-separated path relative to the
	// walk root. "**" matches any number of directories.
	PathInclude []string
}

// IsEmpty reports whether c filters nothing.
func (c Config) IsEmpty() bool {
	return len(c.Include) == 0 && len(c.Exclude) == 0 && len(c.Search) == 0 && len(c.PathInclude) == 0
}

// Entries filters a directory listing. Directories only answer to Exclude,
// so a filtered listing stays navigable.
func Entries(entries []models.FileEntry, c Config) []models.FileEntry {
	if c.IsEmpty() {
		return entries
	}
	out := make([]models.FileEntry, 0, len(entries))
	for _, e := range entries {
		if e.IsDir {
			if !excluded(e.Name, c.Exclude) {
				out = append(out, e)
			}
			continue
		}
		if MatchName(e.Name, c) {
			out = append(out, e)
		}
	}
	return out
}

// Files filters the result of localfs.Walk.
func Files(files []localfs.File, c Config) []localfs.File {
	if c.IsEmpty() {
		return files
	}
	out := make([]localfs.File, 0, len(files))
	for _, f := range files {
		if len(c.PathInclude) > 0 && !MatchPath(path.Join(f.RelDir, f.Name), c.PathInclude) {
			continue
		}
		if MatchName(f.Name, c) {
			out = append(out, f)
		}
	}
	return out
}

// MatchName applies Exclude, Include and Search to a bare name.
func MatchName(name string, c Config) bool {
	if excluded(name, c.Exclude) {
		return false
	}

	if len(c.Include) > 0 {
		included := false
		for _, pattern := range c.Include {
			if matched, _ := path.Match(pattern, name); matched {
				included = true
				break
			}
		}
		if !included {
			return false
		}
	}

	lower := strings.ToLower(name)
	for _, term := range c.Search {
		if !strings.Contains(lower, strings.ToLower(term)) {
			return false
		}
	}
	return true
}

func excluded(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if matched, _ := path.Match(pattern, name); matched {
			return true
		}
	}
	return false
}

// MatchPath reports whether the slash-separated relative path p matches any
// of patterns.
func MatchPath(p string, patterns []string) bool {
	p = strings.Trim(p, "/")
	for _, pattern := range patterns {
		if matchSegments(strings.Split(p, "/"), strings.Split(strings.Trim(pattern, "/"), "/")) {
			return true
		}
	}
	return false
}

// matchSegments matches path segments against pattern segments, where a
// "**" segment consumes zero or more path segments.
//
//   - "**/foo.txt" matches "foo.txt", "a/foo.txt", "a/b/c/foo.txt"
//   - "run_1/**" matches "run_1/anything", "run_1/a/b/c/file.txt"
//   - "run_*/*.dat" matches "run_1/file.dat"
func matchSegments(segs, pattern []string) bool {
	if len(pattern) == 0 {
		return len(segs) == 0
	}
	if pattern[0] == "**" {
		for i := 0; i <= len(segs); i++ {
			if matchSegments(segs[i:], pattern[1:]) {
				return true
			}
		}
		return false
	}
	if len(segs) == 0 {
		return false
	}
	if matched, err := path.Match(pattern[0], segs[0]); err != nil || !matched {
		return false
	}
	return matchSegments(segs[1:], pattern[1:])
}

// ParsePatternList parses a comma-separated list of patterns into a slice.
// Example: "*.dat,*.txt" -> []string{"*.dat", "*.txt"}
func ParsePatternList(patternStr string) []string {
	if patternStr == "" {
		return nil
	}
	parts := strings.Split(patternStr, ",")
	patterns := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			patterns = append(patterns, trimmed)
		}
	}
	return patterns
}
