package pathutil

import (
	"path"
	"strings"
)

// Root is the top of every device's browsable tree.
const Root = "/"

// Crumb is one clickable segment of a breadcrumb trail.
type Crumb struct {
	Name string // segment name, "/" for the root crumb
	Path string // absolute path the crumb navigates to
}

// Join appends name to a remote directory path without producing "//" at the root.
//
//	Join("/", "x")   == "/x"
//	Join("/a", "x")  == "/a/x"
func Join(dir, name string) string {
	if dir == "" || dir == Root {
		return Root + name
	}
	return strings.TrimSuffix(dir, "/") + "/" + name
}

// Segments splits a remote path on "/" and drops empty parts.
// Segments("/a/b/c") == [a b c]; Segments("/") is empty.
func Segments(p string) []string {
	parts := strings.Split(p, "/")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Parent returns the enclosing directory. The parent of "/" is "/".
func Parent(p string) string {
	segs := Segments(p)
	if len(segs) <= 1 {
		return Root
	}
	return Root + strings.Join(segs[:len(segs)-1], "/")
}

// Base returns the last segment of p, or "/" for the root.
func Base(p string) string {
	segs := Segments(p)
	if len(segs) == 0 {
		return Root
	}
	return segs[len(segs)-1]
}

// Normalize makes p absolute and clean: "a//b/" becomes "/a/b".
// Dot segments are resolved lexically and never climb above the root.
func Normalize(p string) string {
	if p == "" {
		return Root
	}
	return path.Clean(Root + strings.TrimLeft(p, "/"))
}

// IsRoot reports whether p names the root directory.
func IsRoot(p string) bool {
	return Normalize(p) == Root
}

// Breadcrumbs returns the root crumb followed by one crumb per segment,
// each carrying the full path up to and including that segment.
func Breadcrumbs(p string) []Crumb {
	segs := Segments(p)
	crumbs := make([]Crumb, 0, len(segs)+1)
	crumbs = append(crumbs, Crumb{Name: Root, Path: Root})
	for i, seg := range segs {
		crumbs = append(crumbs, Crumb{
			Name: seg,
			Path: Root + strings.Join(segs[:i+1], "/"),
		})
	}
	return crumbs
}

// StartPath picks the directory to open on a device: an explicit path wins,
// then the device's home directory, then the root.
func StartPath(explicit, home string) string {
	if explicit != "" {
		return Normalize(explicit)
	}
	if home != "" {
		return Normalize(home)
	}
	return Root
}
