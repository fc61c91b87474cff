package paths

import (
	"testing"
)

func takenSet(names ...string) func(string) bool {
	set := make(map[string]bool)
	for _, n := range names {
		set[n] = true
	}
	return func(s string) bool { return set[s] }
}

func TestUniqueName(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		taken []string
		want  string
	}{
		{"free", "report.pdf", nil, "report.pdf"},
		{"first suffix", "report.pdf", []string{"report.pdf"}, "report (1).pdf"},
		{"skips taken suffixes", "report.pdf", []string{"report.pdf", "report (1).pdf"}, "report (2).pdf"},
		{"no extension", "Makefile", []string{"Makefile"}, "Makefile (1)"},
		{"dot file", ".bashrc", []string{".bashrc"}, ".bashrc (1)"},
		{"compound extension", "data.tar.gz", []string{"data.tar.gz"}, "data (1).tar.gz"},
		{"multiple dots", "v1.2.txt", []string{"v1.2.txt"}, "v1.2 (1).txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UniqueName(tt.in, takenSet(tt.taken...)); got != tt.want {
				t.Errorf("UniqueName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestUniqueName_Exhausted(t *testing.T) {
	if got := UniqueName("x", func(string) bool { return true }); got != "" {
		t.Errorf("expected empty result when everything is taken, got %q", got)
	}
}

func TestSplitExt(t *testing.T) {
	tests := []struct {
		in, stem, ext string
	}{
		{"a.txt", "a", ".txt"},
		{"archive.TAR.GZ", "archive", ".TAR.GZ"},
		{".tar.gz", ".tar", ".gz"},
		{".hidden", ".hidden", ""},
		{"noext", "noext", ""},
	}
	for _, tt := range tests {
		stem, ext := SplitExt(tt.in)
		if stem != tt.stem || ext != tt.ext {
			t.Errorf("SplitExt(%q) = (%q, %q), want (%q, %q)", tt.in, stem, ext, tt.stem, tt.ext)
		}
	}
}

func TestReserver(t *testing.T) {
	r := NewReserver(takenSet("photo.jpg"))

	if got := r.Reserve("photo.jpg"); got != "photo (1).jpg" {
		t.Errorf("existing file not avoided: %q", got)
	}
	if got := r.Reserve("photo.jpg"); got != "photo (2).jpg" {
		t.Errorf("reserved name not avoided: %q", got)
	}
	if got := r.Reserve("notes.txt"); got != "notes.txt" {
		t.Errorf("free name changed: %q", got)
	}
	if got := r.Reserve("NOTES.txt"); got != "NOTES (1).txt" {
		t.Errorf("case-insensitive collision not resolved: %q", got)
	}

	r.Release("notes.txt")
	if got := r.Reserve("notes.txt"); got != "notes.txt" {
		t.Errorf("released name should be free again, got %q", got)
	}
}
