package localfs

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestIsHidden(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{".hidden", true},
		{".gitignore", true},
		{"visible.txt", false},
		{"/path/to/.hidden", true},
		{"/path/to/visible.txt", false},
		{"../.hidden", true},
		{"..", false},
		{".", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := IsHidden(tt.path); got != tt.expected {
				t.Errorf("IsHidden(%q) = %v, want %v", tt.path, got, tt.expected)
			}
		})
	}
}

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.txt"), 10)
	writeFile(t, filepath.Join(dir, "A.txt"), 3)
	writeFile(t, filepath.Join(dir, ".secret"), 1)
	writeFile(t, filepath.Join(dir, "zdir", "inner.txt"), 5)
	if err := os.Mkdir(filepath.Join(dir, "adir"), 0755); err != nil {
		t.Fatal(err)
	}

	entries, err := List(dir, ListOptions{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	want := []string{"adir", "zdir", "A.txt", "b.txt"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %s, want %s", i, names[i], want[i])
		}
	}

	if entries[0].Size != 0 || !entries[0].IsDir {
		t.Errorf("directory entry should have size 0: %+v", entries[0])
	}
	if entries[3].Size != 10 || entries[3].Modified == 0 {
		t.Errorf("unexpected file entry %+v", entries[3])
	}

	all, err := List(dir, ListOptions{IncludeHidden: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 5 {
		t.Errorf("expected hidden entry included, got %d entries", len(all))
	}
}

func TestList_Symlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on Windows")
	}
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "real"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(dir, "real"), filepath.Join(dir, "link")); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(dir, "missing"), filepath.Join(dir, "dangling")); err != nil {
		t.Fatal(err)
	}

	entries, err := List(dir, ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected link and real, got %+v", entries)
	}
	for _, e := range entries {
		if !e.IsDir {
			t.Errorf("%s should be reported as a directory", e.Name)
		}
	}
}

func TestList_Missing(t *testing.T) {
	_, err := List(filepath.Join(t.TempDir(), "nope"), ListOptions{})
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestWalk(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "top.txt"), 4)
	writeFile(t, filepath.Join(root, "a", "one.txt"), 1)
	writeFile(t, filepath.Join(root, "a", "b", "two.txt"), 2)
	writeFile(t, filepath.Join(root, ".git", "config"), 1)
	writeFile(t, filepath.Join(root, "a", ".env"), 1)
	if err := os.Mkdir(filepath.Join(root, "empty"), 0755); err != nil {
		t.Fatal(err)
	}

	var dirs []string
	files, err := Walk(root, WalkOptions{}, func(rel string) error {
		dirs = append(dirs, rel)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}

	wantDirs := []string{"a", "a/b", "empty"}
	if len(dirs) != len(wantDirs) {
		t.Fatalf("dirs = %v, want %v", dirs, wantDirs)
	}
	for i := range wantDirs {
		if dirs[i] != wantDirs[i] {
			t.Errorf("dirs[%d] = %s, want %s", i, dirs[i], wantDirs[i])
		}
	}

	got := map[string]File{}
	for _, f := range files {
		got[f.RelDir+"|"+f.Name] = f
	}
	if len(got) != 3 {
		t.Fatalf("files = %+v", files)
	}
	if f, ok := got["|top.txt"]; !ok || f.Size != 4 {
		t.Errorf("missing top-level file: %+v", got)
	}
	if _, ok := got["a/b|two.txt"]; !ok {
		t.Errorf("missing nested file: %+v", got)
	}

	withHidden, err := Walk(root, WalkOptions{IncludeHidden: true}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(withHidden) != 5 {
		t.Errorf("expected 5 files with hidden, got %d", len(withHidden))
	}
}

func TestWalk_SingleFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "only.bin")
	writeFile(t, p, 7)

	files, err := Walk(p, WalkOptions{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].Name != "only.bin" || files[0].Size != 7 || files[0].RelDir != "" {
		t.Errorf("unexpected result %+v", files)
	}
}

func TestWalk_OnDirErrorStops(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "x"), 1)
	stop := errors.New("stop")

	_, err := Walk(root, WalkOptions{}, func(string) error { return stop })
	if !errors.Is(err, stop) {
		t.Errorf("expected callback error, got %v", err)
	}
}
