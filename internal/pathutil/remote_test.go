package pathutil

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestJoin(t *testing.T) {
	tests := []struct {
		dir, name, want string
	}{
		{"/", "x", "/x"},
		{"", "x", "/x"},
		{"/a", "x", "/a/x"},
		{"/a/b", "c.txt", "/a/b/c.txt"},
		{"/a/", "x", "/a/x"},
	}
	for _, tt := range tests {
		if got := Join(tt.dir, tt.name); got != tt.want {
			t.Errorf("Join(%q, %q) = %q, want %q", tt.dir, tt.name, got, tt.want)
		}
	}
}

func TestSegments(t *testing.T) {
	tests := []struct {
		path string
		want []string
	}{
		{"/a/b/c", []string{"a", "b", "c"}},
		{"/", []string{}},
		{"", []string{}},
		{"//a//b/", []string{"a", "b"}},
	}
	for _, tt := range tests {
		got := Segments(tt.path)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Segments(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestParent(t *testing.T) {
	tests := []struct {
		path, want string
	}{
		{"/a/b/c", "/a/b"},
		{"/a", "/"},
		{"/", "/"},
		{"", "/"},
		{"/a/b/", "/a"},
	}
	for _, tt := range tests {
		if got := Parent(tt.path); got != tt.want {
			t.Errorf("Parent(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		path, want string
	}{
		{"", "/"},
		{"/", "/"},
		{"a//b/", "/a/b"},
		{"/a/./b/../c", "/a/c"},
		{"/../../etc", "/etc"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.path); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestBreadcrumbs(t *testing.T) {
	got := Breadcrumbs("/home/user/docs")
	want := []Crumb{
		{Name: "/", Path: "/"},
		{Name: "home", Path: "/home"},
		{Name: "user", Path: "/home/user"},
		{Name: "docs", Path: "/home/user/docs"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Breadcrumbs = %+v, want %+v", got, want)
	}

	if root := Breadcrumbs("/"); len(root) != 1 || root[0].Path != "/" {
		t.Errorf("Breadcrumbs(/) = %+v, want only the root crumb", root)
	}
}

func TestStartPath(t *testing.T) {
	tests := []struct {
		name, explicit, home, want string
	}{
		{"explicit wins", "/data", "/home/u", "/data"},
		{"home fallback", "", "/home/u", "/home/u"},
		{"root fallback", "", "", "/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StartPath(tt.explicit, tt.home); got != tt.want {
				t.Errorf("StartPath(%q, %q) = %q, want %q", tt.explicit, tt.home, got, tt.want)
			}
		})
	}
}

func TestBase(t *testing.T) {
	if got := Base("/a/b.txt"); got != "b.txt" {
		t.Errorf("Base = %q, want b.txt", got)
	}
	if got := Base("/"); got != "/" {
		t.Errorf("Base(/) = %q, want /", got)
	}
}

func TestResolveAbsolutePath_NonExistentTail(t *testing.T) {
	dir := t.TempDir()
	resolvedDir, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatalf("EvalSymlinks: %v", err)
	}

	got, err := ResolveAbsolutePath(filepath.Join(dir, "missing", "deeper"))
	if err != nil {
		t.Fatalf("ResolveAbsolutePath: %v", err)
	}
	want := filepath.Join(resolvedDir, "missing", "deeper")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveAbsolutePath_Home(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got, err := ResolveAbsolutePath("~")
	if err != nil {
		t.Fatalf("ResolveAbsolutePath: %v", err)
	}
	resolvedHome, _ := filepath.EvalSymlinks(home)
	if got != resolvedHome && got != home {
		t.Errorf("got %q, want %q", got, home)
	}
}
