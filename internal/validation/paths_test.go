package validation

import (
	"errors"
	"path/filepath"
	"runtime"
	"testing"
)

func TestValidateFilename(t *testing.T) {
	testCases := []struct {
		name        string
		filename    string
		expectValid bool
	}{
		{"simple", "file.txt", true},
		{"with_dots", "file.v1.2.3.txt", true},
		{"double_dot_inside", "data..v2.csv", true},
		{"hidden_file", ".hidden", true},
		{"spaces", "my file.txt", true},
		{"unicode", "résumé 履歴.pdf", true},

		{"empty", "", false},
		{"dot", ".", false},
		{"dotdot", "..", false},
		{"slash", "a/b", false},
		{"leading_slash", "/etc", false},
		{"backslash", `a\b`, false},
		{"null", "a\x00b", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateFilename(tc.filename)
			if tc.expectValid && err != nil {
				t.Errorf("ValidateFilename(%q) unexpected error: %v", tc.filename, err)
			}
			if !tc.expectValid {
				if err == nil {
					t.Errorf("ValidateFilename(%q) expected error", tc.filename)
				} else if !errors.Is(err, ErrInvalidPath) {
					t.Errorf("ValidateFilename(%q) error should wrap ErrInvalidPath: %v", tc.filename, err)
				}
			}
		})
	}
}

func TestResolveUnderRoot(t *testing.T) {
	root := t.TempDir()

	testCases := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{"root", "/", root, false},
		{"file", "/a.txt", filepath.Join(root, "a.txt"), false},
		{"nested", "/a/b/c.txt", filepath.Join(root, "a", "b", "c.txt"), false},
		{"double_slash", "//a//b", filepath.Join(root, "a", "b"), false},
		{"trailing_slash", "/a/", filepath.Join(root, "a"), false},
		{"dot_segment", "/a/./b", filepath.Join(root, "a", "b"), false},

		{"empty", "", "", true},
		{"relative", "a/b", "", true},
		{"traversal", "/../etc/passwd", "", true},
		{"inner_traversal", "/a/../../etc", "", true},
		{"harmless_looking_traversal", "/a/../b", "", true},
		{"backslash", `/a\..\b`, "", true},
		{"null", "/a\x00", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ResolveUnderRoot(root, tc.path)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ResolveUnderRoot(%q) err = %v, wantErr %v", tc.path, err, tc.wantErr)
			}
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidPath) {
					t.Errorf("error should wrap ErrInvalidPath: %v", err)
				}
				return
			}
			if got != tc.want {
				t.Errorf("ResolveUnderRoot(%q) = %q, want %q", tc.path, got, tc.want)
			}
		})
	}
}

func TestResolveUnderRoot_EmptyRoot(t *testing.T) {
	if _, err := ResolveUnderRoot("", "/a"); err == nil {
		t.Error("expected error for empty root")
	}
}

func TestValidatePathInDirectory(t *testing.T) {
	base := "/tmp/uploads"
	if runtime.GOOS == "windows" {
		base = `C:\tmp\uploads`
	}

	testCases := []struct {
		name        string
		path        string
		expectValid bool
	}{
		{"relative_file", "file.txt", true},
		{"relative_subdir", filepath.Join("sub", "file.txt"), true},
		{"base_itself", base, true},
		{"absolute_inside", filepath.Join(base, "x", "y"), true},
		{"dotdot_inside_name", "foo..bar", true},

		{"escape_parent", "..", false},
		{"escape_relative", filepath.Join("..", "..", "etc", "passwd"), false},
		{"escape_after_descend", filepath.Join("sub", "..", "..", "x"), false},
		{"absolute_outside", filepath.Join(filepath.Dir(base), "other"), false},
		{"sibling_prefix", base + "-evil", false},
		{"empty", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePathInDirectory(tc.path, base)
			if tc.expectValid && err != nil {
				t.Errorf("ValidatePathInDirectory(%q) unexpected error: %v", tc.path, err)
			}
			if !tc.expectValid && err == nil {
				t.Errorf("ValidatePathInDirectory(%q) expected error", tc.path)
			}
		})
	}

	if err := ValidatePathInDirectory("a", ""); err == nil {
		t.Error("expected error for empty base")
	}
}
