package diskspace

import (
	"fmt"
	"path/filepath"
	"testing"
)

func TestCheckAvailableSpace(t *testing.T) {
	target := filepath.Join(t.TempDir(), "download.bin")

	t.Run("SmallFile", func(t *testing.T) {
		if err := CheckAvailableSpace(target, 1024, 1.1); err != nil {
			t.Errorf("Expected no error for small file, got: %v", err)
		}
	})

	t.Run("VeryLargeFile", func(t *testing.T) {
		// 100 PB should exceed available space anywhere this runs.
		err := CheckAvailableSpace(target, 100<<50, 1.1)
		if err == nil {
			t.Skip("free space could not be determined")
		}
		if !IsInsufficientSpaceError(err) {
			t.Errorf("Expected InsufficientSpaceError, got: %T", err)
		}
		ise := err.(*InsufficientSpaceError)
		if ise.Path != target {
			t.Errorf("Path = %s, want %s", ise.Path, target)
		}
		if ise.RequiredBytes <= ise.AvailableBytes {
			t.Errorf("required %d should exceed available %d", ise.RequiredBytes, ise.AvailableBytes)
		}
	})

	t.Run("SafetyMargin", func(t *testing.T) {
		available := GetAvailableSpace(target)
		if available == 0 {
			t.Skip("Could not determine available space")
		}
		// Fits alone, does not fit with a 3x margin.
		half := available / 2
		if err := CheckAvailableSpace(target, half, 1.0); err != nil {
			t.Errorf("half of available space should fit: %v", err)
		}
		if err := CheckAvailableSpace(target, half, 3.0); !IsInsufficientSpaceError(err) {
			t.Errorf("expected InsufficientSpaceError with margin, got %v", err)
		}
	})
}

func TestCheckForDownload(t *testing.T) {
	target := filepath.Join(t.TempDir(), "f")
	if err := CheckForDownload(target, 0); err != nil {
		t.Errorf("empty file should always fit: %v", err)
	}
}

func TestMissingDirectoryPasses(t *testing.T) {
	// Statfs fails on a missing directory; the check must not block the write.
	if err := CheckAvailableSpace("/definitely/not/here/x", 1<<60, 1.0); err != nil {
		t.Errorf("expected nil when space is unknown, got %v", err)
	}
	if GetAvailableSpace("/definitely/not/here/x") != 0 {
		t.Error("expected 0 for unknown space")
	}
}

func TestIsInsufficientSpaceError(t *testing.T) {
	ise := &InsufficientSpaceError{Path: "/x", RequiredBytes: 2 << 20, AvailableBytes: 1 << 20}
	if !IsInsufficientSpaceError(ise) {
		t.Error("direct error not recognised")
	}
	if !IsInsufficientSpaceError(fmt.Errorf("save: %w", ise)) {
		t.Error("wrapped error not recognised")
	}
	if IsInsufficientSpaceError(fmt.Errorf("other")) {
		t.Error("unrelated error recognised")
	}
	want := "insufficient disk space for /x: need 2.00 MB, have 1.00 MB available"
	if ise.Error() != want {
		t.Errorf("Error() = %q, want %q", ise.Error(), want)
	}
}
