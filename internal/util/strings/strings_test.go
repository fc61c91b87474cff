package strings

import "testing"

func TestCount(t *testing.T) {
	if got := Count(1, "file"); got != "1 file" {
		t.Errorf("Count(1) = %q", got)
	}
	if got := Count(0, "file"); got != "0 files" {
		t.Errorf("Count(0) = %q", got)
	}
	if got := Count(3, "device"); got != "3 devices" {
		t.Errorf("Count(3) = %q", got)
	}
}

func TestBytes(t *testing.T) {
	tests := []struct {
		n    uint64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 << 20, "5.0 MiB"},
		{3 << 30, "3.0 GiB"},
	}
	for _, tt := range tests {
		if got := Bytes(tt.n); got != tt.want {
			t.Errorf("Bytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
