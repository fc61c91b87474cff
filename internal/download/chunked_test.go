package download

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
)

// chunkReader returns one chunk per Read call, then err (io.EOF by default).
type chunkReader struct {
	chunks [][]byte
	err    error
}

func newChunkReader(sizes ...int) *chunkReader {
	r := &chunkReader{}
	for i, n := range sizes {
		r.chunks = append(r.chunks, bytes.Repeat([]byte{byte('a' + i)}, n))
	}
	return r
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks[0] = r.chunks[0][n:]
	if len(r.chunks[0]) == 0 {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

func TestReadAll_ProgressWithKnownTotal(t *testing.T) {
	var percents []int
	var loads []uint64
	d := &ChunkedDownloader{OnProgress: func(loaded, total uint64) {
		loads = append(loads, loaded)
		percents = append(percents, Percent(loaded, total))
	}}

	data, err := d.ReadAll(context.Background(), newChunkReader(400, 350, 250), 1000)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(data) != 1000 {
		t.Errorf("Expected 1000 bytes, got %d", len(data))
	}

	wantLoads := []uint64{400, 750, 1000}
	wantPercents := []int{40, 75, 100}
	if len(percents) != len(wantPercents) {
		t.Fatalf("Expected %d callbacks, got %d", len(wantPercents), len(percents))
	}
	for i := range wantPercents {
		if loads[i] != wantLoads[i] {
			t.Errorf("callback %d: loaded = %d, want %d", i, loads[i], wantLoads[i])
		}
		if percents[i] != wantPercents[i] {
			t.Errorf("callback %d: percent = %d, want %d", i, percents[i], wantPercents[i])
		}
	}
}

func TestReadAll_UnknownTotal(t *testing.T) {
	var totals []uint64
	var percents []int
	d := &ChunkedDownloader{OnProgress: func(loaded, total uint64) {
		totals = append(totals, total)
		percents = append(percents, Percent(loaded, total))
	}}

	data, err := d.ReadAll(context.Background(), newChunkReader(10, 20, 30), 0)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(data) != 60 {
		t.Errorf("Expected 60 bytes, got %d", len(data))
	}
	for i := range percents {
		if totals[i] != 0 || percents[i] != 0 {
			t.Errorf("callback %d: total=%d percent=%d, want 0/0", i, totals[i], percents[i])
		}
	}
}

func TestReadAll_PreservesBytes(t *testing.T) {
	d := &ChunkedDownloader{}
	data, err := d.ReadAll(context.Background(), newChunkReader(3, 2), 5)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "aaabb" {
		t.Errorf("Expected %q, got %q", "aaabb", data)
	}
}

func TestReadAll_EmptyBody(t *testing.T) {
	calls := 0
	d := &ChunkedDownloader{OnProgress: func(uint64, uint64) { calls++ }}
	data, err := d.ReadAll(context.Background(), newChunkReader(), 0)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("Expected empty result, got %d bytes", len(data))
	}
	if calls != 0 {
		t.Errorf("Expected no progress callbacks, got %d", calls)
	}
}

func TestReadAll_MidStreamFailure(t *testing.T) {
	r := newChunkReader(400, 350)
	r.err = errors.New("connection reset by peer")

	calls := 0
	d := &ChunkedDownloader{OnProgress: func(uint64, uint64) { calls++ }}
	data, err := d.ReadAll(context.Background(), r, 1000)
	if err == nil {
		t.Fatal("Expected error")
	}
	if data != nil {
		t.Errorf("Partial data must be discarded, got %d bytes", len(data))
	}
	if calls != 2 {
		t.Errorf("Expected progress for the 2 chunks read before failing, got %d", calls)
	}
}

func TestReadAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	d := &ChunkedDownloader{OnProgress: func(loaded, _ uint64) {
		if loaded >= 400 {
			cancel()
		}
	}}
	data, err := d.ReadAll(ctx, newChunkReader(400, 350, 250), 1000)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if data != nil {
		t.Error("Cancelled download must not return data")
	}
}

func TestTotalFromHeader(t *testing.T) {
	tests := []struct {
		value string
		want  uint64
	}{
		{"", 0},
		{"1000", 1000},
		{"abc", 0},
		{"-5", 0},
		{"0", 0},
	}
	for _, tt := range tests {
		h := http.Header{}
		if tt.value != "" {
			h.Set("Content-Length", tt.value)
		}
		if got := TotalFromHeader(h); got != tt.want {
			t.Errorf("TotalFromHeader(%q) = %d, want %d", tt.value, got, tt.want)
		}
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		loaded, total uint64
		want          int
	}{
		{0, 0, 0},
		{500, 0, 0},
		{0, 1000, 0},
		{1, 3, 33},
		{2, 3, 66},
		{999, 1000, 99},
		{1000, 1000, 100},
		{1500, 1000, 100},
	}
	for _, tt := range tests {
		if got := Percent(tt.loaded, tt.total); got != tt.want {
			t.Errorf("Percent(%d, %d) = %d, want %d", tt.loaded, tt.total, got, tt.want)
		}
	}
}
