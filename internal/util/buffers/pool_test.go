package buffers

import (
	"testing"

	"github.com/filehop/filehop/internal/constants"
)

// TestReadBufferPool verifies that buffers can be retrieved and returned
func TestReadBufferPool(t *testing.T) {
	buf := GetReadBuffer()
	if buf == nil {
		t.Fatal("GetReadBuffer returned nil")
	}
	if len(*buf) != constants.ReadChunkSize {
		t.Errorf("Buffer size = %d, want %d", len(*buf), constants.ReadChunkSize)
	}
	PutReadBuffer(buf)

	buf2 := GetReadBuffer()
	if buf2 == nil {
		t.Fatal("GetReadBuffer returned nil on second call")
	}
	PutReadBuffer(buf2)
}

// TestPutReadBuffer_Cleared verifies pooled buffers do not keep old contents
func TestPutReadBuffer_Cleared(t *testing.T) {
	buf := GetReadBuffer()
	(*buf)[0] = 0xFF
	PutReadBuffer(buf)
	if (*buf)[0] != 0 {
		t.Error("buffer should be cleared when returned to the pool")
	}
}

// TestPutReadBuffer_WrongSize verifies odd-sized buffers are ignored
func TestPutReadBuffer_WrongSize(t *testing.T) {
	small := make([]byte, 10)
	PutReadBuffer(&small)
	PutReadBuffer(nil)
}

func TestGetStats(t *testing.T) {
	_ = GetReadBuffer()
	stats := GetStats()
	if stats.BufferSize != constants.ReadChunkSize {
		t.Errorf("BufferSize = %d, want %d", stats.BufferSize, constants.ReadChunkSize)
	}
	if stats.Allocations < 1 {
		t.Errorf("Allocations = %d, want >= 1", stats.Allocations)
	}
}
