// Package buffers provides reusable read buffers for streaming downloads
// and upload copies, so a long batch does not allocate one buffer per file.
package buffers

import (
	"sync"
	"sync/atomic"

	"github.com/filehop/filehop/internal/constants"
)

var allocations atomic.Int64 // buffers created by the pool's New func

var readPool = &sync.Pool{
	New: func() interface{} {
		allocations.Add(1)
		buf := make([]byte, constants.ReadChunkSize)
		return &buf
	},
}

// GetReadBuffer retrieves a ReadChunkSize buffer from the pool.
// Return it with PutReadBuffer when done.
//
// Usage:
//
//	buf := buffers.GetReadBuffer()
//	defer buffers.PutReadBuffer(buf)
//	n, err := body.Read(*buf)
//	// Use (*buf)[:n] for actual data
func GetReadBuffer() *[]byte {
	return readPool.Get().(*[]byte)
}

// PutReadBuffer returns a buffer to the pool. Buffers of the wrong size are
// dropped. The buffer is cleared so file contents do not linger across uses.
func PutReadBuffer(buf *[]byte) {
	if buf != nil && len(*buf) == constants.ReadChunkSize {
		clear(*buf)
		readPool.Put(buf)
	}
}

// Stats returns current buffer pool statistics.
type Stats struct {
	BufferSize  int   // Size of pooled buffers (bytes)
	Allocations int64 // Total buffers created
}

// GetStats reports pool usage for debugging memory growth.
func GetStats() Stats {
	return Stats{
		BufferSize:  constants.ReadChunkSize,
		Allocations: allocations.Load(),
	}
}
