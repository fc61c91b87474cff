// Package download streams a response body into memory while reporting
// byte-level progress after every chunk.
package download

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/filehop/filehop/internal/util/buffers"
)

// ProgressFunc receives the bytes read so far and the expected total
// (0 when the server did not announce a length).
type ProgressFunc func(loaded, total uint64)

// ChunkedDownloader accumulates a body chunk by chunk.
// A zero value is ready to use; OnProgress may be nil.
type ChunkedDownloader struct {
	OnProgress ProgressFunc
}

// TotalFromHeader parses Content-Length. Missing, negative or unparseable
// values yield 0, meaning "unknown".
func TotalFromHeader(h http.Header) uint64 {
	v := h.Get("Content-Length")
	if v == "" {
		return 0
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Percent returns floor(loaded*100/total), or 0 when total is unknown.
// Bodies larger than announced are capped at 100.
func Percent(loaded, total uint64) int {
	if total == 0 {
		return 0
	}
	if loaded >= total {
		return 100
	}
	// loaded < total, so loaded*100 only overflows for totals above 1.8e17 bytes
	if loaded > ^uint64(0)/100 {
		return int(loaded / (total / 100))
	}
	return int(loaded * 100 / total)
}

// ReadAll reads r to EOF, calling OnProgress after every non-empty read.
// Cancellation is checked between reads. On any failure the partial buffer
// is discarded and only the error is returned.
func (d *ChunkedDownloader) ReadAll(ctx context.Context, r io.Reader, total uint64) ([]byte, error) {
	buf := buffers.GetReadBuffer()
	defer buffers.PutReadBuffer(buf)

	var out bytes.Buffer
	if total > 0 && total <= maxPrealloc {
		out.Grow(int(total))
	}

	var loaded uint64
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, err := r.Read(*buf)
		if n > 0 {
			out.Write((*buf)[:n])
			loaded += uint64(n)
			if d.OnProgress != nil {
				d.OnProgress(loaded, total)
			}
		}
		if errors.Is(err, io.EOF) {
			return out.Bytes(), nil
		}
		if err != nil {
			// A body torn down by cancellation surfaces as a read error;
			// prefer the context's reason.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, err
		}
	}
}

// maxPrealloc caps the up-front allocation trusted from Content-Length.
const maxPrealloc = 256 << 20
