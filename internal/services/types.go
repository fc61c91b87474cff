// Package services runs user-level file operations against a device:
// batch uploads and downloads tracked in the transfer store, and the
// listing mutations (delete, rename, mkdir) behind a confirmation step.
package services

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/filehop/filehop/internal/api"
	"github.com/filehop/filehop/internal/download"
	"github.com/filehop/filehop/internal/models"
	"github.com/filehop/filehop/internal/transfer"
)

// ErrNotConfirmed is returned when the user declines a destructive operation.
var ErrNotConfirmed = errors.New("operation not confirmed")

// RemoteFiles is the subset of api.Client the services drive.
// *api.Client satisfies it.
type RemoteFiles interface {
	List(ctx context.Context, ep api.Endpoint, dir string) ([]models.FileEntry, error)
	Download(ctx context.Context, ep api.Endpoint, p string, onProgress download.ProgressFunc) ([]byte, error)
	Upload(ctx context.Context, ep api.Endpoint, targetDir, fileName string, content io.Reader) error
	Delete(ctx context.Context, ep api.Endpoint, p string) error
	Rename(ctx context.Context, ep api.Endpoint, oldPath, newPath string) error
	Mkdir(ctx context.Context, ep api.Endpoint, p string) error
}

// UploadSource is one file to upload.
type UploadSource struct {
	Name string // file name on the device
	Size uint64
	Open func() (io.ReadCloser, error)

	// TargetDir overrides the batch target directory, used for tree uploads.
	TargetDir string
}

// LocalFile describes the local file at path as an upload source.
func LocalFile(path string) (UploadSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return UploadSource{}, err
	}
	if info.IsDir() {
		return UploadSource{}, &os.PathError{Op: "upload", Path: path, Err: errors.New("is a directory")}
	}
	return UploadSource{
		Name: filepath.Base(path),
		Size: uint64(info.Size()),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}

// Result is the outcome for one item of a batch.
type Result struct {
	TaskID    string // empty when no task was registered
	Name      string
	Path      string // path on the device
	LocalPath string // where a download was saved
	Err       error
	Skipped   bool // not attempted (directory, or the batch was cancelled first)
}

// OK reports whether the item succeeded.
func (r Result) OK() bool {
	return r.Err == nil && !r.Skipped
}

// BatchSummary counts batch outcomes.
type BatchSummary struct {
	Completed int
	Failed    int
	Skipped   int
}

// Summarize counts the outcomes in results.
func Summarize(results []Result) BatchSummary {
	var s BatchSummary
	for _, r := range results {
		switch {
		case r.Skipped:
			s.Skipped++
		case r.Err != nil:
			s.Failed++
		default:
			s.Completed++
		}
	}
	return s
}

// Saver persists a downloaded file and returns where it went.
type Saver interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}

// BatchNotifier is told when a transfer batch finishes.
type BatchNotifier interface {
	BatchFinished(direction transfer.Direction, completed, failed int)
}

// Confirmer asks the user to approve a destructive operation on items.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string, items []string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string, items []string) (bool, error)

// Confirm calls f.
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string, items []string) (bool, error) {
	return f(ctx, prompt, items)
}

// AlwaysConfirm approves everything, for --yes.
var AlwaysConfirm Confirmer = ConfirmFunc(func(context.Context, string, []string) (bool, error) {
	return true, nil
})
