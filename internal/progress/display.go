// Package progress renders transfer tasks on the terminal while a CLI batch
// runs. Displays observe a transfer.Store; they never drive transfers.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"

	"github.com/filehop/filehop/internal/transfer"
	stringutil "github.com/filehop/filehop/internal/util/strings"
)

// Display shows the tasks of one batch.
type Display interface {
	transfer.Observer

	// Wait blocks until every displayed task has finished rendering.
	Wait()

	// Writer returns an io.Writer that prints above the bars.
	Writer() io.Writer
}

// New picks a display for out: plain lines when out is not a terminal, a
// single bar for one file, a multi-bar board otherwise. files may be 0
// when the batch size is not known up front.
func New(out io.Writer, files int) Display {
	f, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return NewText(out, files)
	}
	enableANSI(f)
	if files == 1 {
		return NewSingle(out)
	}
	return NewBoard(out, files)
}

// Text prints one line when a task starts and one when it ends.
type Text struct {
	mu      sync.Mutex
	out     io.Writer
	total   int
	started int
}

// NewText creates a line-oriented display for files tasks.
func NewText(out io.Writer, files int) *Text {
	return &Text{out: out, total: files}
}

// TaskChanged implements transfer.Observer.
func (t *Text) TaskChanged(c transfer.Change) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch c.Kind {
	case transfer.ChangeAdded:
		t.started++
		fmt.Fprintf(t.out, "%s %s: %s\n", verb(c.Task.Direction), position(t.started, t.total), label(c.Task))
	case transfer.ChangeUpdated:
		if c.Task.Status.IsTerminal() {
			fmt.Fprint(t.out, summary(c.Task))
		}
	}
}

// Wait returns immediately; lines are written synchronously.
func (t *Text) Wait() {}

// Writer returns the output writer.
func (t *Text) Writer() io.Writer {
	return t.out
}

// position renders "[i/n]", or "[i]" when the batch size is unknown.
func position(i, total int) string {
	if total <= 0 {
		return fmt.Sprintf("[%d]", i)
	}
	return fmt.Sprintf("[%d/%d]", i, total)
}

func verb(d transfer.Direction) string {
	if d == transfer.DirectionUpload {
		return "Uploading"
	}
	return "Downloading"
}

// label renders "name (size) → device" for uploads, "← device" for downloads.
func label(task transfer.TransferTask) string {
	size := "unknown size"
	if task.FileSize > 0 {
		size = stringutil.Bytes(task.FileSize)
	}
	if task.Direction == transfer.DirectionUpload {
		return fmt.Sprintf("%s (%s) → %s", task.FileName, size, task.TargetDevice)
	}
	return fmt.Sprintf("%s (%s) ← %s", task.FileName, size, task.SourceDevice)
}

func summary(task transfer.TransferTask) string {
	switch task.Status {
	case transfer.StatusCompleted:
		return fmt.Sprintf("✓ %s\n", label(task))
	case transfer.StatusCancelled:
		return fmt.Sprintf("- %s: cancelled\n", label(task))
	default:
		return fmt.Sprintf("✗ %s: %s\n", label(task), task.Error)
	}
}
