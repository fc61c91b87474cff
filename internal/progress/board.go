package progress

import (
	"io"
	"sync"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/filehop/filehop/internal/constants"
	"github.com/filehop/filehop/internal/transfer"
)

// barTotal is the bar length; tasks report whole percents.
const barTotal = 100

// Board shows one mpb bar per task. Finished bars are removed and replaced
// by a summary line printed above the remaining ones.
type Board struct {
	progress *mpb.Progress
	total    int

	mu      sync.Mutex
	started int
	bars    map[string]*mpb.Bar
}

// NewBoard creates a board for files tasks writing to out.
func NewBoard(out io.Writer, files int) *Board {
	return &Board{
		progress: mpb.New(
			mpb.WithOutput(out),
			mpb.WithRefreshRate(constants.ProgressRefreshInterval),
			mpb.WithWidth(100),
		),
		total: files,
		bars:  make(map[string]*mpb.Bar),
	}
}

// TaskChanged implements transfer.Observer.
func (b *Board) TaskChanged(c transfer.Change) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch c.Kind {
	case transfer.ChangeAdded:
		b.add(c.Task)
	case transfer.ChangeUpdated:
		bar, ok := b.bars[c.Task.ID]
		if !ok {
			return
		}
		if !c.Task.Status.IsTerminal() {
			bar.SetCurrent(int64(c.Task.Progress))
			return
		}
		if c.Task.Status == transfer.StatusCompleted {
			bar.SetCurrent(barTotal)
			bar.SetTotal(barTotal, true)
		} else {
			bar.Abort(true)
		}
		b.progress.Write([]byte(summary(c.Task)))
		delete(b.bars, c.Task.ID)
	case transfer.ChangeRemoved:
		if bar, ok := b.bars[c.Task.ID]; ok {
			bar.Abort(true)
			delete(b.bars, c.Task.ID)
		}
	}
}

func (b *Board) add(task transfer.TransferTask) {
	b.started++
	prefix := position(b.started, b.total) + " " + label(task)

	bar := b.progress.New(barTotal,
		mpb.BarStyle().
			Lbound("[").
			Filler("█").
			Tip("█").
			Padding("░").
			Rbound("]"),
		mpb.PrependDecorators(
			decor.Name(prefix, decor.WCSyncSpaceR),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WCSyncSpace),
			decor.Name("  "),
			decor.Elapsed(decor.ET_STYLE_GO, decor.WCSyncSpace),
		),
		mpb.BarRemoveOnComplete(),
	)
	bar.SetCurrent(int64(task.Progress))
	b.bars[task.ID] = bar
}

// Wait blocks until every bar is complete or aborted.
func (b *Board) Wait() {
	b.progress.Wait()
}

// Writer returns an io.Writer that prints above the bars.
func (b *Board) Writer() io.Writer {
	return b.progress
}
