package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/filehop/filehop/internal/transfer"
)

// Single shows one progressbar for a one-file batch.
type Single struct {
	out io.Writer

	mu  sync.Mutex
	id  string
	bar *progressbar.ProgressBar
}

// NewSingle creates a single-bar display writing to out.
func NewSingle(out io.Writer) *Single {
	return &Single{out: out}
}

// TaskChanged implements transfer.Observer. Only the first task added is
// shown; later ones are ignored.
func (s *Single) TaskChanged(c transfer.Change) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch c.Kind {
	case transfer.ChangeAdded:
		if s.bar != nil {
			return
		}
		s.id = c.Task.ID
		s.bar = progressbar.NewOptions64(barTotal,
			progressbar.OptionSetDescription(fmt.Sprintf("%s %s", verb(c.Task.Direction), label(c.Task))),
			progressbar.OptionSetWriter(s.out),
			progressbar.OptionSetWidth(50),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionFullWidth(),
			progressbar.OptionSetRenderBlankState(true),
		)
	case transfer.ChangeUpdated:
		if s.bar == nil || c.Task.ID != s.id {
			return
		}
		if !c.Task.Status.IsTerminal() {
			_ = s.bar.Set(c.Task.Progress)
			return
		}
		if c.Task.Status == transfer.StatusCompleted {
			_ = s.bar.Finish()
		} else {
			_ = s.bar.Exit()
		}
		fmt.Fprint(s.out, "\n"+summary(c.Task))
		s.bar = nil
	case transfer.ChangeRemoved:
		if s.bar != nil && c.Task.ID == s.id {
			_ = s.bar.Exit()
			fmt.Fprintln(s.out)
			s.bar = nil
		}
	}
}

// Wait returns immediately; the bar renders synchronously.
func (s *Single) Wait() {}

// Writer returns the output writer.
func (s *Single) Writer() io.Writer {
	return s.out
}
