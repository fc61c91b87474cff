// Package transfer tracks upload and download tasks for display.
// The store OBSERVES transfers; execution belongs to the caller, which
// registers a task before its network call and patches it as bytes move.
package transfer

import (
	"time"

	"github.com/google/uuid"
)

// Direction indicates whether a task is an upload or download.
type Direction string

const (
	DirectionUpload   Direction = "upload"
	DirectionDownload Direction = "download"
)

// Status represents the current state of a transfer task.
type Status string

const (
	StatusQueued       Status = "queued"       // Registered, not yet moving bytes
	StatusTransferring Status = "transferring" // Network call in flight
	StatusCompleted    Status = "completed"    // Successfully completed
	StatusFailed       Status = "failed"       // Failed with error
	StatusCancelled    Status = "cancelled"    // Cancelled by user
)

// IsTerminal reports whether no further transitions are allowed from s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// rank orders statuses along the lifecycle; terminal states share a rank.
func (s Status) rank() int {
	switch s {
	case StatusQueued:
		return 0
	case StatusTransferring:
		return 1
	case StatusCompleted, StatusFailed, StatusCancelled:
		return 2
	default:
		return -1
	}
}

// TransferTask is one file moving between two devices.
// Values returned by the Store are copies; mutate through Store.UpdateTask.
type TransferTask struct {
	ID        string
	FileName  string
	FileSize  uint64 // bytes, fixed at creation from the source file or listing entry
	Direction Direction

	Status   Status
	Progress int     // percent, 0-100
	Speed    float64 // bytes/sec, reserved; always 0 today

	SourceDevice string // "local" or device IP
	TargetDevice string // "local" or device IP

	Error string // failure detail, set when Status is failed

	CreatedAt   time.Time
	CompletedAt time.Time
}

// NewTask creates a task in the transferring state with progress 0,
// the way every transfer is registered just before its network call.
func NewTask(dir Direction, fileName string, fileSize uint64, source, target string) TransferTask {
	return TransferTask{
		ID:           NewID(),
		FileName:     fileName,
		FileSize:     fileSize,
		Direction:    dir,
		Status:       StatusTransferring,
		SourceDevice: source,
		TargetDevice: target,
		CreatedAt:    time.Now(),
	}
}

// NewID returns a fresh collision-resistant task id.
func NewID() string {
	return uuid.NewString()
}

// IsTerminal returns true if the task is completed, failed, or cancelled.
func (t TransferTask) IsTerminal() bool {
	return t.Status.IsTerminal()
}

// Patch is a partial update; nil fields are left untouched.
type Patch struct {
	Status   *Status
	Progress *int
	Speed    *float64
	Error    *string
}

// ProgressPatch updates progress only.
func ProgressPatch(percent int) Patch {
	return Patch{Progress: &percent}
}

// CompletedPatch marks a task completed.
func CompletedPatch() Patch {
	s := StatusCompleted
	p := 100
	return Patch{Status: &s, Progress: &p}
}

// FailedPatch marks a task failed, keeping its last progress.
func FailedPatch(err error) Patch {
	s := StatusFailed
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return Patch{Status: &s, Error: &msg}
}

// CancelledPatch marks a task cancelled.
func CancelledPatch() Patch {
	s := StatusCancelled
	return Patch{Status: &s}
}

// apply merges p into t under the lifecycle rules and reports whether
// anything changed:
//   - terminal tasks are frozen
//   - status only moves forward (queued, transferring, terminal)
//   - progress is clamped to 0..100 and never decreases
//   - completed forces progress to 100
func (t *TransferTask) apply(p Patch, now time.Time) bool {
	if t.Status.IsTerminal() {
		return false
	}
	before := *t

	if p.Speed != nil {
		t.Speed = *p.Speed
	}
	if p.Progress != nil {
		pct := clampPercent(*p.Progress)
		if pct > t.Progress {
			t.Progress = pct
		}
	}
	if p.Status != nil && p.Status.rank() > t.Status.rank() {
		t.Status = *p.Status
	}
	if t.Status == StatusFailed && p.Error != nil {
		t.Error = *p.Error
	}
	if t.Status == StatusCompleted {
		t.Progress = 100
	}
	if t.Status.IsTerminal() {
		t.Speed = 0
		t.CompletedAt = now
	}

	return *t != before
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
