package transfer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/filehop/filehop/internal/events"
)

// Task tests

func TestNewTask(t *testing.T) {
	task := NewTask(DirectionUpload, "test.dat", 1024, "local", "192.168.1.9")

	if task.ID == "" {
		t.Error("Task ID should not be empty")
	}
	if task.Direction != DirectionUpload {
		t.Errorf("Expected upload, got %v", task.Direction)
	}
	if task.Status != StatusTransferring {
		t.Errorf("Expected transferring, got %v", task.Status)
	}
	if task.Progress != 0 {
		t.Errorf("Expected progress 0, got %d", task.Progress)
	}
	if task.Speed != 0 {
		t.Errorf("Expected speed 0, got %f", task.Speed)
	}
}

func TestNewID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewID()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestStatusIsTerminal(t *testing.T) {
	tests := []struct {
		status   Status
		terminal bool
	}{
		{StatusQueued, false},
		{StatusTransferring, false},
		{StatusCompleted, true},
		{StatusFailed, true},
		{StatusCancelled, true},
	}
	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.terminal {
			t.Errorf("%s.IsTerminal() = %v, want %v", tt.status, got, tt.terminal)
		}
	}
}

// Store tests

func newTestTask(name string) TransferTask {
	return NewTask(DirectionDownload, name, 1000, "192.168.1.9", "local")
}

func TestStore_AddPreservesOrder(t *testing.T) {
	s := NewStore(nil)
	a, b, c := newTestTask("a"), newTestTask("b"), newTestTask("c")
	s.AddTask(a)
	s.AddTask(b)
	s.AddTask(c)

	tasks := s.Tasks()
	if len(tasks) != 3 {
		t.Fatalf("Expected 3 tasks, got %d", len(tasks))
	}
	for i, want := range []string{"a", "b", "c"} {
		if tasks[i].FileName != want {
			t.Errorf("tasks[%d] = %s, want %s", i, tasks[i].FileName, want)
		}
	}
}

func TestStore_AddDuplicatePanics(t *testing.T) {
	s := NewStore(nil)
	task := newTestTask("a")
	s.AddTask(task)

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("Expected panic on duplicate id")
		}
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrDuplicateTask) {
			t.Errorf("Expected ErrDuplicateTask, got %v", r)
		}
		if s.Len() != 1 {
			t.Errorf("Expected store unchanged, got %d tasks", s.Len())
		}
	}()
	s.AddTask(task)
}

func TestStore_UpdateMergesPartialFields(t *testing.T) {
	s := NewStore(nil)
	task := newTestTask("a")
	s.AddTask(task)

	if !s.UpdateTask(task.ID, ProgressPatch(40)) {
		t.Fatal("UpdateTask returned false for existing task")
	}
	got, _ := s.Task(task.ID)
	if got.Progress != 40 {
		t.Errorf("Expected progress 40, got %d", got.Progress)
	}
	if got.FileName != "a" || got.FileSize != 1000 || got.Status != StatusTransferring {
		t.Errorf("Untouched fields changed: %+v", got)
	}
}

func TestStore_UpdateAbsentIsNoop(t *testing.T) {
	s := NewStore(nil)
	notified := 0
	s.Subscribe(ObserverFunc(func(Change) { notified++ }))

	if s.UpdateTask("missing", ProgressPatch(50)) {
		t.Error("UpdateTask should report false for absent id")
	}
	if notified != 0 {
		t.Errorf("Expected no notification, got %d", notified)
	}
	if s.Len() != 0 {
		t.Error("Store should remain empty")
	}
}

func TestStore_ProgressMonotonic(t *testing.T) {
	s := NewStore(nil)
	task := newTestTask("a")
	s.AddTask(task)

	s.UpdateTask(task.ID, ProgressPatch(60))
	s.UpdateTask(task.ID, ProgressPatch(30))
	got, _ := s.Task(task.ID)
	if got.Progress != 60 {
		t.Errorf("Progress went backwards: %d", got.Progress)
	}

	s.UpdateTask(task.ID, ProgressPatch(250))
	got, _ = s.Task(task.ID)
	if got.Progress != 100 {
		t.Errorf("Expected progress clamped to 100, got %d", got.Progress)
	}
}

func TestStore_CompletedForcesFullProgress(t *testing.T) {
	s := NewStore(nil)
	task := newTestTask("a")
	s.AddTask(task)
	s.UpdateTask(task.ID, ProgressPatch(12))

	status := StatusCompleted
	s.UpdateTask(task.ID, Patch{Status: &status})

	got, _ := s.Task(task.ID)
	if got.Status != StatusCompleted || got.Progress != 100 {
		t.Errorf("Expected completed at 100, got %s at %d", got.Status, got.Progress)
	}
	if got.CompletedAt.IsZero() {
		t.Error("CompletedAt should be set")
	}
}

func TestStore_AddCompletedForcesFullProgress(t *testing.T) {
	s := NewStore(nil)
	task := newTestTask("a")
	task.Status = StatusCompleted
	task.Progress = 50
	s.AddTask(task)

	got, _ := s.Task(task.ID)
	if got.Progress != 100 {
		t.Errorf("Expected completed task added at 100, got %d", got.Progress)
	}
}

func TestStore_FailedKeepsProgress(t *testing.T) {
	s := NewStore(nil)
	task := newTestTask("a")
	s.AddTask(task)
	s.UpdateTask(task.ID, ProgressPatch(35))
	s.UpdateTask(task.ID, FailedPatch(errors.New("connection reset")))

	got, _ := s.Task(task.ID)
	if got.Status != StatusFailed {
		t.Errorf("Expected failed, got %s", got.Status)
	}
	if got.Progress != 35 {
		t.Errorf("Expected progress 35 kept, got %d", got.Progress)
	}
	if got.Error != "connection reset" {
		t.Errorf("Expected error message stored, got %q", got.Error)
	}
}

func TestStore_TerminalIsFrozen(t *testing.T) {
	s := NewStore(nil)
	task := newTestTask("a")
	s.AddTask(task)
	s.UpdateTask(task.ID, CompletedPatch())

	transferring := StatusTransferring
	if s.UpdateTask(task.ID, Patch{Status: &transferring}) {
		t.Error("Terminal task should ignore updates")
	}
	if s.UpdateTask(task.ID, FailedPatch(errors.New("late"))) {
		t.Error("Completed task should not become failed")
	}
	got, _ := s.Task(task.ID)
	if got.Status != StatusCompleted || got.Error != "" {
		t.Errorf("Terminal task changed: %+v", got)
	}
}

func TestStore_StatusDoesNotMoveBackward(t *testing.T) {
	s := NewStore(nil)
	task := newTestTask("a")
	s.AddTask(task)

	queued := StatusQueued
	s.UpdateTask(task.ID, Patch{Status: &queued})
	got, _ := s.Task(task.ID)
	if got.Status != StatusTransferring {
		t.Errorf("Expected transferring, got %s", got.Status)
	}
}

func TestStore_RemoveAnyState(t *testing.T) {
	s := NewStore(nil)
	active := newTestTask("active")
	done := newTestTask("done")
	s.AddTask(active)
	s.AddTask(done)
	s.UpdateTask(done.ID, CompletedPatch())

	if !s.RemoveTask(active.ID) {
		t.Error("RemoveTask should remove a transferring task")
	}
	if !s.RemoveTask(done.ID) {
		t.Error("RemoveTask should remove a completed task")
	}
	if s.RemoveTask(done.ID) {
		t.Error("Second RemoveTask should report false")
	}
	if s.Len() != 0 {
		t.Errorf("Expected empty store, got %d", s.Len())
	}

	// A late update for a removed task is ignored.
	if s.UpdateTask(active.ID, ProgressPatch(80)) {
		t.Error("Update after removal should be a no-op")
	}
}

func TestStore_RemoveDoesNotCancel(t *testing.T) {
	s := NewStore(nil)
	task := newTestTask("a")
	s.AddTask(task)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.SetCancel(task.ID, cancel)

	s.RemoveTask(task.ID)
	if ctx.Err() != nil {
		t.Error("RemoveTask must not cancel the underlying operation")
	}
}

func TestStore_ObserversNotifiedSynchronously(t *testing.T) {
	s := NewStore(nil)
	var changes []Change
	s.Subscribe(ObserverFunc(func(c Change) { changes = append(changes, c) }))

	task := newTestTask("a")
	s.AddTask(task)
	if len(changes) != 1 || changes[0].Kind != ChangeAdded {
		t.Fatalf("Expected added notification before AddTask returned, got %v", changes)
	}

	s.UpdateTask(task.ID, ProgressPatch(50))
	if len(changes) != 2 || changes[1].Task.Progress != 50 {
		t.Fatalf("Expected update notification with progress 50, got %+v", changes)
	}

	s.RemoveTask(task.ID)
	if len(changes) != 3 || changes[2].Kind != ChangeRemoved {
		t.Fatalf("Expected removed notification, got %+v", changes)
	}
	if len(changes[2].Tasks) != 0 {
		t.Errorf("Snapshot after removal should be empty, got %d", len(changes[2].Tasks))
	}
}

func TestStore_ObserverCanReadStore(t *testing.T) {
	s := NewStore(nil)
	var seen int
	s.Subscribe(ObserverFunc(func(Change) { seen = s.Len() }))
	s.AddTask(newTestTask("a"))
	if seen != 1 {
		t.Errorf("Observer read %d tasks, want 1", seen)
	}
}

func TestStore_Unsubscribe(t *testing.T) {
	s := NewStore(nil)
	count := 0
	unsubscribe := s.Subscribe(ObserverFunc(func(Change) { count++ }))
	s.AddTask(newTestTask("a"))
	unsubscribe()
	unsubscribe()
	s.AddTask(newTestTask("b"))
	if count != 1 {
		t.Errorf("Expected 1 notification, got %d", count)
	}
}

func TestStore_Cancel(t *testing.T) {
	s := NewStore(nil)
	task := newTestTask("a")
	s.AddTask(task)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.SetCancel(task.ID, cancel)

	if err := s.Cancel(task.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if ctx.Err() == nil {
		t.Error("Cancel should invoke the stored cancel function")
	}
	got, _ := s.Task(task.ID)
	if got.Status != StatusCancelled {
		t.Errorf("Expected cancelled, got %s", got.Status)
	}

	// The failing network call reports afterwards; the task stays cancelled.
	s.UpdateTask(task.ID, FailedPatch(context.Canceled))
	got, _ = s.Task(task.ID)
	if got.Status != StatusCancelled {
		t.Errorf("Expected cancelled to stick, got %s", got.Status)
	}

	if err := s.Cancel(task.ID); !errors.Is(err, ErrNotCancellable) {
		t.Errorf("Expected ErrNotCancellable, got %v", err)
	}
	if err := s.Cancel("missing"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Expected ErrTaskNotFound, got %v", err)
	}
}

func TestStore_CancelBeforeSetCancel(t *testing.T) {
	s := NewStore(nil)
	task := newTestTask("a")
	s.AddTask(task)

	if err := s.Cancel(task.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.SetCancel(task.ID, cancel)
	if ctx.Err() == nil {
		t.Error("SetCancel on a cancelled task should invoke the function at once")
	}
}

func TestStore_SetCancelAfterFinishIsDropped(t *testing.T) {
	s := NewStore(nil)
	task := newTestTask("a")
	s.AddTask(task)
	s.UpdateTask(task.ID, CompletedPatch())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.SetCancel(task.ID, cancel)
	if ctx.Err() != nil {
		t.Error("SetCancel on a completed task should not cancel")
	}
}

func TestStore_Stats(t *testing.T) {
	s := NewStore(nil)
	ids := make([]string, 4)
	for i := range ids {
		task := newTestTask(fmt.Sprintf("f%d", i))
		ids[i] = task.ID
		s.AddTask(task)
	}
	s.UpdateTask(ids[0], CompletedPatch())
	s.UpdateTask(ids[1], FailedPatch(errors.New("boom")))

	stats := s.Stats()
	if stats.Completed != 1 || stats.Failed != 1 || stats.Transferring != 2 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
	if stats.Total() != 4 || stats.Active() != 2 {
		t.Errorf("Unexpected totals: total=%d active=%d", stats.Total(), stats.Active())
	}
}

func TestStore_ConcurrentUpdates(t *testing.T) {
	s := NewStore(nil)
	const n = 20
	ids := make([]string, n)
	for i := range ids {
		task := newTestTask(fmt.Sprintf("f%d", i))
		ids[i] = task.ID
		s.AddTask(task)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for p := 0; p <= 100; p += 10 {
				s.UpdateTask(id, ProgressPatch(p))
			}
			s.UpdateTask(id, CompletedPatch())
		}(id)
	}
	wg.Wait()

	if stats := s.Stats(); stats.Completed != n {
		t.Errorf("Expected %d completed, got %+v", n, stats)
	}
}

func TestStore_PublishesEvents(t *testing.T) {
	bus := events.NewEventBus(10)
	defer bus.Close()
	ch := bus.SubscribeAll()

	s := NewStore(bus)
	task := newTestTask("a")
	s.AddTask(task)
	s.UpdateTask(task.ID, CompletedPatch())

	want := []events.EventType{events.EventTransferAdded, events.EventTransferCompleted}
	for _, wt := range want {
		select {
		case ev := <-ch:
			if ev.Type() != wt {
				t.Errorf("Expected %s, got %s", wt, ev.Type())
			}
			te := ev.(*events.TransferEvent)
			if te.TaskID != task.ID {
				t.Errorf("Expected task %s, got %s", task.ID, te.TaskID)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("Timeout waiting for %s", wt)
		}
	}
}
