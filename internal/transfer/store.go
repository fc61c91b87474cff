package transfer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/filehop/filehop/internal/events"
)

var (
	// ErrDuplicateTask is the panic value of AddTask for an id already present.
	// Ids come from NewID, so a duplicate is a programming error.
	ErrDuplicateTask = errors.New("duplicate transfer task id")

	// ErrTaskNotFound is returned by Cancel for an unknown id.
	ErrTaskNotFound = errors.New("task not found")

	// ErrNotCancellable is returned by Cancel for a task already in a terminal state.
	ErrNotCancellable = errors.New("task is not in progress")
)

// ChangeKind says which mutation produced a Change.
type ChangeKind int

const (
	ChangeAdded ChangeKind = iota
	ChangeUpdated
	ChangeRemoved
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAdded:
		return "added"
	case ChangeUpdated:
		return "updated"
	case ChangeRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Change describes one store mutation.
type Change struct {
	Kind  ChangeKind
	Task  TransferTask   // the task after the change (before it, for removals)
	Tasks []TransferTask // full snapshot in insertion order
}

// Observer receives every store mutation synchronously, in order.
// Observers may read the store but must not mutate it from the callback.
type Observer interface {
	TaskChanged(Change)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Change)

func (f ObserverFunc) TaskChanged(c Change) { f(c) }

// Stats holds task counts by status.
type Stats struct {
	Queued       int
	Transferring int
	Completed    int
	Failed       int
	Cancelled    int
}

// Total returns total number of tasks.
func (s Stats) Total() int {
	return s.Queued + s.Transferring + s.Completed + s.Failed + s.Cancelled
}

// Active returns the number of non-terminal tasks.
func (s Stats) Active() int {
	return s.Queued + s.Transferring
}

type observerEntry struct {
	id  int
	obs Observer
}

// Store is the single source of truth for transfer tasks.
//
// Every mutation runs under dispatchMu together with its notifications, so
// observers see changes one at a time and in the order they happened, and
// a concurrent merge-by-id never loses a field written by another caller.
// Asynchronous consumers can subscribe to the event bus instead.
type Store struct {
	dispatchMu sync.Mutex

	mu        sync.RWMutex
	tasks     []*TransferTask          // insertion order
	tasksByID map[string]*TransferTask // index by ID

	cancelFuncs map[string]context.CancelFunc

	observers    []observerEntry
	nextObserver int

	eventBus *events.EventBus
	now      func() time.Time
}

// NewStore creates an empty store. eventBus may be nil.
func NewStore(eventBus *events.EventBus) *Store {
	return &Store{
		tasks:       make([]*TransferTask, 0),
		tasksByID:   make(map[string]*TransferTask),
		cancelFuncs: make(map[string]context.CancelFunc),
		eventBus:    eventBus,
		now:         time.Now,
	}
}

// Subscribe registers an observer and returns a function that removes it.
func (s *Store) Subscribe(obs Observer) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextObserver
	s.nextObserver++
	s.observers = append(s.observers, observerEntry{id: id, obs: obs})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, e := range s.observers {
				if e.id == id {
					s.observers = append(s.observers[:i], s.observers[i+1:]...)
					break
				}
			}
		})
	}
}

// AddTask appends task at the tail. It panics with ErrDuplicateTask if the id
// is already present.
func (s *Store) AddTask(task TransferTask) {
	if task.ID == "" {
		panic(fmt.Errorf("%w: empty id", ErrDuplicateTask))
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = s.now()
	}
	task.Progress = clampPercent(task.Progress)
	if task.Status == StatusCompleted {
		task.Progress = 100
	}

	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	if _, exists := s.tasksByID[task.ID]; exists {
		s.mu.Unlock()
		panic(fmt.Errorf("%w: %s", ErrDuplicateTask, task.ID))
	}
	stored := task
	s.tasks = append(s.tasks, &stored)
	s.tasksByID[task.ID] = &stored
	change := s.changeLocked(ChangeAdded, stored)
	observers := s.observersLocked()
	s.mu.Unlock()

	s.dispatch(observers, change, events.EventTransferAdded)
}

// UpdateTask merges p into the task with the given id. It returns false and
// notifies nobody when the id is absent or the patch changes nothing
// (a finished task ignores late updates).
func (s *Store) UpdateTask(id string, p Patch) bool {
	ok, _ := s.update(id, p)
	return ok
}

// update applies p and, when the task became terminal, hands back the
// cancel function it had registered.
func (s *Store) update(id string, p Patch) (bool, context.CancelFunc) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	task, exists := s.tasksByID[id]
	if !exists {
		s.mu.Unlock()
		return false, nil
	}
	wasTerminal := task.IsTerminal()
	if !task.apply(p, s.now()) {
		s.mu.Unlock()
		return false, nil
	}
	var cancel context.CancelFunc
	if task.IsTerminal() {
		cancel = s.cancelFuncs[id]
		delete(s.cancelFuncs, id)
	}
	change := s.changeLocked(ChangeUpdated, *task)
	observers := s.observersLocked()
	s.mu.Unlock()

	eventType := events.EventTransferProgress
	if !wasTerminal {
		switch change.Task.Status {
		case StatusCompleted:
			eventType = events.EventTransferCompleted
		case StatusFailed:
			eventType = events.EventTransferFailed
		case StatusCancelled:
			eventType = events.EventTransferCancelled
		}
	}
	s.dispatch(observers, change, eventType)
	return true, cancel
}

// RemoveTask deletes a task in any state. It does not stop the task's
// network call; a later UpdateTask for the id is a no-op.
func (s *Store) RemoveTask(id string) bool {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	task, exists := s.tasksByID[id]
	if !exists {
		s.mu.Unlock()
		return false
	}
	removed := *task
	s.removeLocked(id)
	change := s.changeLocked(ChangeRemoved, removed)
	observers := s.observersLocked()
	s.mu.Unlock()

	s.dispatch(observers, change, events.EventTransferRemoved)
	return true
}

// SetCancel stores the cancel function of the operation behind a task.
// It is cleared when the task reaches a terminal state or is removed. A task
// that was cancelled before its function arrived gets it called at once.
func (s *Store) SetCancel(id string, cancel context.CancelFunc) {
	s.mu.Lock()
	task, ok := s.tasksByID[id]
	switch {
	case ok && !task.IsTerminal():
		s.cancelFuncs[id] = cancel
		s.mu.Unlock()
	case ok && task.Status == StatusCancelled:
		s.mu.Unlock()
		cancel()
	default:
		s.mu.Unlock()
	}
}

// Cancel marks an in-progress task cancelled and then invokes its stored
// cancel function. The task is frozen first so the failing network call
// cannot overwrite the cancelled state.
func (s *Store) Cancel(id string) error {
	s.mu.RLock()
	task, exists := s.tasksByID[id]
	var terminal bool
	if exists {
		terminal = task.IsTerminal()
	}
	s.mu.RUnlock()

	if !exists {
		return ErrTaskNotFound
	}
	if terminal {
		return ErrNotCancellable
	}

	ok, cancel := s.update(id, CancelledPatch())
	if !ok {
		return ErrNotCancellable
	}
	if cancel != nil {
		cancel()
	}
	return nil
}

// Tasks returns copies of all tasks in insertion order.
func (s *Store) Tasks() []TransferTask {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Task returns a copy of a specific task by ID.
func (s *Store) Task(id string) (TransferTask, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, exists := s.tasksByID[id]
	if !exists {
		return TransferTask{}, false
	}
	return *task, true
}

// Len returns the number of tasks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// Stats returns current task counts.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{}
	for _, task := range s.tasks {
		switch task.Status {
		case StatusQueued:
			stats.Queued++
		case StatusTransferring:
			stats.Transferring++
		case StatusCompleted:
			stats.Completed++
		case StatusFailed:
			stats.Failed++
		case StatusCancelled:
			stats.Cancelled++
		}
	}
	return stats
}

func (s *Store) removeLocked(id string) {
	delete(s.tasksByID, id)
	delete(s.cancelFuncs, id)
	for i, t := range s.tasks {
		if t.ID == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return
		}
	}
}

func (s *Store) snapshotLocked() []TransferTask {
	result := make([]TransferTask, len(s.tasks))
	for i, task := range s.tasks {
		result[i] = *task
	}
	return result
}

func (s *Store) changeLocked(kind ChangeKind, task TransferTask) Change {
	return Change{Kind: kind, Task: task, Tasks: s.snapshotLocked()}
}

func (s *Store) observersLocked() []Observer {
	out := make([]Observer, len(s.observers))
	for i, e := range s.observers {
		out[i] = e.obs
	}
	return out
}

// dispatch runs with dispatchMu held and s.mu released.
func (s *Store) dispatch(observers []Observer, change Change, eventType events.EventType) {
	for _, obs := range observers {
		obs.TaskChanged(change)
	}
	s.publishTransferEvent(eventType, change.Task)
}

func (s *Store) publishTransferEvent(eventType events.EventType, task TransferTask) {
	if s.eventBus == nil {
		return
	}

	s.eventBus.Publish(&events.TransferEvent{
		BaseEvent: events.BaseEvent{
			EventType: eventType,
			Time:      s.now(),
		},
		TaskID:       task.ID,
		Direction:    string(task.Direction),
		Name:         task.FileName,
		Size:         task.FileSize,
		Status:       string(task.Status),
		Progress:     task.Progress,
		SourceDevice: task.SourceDevice,
		TargetDevice: task.TargetDevice,
		Error:        task.Error,
	})
}
