package logging

import (
	"strconv"
	"sync"
	"time"

	"github.com/filehop/filehop/internal/constants"
)

// Entry is one parsed log line handed to sinks.
type Entry struct {
	Time      time.Time
	Level     string
	Component string
	Message   string
	Fields    map[string]interface{}
}

// Sink receives every log entry. Implementations must not block for long;
// Write is called on the logging goroutine.
type Sink interface {
	Write(Entry)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Entry)

func (f SinkFunc) Write(e Entry) { f(e) }

// LogBuffer maintains a circular buffer of recent log entries and streams
// new entries to subscribers. It backs the in-process debug console.
type LogBuffer struct {
	mu       sync.RWMutex
	entries  []Entry
	maxSize  int
	writeIdx int
	count    int

	subMu       sync.RWMutex
	subscribers map[string]chan Entry
	nextSubID   int
}

// NewLogBuffer creates a new log buffer with the specified capacity.
func NewLogBuffer(maxSize int) *LogBuffer {
	if maxSize <= 0 {
		maxSize = constants.LogBufferSize
	}
	return &LogBuffer{
		entries:     make([]Entry, maxSize),
		maxSize:     maxSize,
		subscribers: make(map[string]chan Entry),
	}
}

// Write adds an entry to the buffer and notifies subscribers.
func (lb *LogBuffer) Write(entry Entry) {
	lb.mu.Lock()
	lb.entries[lb.writeIdx] = entry
	lb.writeIdx = (lb.writeIdx + 1) % lb.maxSize
	if lb.count < lb.maxSize {
		lb.count++
	}
	lb.mu.Unlock()

	lb.subMu.RLock()
	for _, ch := range lb.subscribers {
		select {
		case ch <- entry:
		default:
			// subscriber is slow, skip
		}
	}
	lb.subMu.RUnlock()
}

// GetRecent returns the most recent N log entries, oldest first.
func (lb *LogBuffer) GetRecent(n int) []Entry {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	if n <= 0 || lb.count == 0 {
		return nil
	}
	if n > lb.count {
		n = lb.count
	}

	result := make([]Entry, n)
	startIdx := (lb.writeIdx - n + lb.maxSize) % lb.maxSize
	for i := 0; i < n; i++ {
		result[i] = lb.entries[(startIdx+i)%lb.maxSize]
	}
	return result
}

// Len returns the number of buffered entries.
func (lb *LogBuffer) Len() int {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	return lb.count
}

// Subscribe creates a new subscription channel for real-time log streaming.
// Caller must call Unsubscribe when done.
func (lb *LogBuffer) Subscribe() (string, <-chan Entry) {
	lb.subMu.Lock()
	defer lb.subMu.Unlock()

	lb.nextSubID++
	id := strconv.Itoa(lb.nextSubID)
	ch := make(chan Entry, constants.LogSubscriberBuffer)
	lb.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscription and closes its channel.
func (lb *LogBuffer) Unsubscribe(id string) {
	lb.subMu.Lock()
	defer lb.subMu.Unlock()

	if ch, ok := lb.subscribers[id]; ok {
		close(ch)
		delete(lb.subscribers, id)
	}
}

// Clear removes all entries from the buffer.
func (lb *LogBuffer) Clear() {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.entries = make([]Entry, lb.maxSize)
	lb.writeIdx = 0
	lb.count = 0
}
