// Package events is the asynchronous fan-out used by long-lived consumers
// (progress board, metrics, log tailing). Producers never block on it:
// a subscriber that falls behind loses events rather than stalling a transfer.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/filehop/filehop/internal/constants"
)

// EventType defines the types of events that can be emitted
type EventType string

const (
	EventLog EventType = "log"

	// Transfer task lifecycle
	EventTransferAdded     EventType = "transfer_added"     // Task registered with the store
	EventTransferProgress  EventType = "transfer_progress"  // Progress or other field update
	EventTransferCompleted EventType = "transfer_completed" // Successfully completed
	EventTransferFailed    EventType = "transfer_failed"    // Failed with error
	EventTransferCancelled EventType = "transfer_cancelled" // Cancelled by user
	EventTransferRemoved   EventType = "transfer_removed"   // Dropped from the store

	// Devices and browsing
	EventDevicesChanged EventType = "devices_changed" // Registry snapshot replaced
	EventListingChanged EventType = "listing_changed" // Browser entries, path or error changed
)

// LogLevel defines log severity levels
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// LogEvent represents log messages
type LogEvent struct {
	BaseEvent
	Level   LogLevel
	Message string
	Source  string
	Error   error
}

// TransferEvent mirrors one transfer task after a store mutation.
type TransferEvent struct {
	BaseEvent
	TaskID       string
	Direction    string // "upload" or "download"
	Name         string // file name
	Size         uint64 // bytes, 0 when unknown
	Status       string
	Progress     int // 0-100
	SourceDevice string
	TargetDevice string
	Error        string
}

// DevicesChangedEvent carries the number of reachable devices after a poll.
// Consumers read the registry for the snapshot itself.
type DevicesChangedEvent struct {
	BaseEvent
	Count int
}

// ListingEvent reports a change to the browsing state.
type ListingEvent struct {
	BaseEvent
	Device  string
	Path    string
	Entries int
	Error   error // non-nil when the last refresh failed and the listing is stale
}

// anyEvent keys the subscribers that receive every event type.
const anyEvent EventType = "*"

// EventBus fans events out to buffered subscriber channels.
type EventBus struct {
	mu         sync.RWMutex
	subs       map[EventType][]chan Event
	bufferSize int
	closed     bool
	dropped    atomic.Int64
}

// NewEventBus creates a bus whose subscriber channels hold bufferSize
// events, clamped to the configured bounds.
func NewEventBus(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = constants.EventBusDefaultBuffer
	}
	bufferSize = min(bufferSize, constants.EventBusMaxBuffer)
	return &EventBus{
		subs:       make(map[EventType][]chan Event),
		bufferSize: bufferSize,
	}
}

// Subscribe returns a channel receiving events of one type.
// The channel is already closed if the bus is.
func (eb *EventBus) Subscribe(eventType EventType) <-chan Event {
	return eb.subscribe(eventType)
}

// SubscribeAll returns a channel receiving every event.
func (eb *EventBus) SubscribeAll() <-chan Event {
	return eb.subscribe(anyEvent)
}

func (eb *EventBus) subscribe(key EventType) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}
	ch := make(chan Event, eb.bufferSize)
	eb.subs[key] = append(eb.subs[key], ch)
	return ch
}

// Publish delivers event to its subscribers without blocking. A full
// channel misses the event and the drop is counted. Safe on a nil bus.
func (eb *EventBus) Publish(event Event) {
	if eb == nil {
		return
	}
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}
	eb.deliver(eb.subs[event.Type()], event)
	eb.deliver(eb.subs[anyEvent], event)
}

func (eb *EventBus) deliver(chans []chan Event, event Event) {
	for _, ch := range chans {
		select {
		case ch <- event:
		default:
			eb.dropped.Add(1)
		}
	}
}

// Close closes every subscriber channel. Later publishes are ignored.
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}
	eb.closed = true
	for _, chans := range eb.subs {
		for _, ch := range chans {
			close(ch)
		}
	}
}

// PublishLog publishes a LogEvent stamped now.
func (eb *EventBus) PublishLog(level LogLevel, message, source string, err error) {
	eb.Publish(&LogEvent{
		BaseEvent: BaseEvent{
			EventType: EventLog,
			Time:      time.Now(),
		},
		Level:   level,
		Message: message,
		Source:  source,
		Error:   err,
	})
}

// PublishDevicesChanged publishes the reachable device count after a poll.
func (eb *EventBus) PublishDevicesChanged(count int) {
	eb.Publish(&DevicesChangedEvent{
		BaseEvent: BaseEvent{
			EventType: EventDevicesChanged,
			Time:      time.Now(),
		},
		Count: count,
	})
}

// Unsubscribe stops delivery of eventType to ch. The channel is not closed.
func (eb *EventBus) Unsubscribe(eventType EventType, ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.remove(eventType, ch)
}

// UnsubscribeAll stops all delivery to ch, whichever way it subscribed.
func (eb *EventBus) UnsubscribeAll(ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	for key := range eb.subs {
		eb.remove(key, ch)
	}
}

func (eb *EventBus) remove(key EventType, ch <-chan Event) {
	chans := eb.subs[key]
	for i, c := range chans {
		if c == ch {
			eb.subs[key] = append(chans[:i], chans[i+1:]...)
			return
		}
	}
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (eb *EventBus) Dropped() int64 {
	return eb.dropped.Load()
}
