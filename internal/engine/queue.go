package engine

import (
	"context"
	"sync"

	"github.com/roach88/patchlib/internal/library"
)

// EventType distinguishes between event kinds.
type EventType int

const (
	// EventRefresh rebuilds the view from the record source.
	EventRefresh EventType = iota + 1
	// EventRowEdited re-reads a single sound after an in-place edit.
	EventRowEdited
	// EventApply runs an arbitrary mutation on the loop goroutine.
	EventApply
)

func (t EventType) String() string {
	switch t {
	case EventRefresh:
		return "refresh"
	case EventRowEdited:
		return "row-edited"
	case EventApply:
		return "apply"
	default:
		return "unknown"
	}
}

// Event is one unit of work for the Run loop.
type Event struct {
	Type  EventType
	UID   library.UID                     // EventRowEdited
	Apply func(ctx context.Context) error // EventApply

	// Done, if set, receives the result once the event is processed. It
	// should be buffered; the loop never blocks on it.
	Done chan<- error
}

// RefreshEvent requests a structural refresh.
func RefreshEvent() Event {
	return Event{Type: EventRefresh}
}

// RowEditedEvent requests a single-row refresh of uid.
func RowEditedEvent(uid library.UID) Event {
	return Event{Type: EventRowEdited, UID: uid}
}

// ApplyEvent runs fn on the loop goroutine.
func ApplyEvent(fn func(ctx context.Context) error) Event {
	return Event{Type: EventApply, Apply: fn}
}

// eventQueue is an unbounded, thread-safe FIFO of events.
//
// Any goroutine may enqueue; only the Run loop dequeues. The signal channel
// lets Run wait on both new events and context cancellation.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	closed bool
	signal chan struct{} // buffered, size 1
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, e)

	// Buffer of 1 coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front event without blocking.
// Returns (Event{}, false) if the queue is empty.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}

	e := q.events[0]
	// Drop the reference so Apply closures can be collected.
	q.events[0] = Event{}
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}

	return e, true
}

// Wait returns a channel that signals when events may be available. It is
// closed when the queue is closed.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close stops further enqueues and wakes the waiter.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}

// Drain removes and returns every pending event.
func (q *eventQueue) Drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Event, len(q.events))
	copy(out, q.events)
	q.events = q.events[:0]
	return out
}
