package webcodecs

import (
	"sync"
	"time"

	"github.com/eapache/queue"
)

// ControlQueue is a thread-safe, closable FIFO queue of control messages.
// Dequeue always returns messages in the order they were successfully
// enqueued; this is the sole mechanism by which output ordering is
// guaranteed, since the worker processes one message at a time.
type ControlQueue struct {
	mu     sync.Mutex
	items  *queue.Queue
	closed bool

	// notify carries at most one pending wakeup for the single blocked
	// dequeuer.
	notify chan struct{}
}

// NewControlQueue creates an empty open queue.
func NewControlQueue() *ControlQueue {
	return &ControlQueue{
		items:  queue.New(),
		notify: make(chan struct{}, 1),
	}
}

// Enqueue appends a message. It returns false if the queue has been shut
// down; the caller must not assume the message was accepted. Enqueue
// never blocks.
func (q *ControlQueue) Enqueue(m *ControlMessage) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items.Add(m)
	q.mu.Unlock()
	q.wake()
	return true
}

// DequeueBlocking removes the oldest message, waiting up to timeout for
// one to arrive. It returns (nil, true) on timeout and (nil, false) once
// the queue has been shut down and drained.
func (q *ControlQueue) DequeueBlocking(timeout time.Duration) (*ControlMessage, bool) {
	deadline := time.Now().Add(timeout)
	for {
		q.mu.Lock()
		if q.items.Length() > 0 {
			m := q.items.Remove().(*ControlMessage)
			q.mu.Unlock()
			return m, true
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return nil, false
		}
		remain := time.Until(deadline)
		if remain <= 0 {
			return nil, true
		}
		t := time.NewTimer(remain)
		select {
		case <-q.notify:
		case <-t.C:
		}
		t.Stop()
	}
}

// Shutdown closes the queue and wakes a blocked dequeue. Idempotent.
// Messages already enqueued remain dequeueable (or drainable); further
// Enqueue calls return false.
func (q *ControlQueue) Shutdown() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wake()
}

// ClearPending removes and returns all queued Process messages,
// preserving the relative order of everything else. Reset uses this to
// discard work that is now pointless; the caller is responsible for
// disposing of the returned messages' payloads.
func (q *ControlQueue) ClearPending() []*ControlMessage {
	q.mu.Lock()
	defer q.mu.Unlock()

	var dropped []*ControlMessage
	n := q.items.Length()
	for i := 0; i < n; i++ {
		m := q.items.Remove().(*ControlMessage)
		if m.kind == msgProcess {
			dropped = append(dropped, m)
		} else {
			q.items.Add(m)
		}
	}
	return dropped
}

// Drain removes and returns every queued message. Used on close and on
// fatal errors, after which nothing will be processed.
func (q *ControlQueue) Drain() []*ControlMessage {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]*ControlMessage, 0, q.items.Length())
	for q.items.Length() > 0 {
		out = append(out, q.items.Remove().(*ControlMessage))
	}
	return out
}

// Len returns the number of queued messages.
func (q *ControlQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Length()
}

func (q *ControlQueue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
