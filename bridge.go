package webcodecs

import (
	"sync"
	"time"
)

// deliveryKind tags a result crossing from the worker back to the caller.
type deliveryKind uint8

const (
	deliverOutput deliveryKind = iota + 1
	deliverError
	deliverCompletion
	deliverProgress
)

// delivery is one result handed from the worker goroutine to the
// caller's delivery context.
type delivery struct {
	kind         deliveryKind
	sample       *Sample // output
	err          error   // error, or completion failure
	completionID uint64  // completion
}

// discard releases resources still owned by an undeliverable payload. A
// dropped delivery must never leak its pooled buffer.
func (d *delivery) discard() {
	if d.sample != nil {
		d.sample.release()
		d.sample = nil
	}
}

// callbackBridge is the safe cross-goroutine delivery mechanism. The
// worker enqueues results; a dedicated delivery goroutine invokes the
// sink with each one, in order. Only that goroutine ever calls the
// sink, and Release joins it before returning, so once Release has
// returned no queued-but-undelivered result can ever execute. mu guards
// the counters, never a sink call, keeping WaitIdle responsive while a
// sink is blocked.
type callbackBridge struct {
	mu      sync.Mutex
	idle    *sync.Cond // signalled when pending drops to zero
	active  bool
	pending int

	sink func(*delivery)
	ch   chan *delivery
	done chan struct{}
	wg   sync.WaitGroup
}

func newCallbackBridge(sink func(*delivery)) *callbackBridge {
	b := &callbackBridge{
		active: true,
		sink:   sink,
		ch:     make(chan *delivery, 256),
		done:   make(chan struct{}),
	}
	b.idle = sync.NewCond(&b.mu)
	b.wg.Add(1)
	go b.run()
	return b
}

// Call hands a result to the delivery goroutine. It returns false, after
// releasing the payload's resources, if the bridge has been released;
// the result is then gone, never delivered late.
func (b *callbackBridge) Call(d *delivery) bool {
	b.mu.Lock()
	if !b.active {
		b.mu.Unlock()
		d.discard()
		return false
	}
	b.pending++
	b.mu.Unlock()

	select {
	case b.ch <- d:
		return true
	case <-b.done:
		d.discard()
		b.decrement()
		return false
	}
}

// Active reports whether the bridge still accepts calls.
func (b *callbackBridge) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

// WaitIdle blocks until every accepted delivery has been consumed, or
// until timeout elapses. It returns true when the bridge is idle.
func (b *callbackBridge) WaitIdle(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	wakeup := time.AfterFunc(timeout, func() {
		b.mu.Lock()
		b.idle.Broadcast()
		b.mu.Unlock()
	})
	defer wakeup.Stop()

	b.mu.Lock()
	defer b.mu.Unlock()
	for b.pending > 0 && time.Now().Before(deadline) {
		b.idle.Wait()
	}
	return b.pending == 0
}

// Release deactivates the bridge and stops the delivery goroutine.
// Idempotent. After Release returns, Call always returns false and no
// sink invocation is in flight or will ever start. Payloads still queued
// are released, not delivered.
func (b *callbackBridge) Release() {
	b.mu.Lock()
	if !b.active {
		b.mu.Unlock()
		return
	}
	b.active = false
	b.mu.Unlock()

	close(b.done)
	b.wg.Wait()

	// Discard stragglers: every accepted call either reached the channel
	// (we drain it here) or is about to self-decrement via its done
	// branch, so this loop terminates.
	for {
		b.mu.Lock()
		p := b.pending
		b.mu.Unlock()
		if p == 0 {
			return
		}
		select {
		case d := <-b.ch:
			d.discard()
			b.decrement()
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func (b *callbackBridge) run() {
	defer b.wg.Done()
	for {
		select {
		case d := <-b.ch:
			b.mu.Lock()
			active := b.active
			b.mu.Unlock()
			if active {
				b.sink(d)
			} else {
				d.discard()
			}
			b.decrement()
		case <-b.done:
			return
		}
	}
}

func (b *callbackBridge) decrement() {
	b.mu.Lock()
	b.pending--
	if b.pending == 0 {
		b.idle.Broadcast()
	}
	b.mu.Unlock()
}
