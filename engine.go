package webcodecs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pion/logging"
)

// Default backpressure and lifecycle tuning.
const (
	// DefaultSoftLimit is the queue depth at which the engine raises the
	// advisory saturation signal.
	DefaultSoftLimit = 16
	// DefaultHardLimit is the queue depth at which Submit starts failing
	// synchronously with ErrQuotaExceeded.
	DefaultHardLimit = 64
	// DefaultMaxPendingFlushes caps the pending-completion table so its
	// growth is structurally bounded.
	DefaultMaxPendingFlushes = 32
	// DefaultPollInterval is how often the blocked worker re-checks its
	// stop signal.
	DefaultPollInterval = 50 * time.Millisecond
	// DefaultCloseTimeout bounds how long Close waits for in-flight
	// deliveries to drain before releasing the bridge anyway.
	DefaultCloseTimeout = 5 * time.Second
)

// EngineOptions configures an Engine.
type EngineOptions struct {
	// Backend is the codec implementation the worker will own. Required.
	Backend CodecBackend

	// OnOutput receives each produced sample, in strict production
	// order, on the delivery goroutine. The sample is only valid for the
	// duration of the callback.
	OnOutput func(*Sample)
	// OnError receives per-message codec errors. The worker keeps
	// running unless the error was fatal.
	OnError func(error)
	// OnSaturationChanged fires when the queue crosses the soft limit in
	// either direction. Rising edges fire synchronously on the goroutine
	// calling Submit; falling edges on the delivery goroutine.
	OnSaturationChanged func(saturated bool)

	SoftLimit         int
	HardLimit         int
	MaxPendingFlushes int
	PollInterval      time.Duration
	CloseTimeout      time.Duration
	PoolSize          int

	// Logger receives lifecycle diagnostics. Defaults to the pion
	// default logger factory.
	Logger logging.LeveledLogger
}

// EngineStats is a point-in-time snapshot of engine counters.
type EngineStats struct {
	Submitted  uint64 // control messages accepted by Submit
	Delivered  uint64 // output samples handed to OnOutput
	Errors     uint64 // errors handed to OnError
	Discarded  uint64 // process messages dropped by reset/close/fatal drain
	Flushes    uint64 // flush futures created
	PeakDepth  int    // highest queue depth observed
	QueueDepth int    // current queue depth
}

// Engine bridges a non-blocking caller to a blocking codec backend.
//
// The caller's goroutine never blocks inside an Engine method: Submit
// validates and enqueues, Flush returns a future immediately, Reset and
// Close signal and return (Close additionally waits, bounded, for
// delivery drain). Exactly one worker goroutine owns the codec resource.
type Engine struct {
	opts   EngineOptions
	queue  *ControlQueue
	pool   *BufferPool
	bridge *callbackBridge
	worker *codecWorker
	log    logging.LeveledLogger

	mu             sync.Mutex
	depth          int
	saturated      bool
	started        bool
	closed         bool
	nextCompletion uint64
	pending        map[uint64]*FlushFuture
	stats          EngineStats
}

// NewEngine creates an engine around the given backend. The worker
// goroutine is not started until the first Configure message is
// submitted.
func NewEngine(opts EngineOptions) (*Engine, error) {
	if opts.Backend == nil {
		return nil, errors.New("webcodecs: EngineOptions.Backend is required")
	}
	if opts.SoftLimit <= 0 {
		opts.SoftLimit = DefaultSoftLimit
	}
	if opts.HardLimit <= 0 {
		opts.HardLimit = DefaultHardLimit
	}
	if opts.HardLimit < opts.SoftLimit {
		opts.HardLimit = opts.SoftLimit
	}
	if opts.MaxPendingFlushes <= 0 {
		opts.MaxPendingFlushes = DefaultMaxPendingFlushes
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.CloseTimeout <= 0 {
		opts.CloseTimeout = DefaultCloseTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewDefaultLoggerFactory().NewLogger("webcodecs")
	}

	e := &Engine{
		opts:    opts,
		queue:   NewControlQueue(),
		pool:    NewBufferPool(opts.PoolSize),
		log:     opts.Logger,
		pending: make(map[uint64]*FlushFuture),
	}
	e.bridge = newCallbackBridge(e.handleDelivery)
	e.worker = newCodecWorker(e.queue, newResourceHandle(opts.Backend), e.pool, e.bridge, e.log, opts.PollInterval)
	return e, nil
}

// Submit enqueues a Configure or Process control message. It never
// blocks. For Process messages the hard circuit breaker is checked
// synchronously before any queue interaction; when it trips, nothing is
// enqueued and ErrQuotaExceeded is returned immediately.
func (e *Engine) Submit(m *ControlMessage) error {
	if m == nil {
		return errors.New("webcodecs: nil control message")
	}

	var notifySaturated bool
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		m.discard()
		return ErrClosed
	}
	if !e.worker.Running() && e.started {
		// The worker died on a fatal error; this instance is done.
		e.mu.Unlock()
		m.discard()
		return ErrShutdown
	}

	switch m.kind {
	case msgProcess:
		if e.depth >= e.opts.HardLimit {
			e.mu.Unlock()
			m.discard()
			return ErrQuotaExceeded
		}
		e.adoptInputLocked(m)
		e.depth++
		if e.depth > e.stats.PeakDepth {
			e.stats.PeakDepth = e.depth
		}
		if !e.saturated && e.depth >= e.opts.SoftLimit {
			e.saturated = true
			notifySaturated = true
		}
	case msgConfigure:
		if !e.started {
			e.started = true
			e.worker.Start()
		}
	}
	e.stats.Submitted++
	e.mu.Unlock()

	if !e.queue.Enqueue(m) {
		e.mu.Lock()
		if m.kind == msgProcess {
			e.depth--
		}
		e.mu.Unlock()
		m.discard()
		return ErrClosed
	}
	if notifySaturated {
		e.notifySaturation(true)
	}
	return nil
}

// notifySaturation invokes the saturation callback directly on the
// calling goroutine. Saturation edges never travel through the delivery
// channel: a full channel behind a slow output consumer would turn a
// non-blocking Submit into a blocking one.
func (e *Engine) notifySaturation(saturated bool) {
	if cb := e.opts.OnSaturationChanged; cb != nil {
		cb(saturated)
	}
}

// adoptInputLocked copies a caller-owned payload into a pooled buffer so
// the caller may reuse its slice as soon as Submit returns.
func (e *Engine) adoptInputLocked(m *ControlMessage) {
	in := m.input
	if in == nil || in.buf != nil || len(in.Data) == 0 {
		return
	}
	buf := e.pool.Acquire(len(in.Data))
	copy(buf.Bytes(), in.Data)
	in.Data = buf.Bytes()
	in.buf = buf
}

// Flush returns a future that settles exactly once: resolved after every
// output from every Process enqueued before it has been delivered, or
// rejected (ErrShutdown, a flush error, or a state error) otherwise. It
// never blocks and the future is never left pending forever.
func (e *Engine) Flush() *FlushFuture {
	f := newFlushFuture()

	e.mu.Lock()
	switch {
	case e.closed:
		e.mu.Unlock()
		f.settle(ErrClosed)
		return f
	case !e.started:
		e.mu.Unlock()
		f.settle(ErrNotConfigured)
		return f
	case !e.worker.Running():
		e.mu.Unlock()
		f.settle(ErrShutdown)
		return f
	case len(e.pending) >= e.opts.MaxPendingFlushes:
		e.mu.Unlock()
		f.settle(ErrTooManyFlushes)
		return f
	}
	e.nextCompletion++
	id := e.nextCompletion
	e.pending[id] = f
	e.stats.Flushes++
	e.mu.Unlock()

	if !e.queue.Enqueue(newFlushMessage(id)) {
		e.settleFlush(id, ErrShutdown)
	}
	return f
}

// Reset discards queued Process messages immediately and asks the worker
// to drop all codec history. Anything not yet produced is discarded, not
// merely delayed. Reset on a closed or never-configured engine is a
// no-op.
func (e *Engine) Reset() error {
	e.mu.Lock()
	if e.closed || !e.started {
		e.mu.Unlock()
		return nil
	}
	dropped := e.queue.ClearPending()
	e.depth -= len(dropped)
	e.stats.Discarded += uint64(len(dropped))
	var notifyUnsaturated bool
	if e.saturated && e.depth < e.opts.SoftLimit {
		e.saturated = false
		notifyUnsaturated = true
	}
	e.mu.Unlock()

	for _, m := range dropped {
		m.discard()
	}
	e.queue.Enqueue(newResetMessage())
	if notifyUnsaturated {
		e.notifySaturation(false)
	}
	return nil
}

// Close tears the engine down: queued work is aborted, the worker runs a
// best-effort flush and stops, in-flight deliveries are drained with a
// bounded wait, the bridge is released, and every still-pending flush
// future settles with ErrShutdown. Idempotent.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	started := e.started
	e.mu.Unlock()

	// Abort the backlog before the worker sees Close, so close is
	// immediate rather than a drain of everything queued.
	var failedFlushes []uint64
	droppedProcess := 0
	for _, m := range e.queue.Drain() {
		switch m.kind {
		case msgProcess:
			m.discard()
			droppedProcess++
		case msgFlush:
			failedFlushes = append(failedFlushes, m.completionID)
		}
	}
	e.mu.Lock()
	e.depth -= droppedProcess
	e.stats.Discarded += uint64(droppedProcess)
	e.mu.Unlock()
	for _, id := range failedFlushes {
		e.settleFlush(id, ErrShutdown)
	}

	if started {
		e.queue.Enqueue(newCloseMessage())
	}
	e.queue.Shutdown()
	e.worker.Stop()

	if !e.bridge.WaitIdle(e.opts.CloseTimeout) {
		e.log.Warnf("close: timed out after %v waiting for deliveries to drain", e.opts.CloseTimeout)
	}
	e.bridge.Release()

	// Any completion that never made it through the bridge still gets a
	// terminal resolution.
	e.mu.Lock()
	remaining := e.pending
	e.pending = make(map[uint64]*FlushFuture)
	e.mu.Unlock()
	for _, f := range remaining {
		f.settle(ErrShutdown)
	}
	return nil
}

// QueueDepth returns the number of Process messages accepted but not yet
// completed.
func (e *Engine) QueueDepth() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.depth
}

// Saturated reports whether the advisory soft limit is currently
// exceeded.
func (e *Engine) Saturated() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saturated
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() EngineStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.stats
	s.QueueDepth = e.depth
	return s
}

// handleDelivery is the bridge sink. It runs on the delivery goroutine,
// serialized with bridge release, and is the only place output and error
// callbacks are ever invoked from.
func (e *Engine) handleDelivery(d *delivery) {
	switch d.kind {
	case deliverOutput:
		e.mu.Lock()
		e.stats.Delivered++
		cb := e.opts.OnOutput
		e.mu.Unlock()
		if cb != nil {
			cb(d.sample)
		}
		d.sample.release()

	case deliverError:
		e.mu.Lock()
		e.stats.Errors++
		cb := e.opts.OnError
		e.mu.Unlock()
		if cb != nil {
			cb(d.err)
		}

	case deliverCompletion:
		e.settleFlush(d.completionID, d.err)

	case deliverProgress:
		e.mu.Lock()
		if e.depth > 0 {
			e.depth--
		}
		var notify bool
		if e.saturated && e.depth < e.opts.SoftLimit {
			e.saturated = false
			notify = true
		}
		e.mu.Unlock()
		if notify {
			e.notifySaturation(false)
		}
	}
}

// settleFlush removes the pending entry and settles it exactly once.
// Settling an already-evicted id is a no-op, which makes the close path
// race-free against a completion arriving through the bridge.
func (e *Engine) settleFlush(id uint64, err error) {
	e.mu.Lock()
	f := e.pending[id]
	delete(e.pending, id)
	e.mu.Unlock()
	if f != nil {
		f.settle(err)
	}
}

// FlushFuture is the caller-visible completion of a Flush. It settles
// exactly once; Err is valid after Done is closed.
type FlushFuture struct {
	done chan struct{}
	once sync.Once
	err  error
}

func newFlushFuture() *FlushFuture {
	return &FlushFuture{done: make(chan struct{})}
}

// Done is closed when the future has settled.
func (f *FlushFuture) Done() <-chan struct{} { return f.done }

// Err returns the settlement error, nil for success. Only meaningful
// after Done is closed.
func (f *FlushFuture) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

// Wait blocks until the future settles or ctx is done.
func (f *FlushFuture) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *FlushFuture) settle(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}
