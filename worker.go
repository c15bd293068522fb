package webcodecs

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/logging"
)

// Worker loop states, distinct from the public CodecState.
const (
	workerNotStarted int32 = iota
	workerRunning
	workerDraining
	workerStopped
)

// codecWorker owns the dedicated goroutine and the resource handle. It
// drains the control queue serially, dispatches by message kind, and
// publishes results through the callback bridge. The handle is never
// touched from any other goroutine.
type codecWorker struct {
	queue  *ControlQueue
	handle *resourceHandle
	pool   *BufferPool
	bridge *callbackBridge
	log    logging.LeveledLogger
	poll   time.Duration

	state     atomic.Int32
	stop      chan struct{}
	stopOnce  sync.Once
	startOnce sync.Once
	done      chan struct{}
}

func newCodecWorker(q *ControlQueue, h *resourceHandle, p *BufferPool, b *callbackBridge, log logging.LeveledLogger, poll time.Duration) *codecWorker {
	return &codecWorker{
		queue:  q,
		handle: h,
		pool:   p,
		bridge: b,
		log:    log,
		poll:   poll,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start spawns the worker goroutine. Idempotent; a no-op after Stop.
func (w *codecWorker) Start() {
	w.startOnce.Do(func() {
		if !w.state.CompareAndSwap(workerNotStarted, workerRunning) {
			return
		}
		go w.run()
	})
}

// Stop signals shutdown, wakes a blocked dequeue through the queue
// shutdown done by the engine, and joins the goroutine. Idempotent; safe
// to call on a never-started worker, whose backend it releases itself
// since no run loop will.
func (w *codecWorker) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	if w.state.CompareAndSwap(workerNotStarted, workerStopped) {
		w.handle.Close()
		close(w.done)
	}
	<-w.done
}

// State returns the current loop state.
func (w *codecWorker) State() int32 { return w.state.Load() }

// Running reports whether the loop is still accepting work.
func (w *codecWorker) Running() bool { return w.state.Load() == workerRunning }

func (w *codecWorker) run() {
	defer close(w.done)
	defer w.state.Store(workerStopped)
	defer w.handle.Close()

	for {
		select {
		case <-w.stop:
			w.drainClose()
			return
		default:
		}

		m, open := w.queue.DequeueBlocking(w.poll)
		if !open {
			w.drainClose()
			return
		}
		if m == nil {
			// Timeout; loop to re-check the stop signal.
			continue
		}

		var err error
		switch m.kind {
		case msgConfigure:
			w.handleConfigure(m)
		case msgProcess:
			err = w.handleProcess(m)
		case msgFlush:
			w.handleFlush(m)
		case msgReset:
			err = w.handleReset()
		case msgClose:
			w.drainClose()
			return
		}
		if IsFatal(err) {
			w.drainFatal(err)
			return
		}
	}
}

func (w *codecWorker) handleConfigure(m *ControlMessage) {
	if err := w.handle.Configure(m.params); err != nil {
		w.log.Warnf("configure failed: %v", err)
		w.bridge.Call(&delivery{kind: deliverError, err: err})
		return
	}
	w.log.Debugf("configured %s (%s)", m.params.CodecKind(), m.params.CodecString())
}

func (w *codecWorker) handleProcess(m *ControlMessage) error {
	in := m.input
	outs, err := w.handle.Process(in, m.forceKey)
	in.release()
	if err != nil {
		pe := asProcessingError("process", err)
		w.bridge.Call(&delivery{kind: deliverError, err: pe})
		w.bridge.Call(&delivery{kind: deliverProgress})
		if pe.Fatal {
			return pe
		}
		return nil
	}
	w.publishOutputs(outs)
	w.bridge.Call(&delivery{kind: deliverProgress})
	return nil
}

func (w *codecWorker) handleFlush(m *ControlMessage) {
	outs, err := w.handle.Flush()
	if err != nil {
		pe := asProcessingError("flush", err)
		w.bridge.Call(&delivery{kind: deliverError, err: pe})
		w.bridge.Call(&delivery{kind: deliverCompletion, completionID: m.completionID, err: pe})
		return
	}
	// Trailing outputs first, then the completion: a flush future must
	// not resolve before every output enqueued ahead of it is out.
	w.publishOutputs(outs)
	w.bridge.Call(&delivery{kind: deliverCompletion, completionID: m.completionID})
}

func (w *codecWorker) handleReset() error {
	if err := w.handle.Reset(); err != nil {
		pe := asProcessingError("reset", err)
		w.bridge.Call(&delivery{kind: deliverError, err: pe})
		if pe.Fatal {
			return pe
		}
	}
	return nil
}

// publishOutputs copies backend-owned scratch results into pooled
// buffers and delivers them in production order.
func (w *codecWorker) publishOutputs(outs []*Sample) {
	for _, src := range outs {
		buf := w.pool.Acquire(len(src.Data))
		copy(buf.Bytes(), src.Data)
		out := *src
		out.Data = buf.Bytes()
		out.buf = buf
		w.bridge.Call(&delivery{kind: deliverOutput, sample: &out})
	}
}

// drainClose runs the close path: best-effort flush (errors ignored,
// trailing outputs delivered if the bridge is still up), then discard
// whatever is left in the queue.
func (w *codecWorker) drainClose() {
	w.state.Store(workerDraining)
	if outs, err := w.handle.Flush(); err == nil {
		w.publishOutputs(outs)
	} else {
		w.log.Debugf("close: best-effort flush failed: %v", err)
	}
	w.discardQueued(ErrShutdown)
}

// drainFatal abandons the instance after an unrecoverable codec error:
// everything still queued is discarded, queued flushes settle with the
// fatal error, nothing further is processed.
func (w *codecWorker) drainFatal(cause error) {
	w.state.Store(workerDraining)
	w.log.Errorf("fatal codec error, draining: %v", cause)
	// Shut the queue first so a concurrent Flush observes the failed
	// enqueue and settles its future instead of waiting forever.
	w.queue.Shutdown()
	w.discardQueued(cause)
}

func (w *codecWorker) discardQueued(cause error) {
	for _, m := range w.queue.Drain() {
		switch m.kind {
		case msgProcess:
			m.discard()
			w.bridge.Call(&delivery{kind: deliverProgress})
		case msgFlush:
			w.bridge.Call(&delivery{kind: deliverCompletion, completionID: m.completionID, err: cause})
		}
	}
}

func asProcessingError(op string, err error) *ProcessingError {
	var pe *ProcessingError
	if errors.As(err, &pe) {
		return pe
	}
	return &ProcessingError{Op: op, Err: err}
}
