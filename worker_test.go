package webcodecs

import (
	"sync"
	"testing"
	"time"

	"github.com/pion/logging"
)

func newTestWorker(backend CodecBackend, sink func(*delivery)) (*codecWorker, *ControlQueue, *callbackBridge) {
	q := NewControlQueue()
	b := newCallbackBridge(sink)
	log := logging.NewDefaultLoggerFactory().NewLogger("webcodecs-test")
	w := newCodecWorker(q, newResourceHandle(backend), NewBufferPool(4), b, log, 5*time.Millisecond)
	return w, q, b
}

func TestCodecWorker_StartStopIdempotent(t *testing.T) {
	backend := &fakeBackend{}
	w, q, b := newTestWorker(backend, func(*delivery) {})
	defer b.Release()

	w.Start()
	w.Start()
	if !w.Running() {
		t.Fatal("worker not running after Start")
	}

	q.Enqueue(NewConfigureMessage(DefaultAudioEncoderConfig("opus")))
	q.Shutdown()
	w.Stop()
	w.Stop()
	if got := w.State(); got != workerStopped {
		t.Errorf("state = %d, want stopped", got)
	}
	if got := backend.closeCount(); got != 1 {
		t.Errorf("backend closed %d times, want 1", got)
	}
}

func TestCodecWorker_StopWithoutStart(t *testing.T) {
	backend := &fakeBackend{}
	w, _, b := newTestWorker(backend, func(*delivery) {})
	defer b.Release()

	done := make(chan struct{})
	go func() {
		w.Stop()
		w.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop on a never-started worker hung")
	}
	if got := w.State(); got != workerStopped {
		t.Errorf("state = %d, want stopped", got)
	}
	if got := backend.closeCount(); got != 1 {
		t.Errorf("backend closed %d times, want exactly once even without a run loop", got)
	}
	// A late Start must not revive a stopped worker.
	w.Start()
	if w.Running() {
		t.Error("Start after Stop revived the worker")
	}
}

func TestCodecWorker_CloseMessageFlushesBestEffort(t *testing.T) {
	backend := &fakeBackend{
		flushOutputs: []*Sample{{Data: []byte{1}, Marker: 100}, {Data: []byte{2}, Marker: 101}},
	}
	var mu sync.Mutex
	var markers []int64
	w, q, b := newTestWorker(backend, func(d *delivery) {
		if d.kind == deliverOutput {
			mu.Lock()
			markers = append(markers, d.sample.Marker)
			mu.Unlock()
		}
	})

	q.Enqueue(NewConfigureMessage(DefaultAudioEncoderConfig("opus")))
	q.Enqueue(newCloseMessage())
	w.Start()
	w.Stop()
	b.WaitIdle(time.Second)
	b.Release()

	mu.Lock()
	defer mu.Unlock()
	if len(markers) != 2 || markers[0] != 100 || markers[1] != 101 {
		t.Errorf("trailing flush outputs = %v, want [100 101]", markers)
	}
}

func TestCodecWorker_FailedFlushCompletionCarriesError(t *testing.T) {
	backend := &fakeBackend{flushErr: errTestFlush}
	var mu sync.Mutex
	var completions []error
	w, q, b := newTestWorker(backend, func(d *delivery) {
		if d.kind == deliverCompletion {
			mu.Lock()
			completions = append(completions, d.err)
			mu.Unlock()
		}
	})

	q.Enqueue(NewConfigureMessage(DefaultAudioEncoderConfig("opus")))
	q.Enqueue(newFlushMessage(7))
	w.Start()
	time.Sleep(50 * time.Millisecond)
	q.Shutdown()
	w.Stop()
	b.WaitIdle(time.Second)
	b.Release()

	mu.Lock()
	defer mu.Unlock()
	if len(completions) == 0 || completions[0] == nil {
		t.Fatalf("flush completion = %v, want an error settlement", completions)
	}
}

var errTestFlush = &ProcessingError{Op: "flush", Err: errStub}

var errStub = errorString("stub flush failure")

type errorString string

func (e errorString) Error() string { return string(e) }
