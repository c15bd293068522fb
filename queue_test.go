package webcodecs

import (
	"testing"
	"time"
)

func TestControlQueue_FIFO(t *testing.T) {
	q := NewControlQueue()
	for i := int64(0); i < 10; i++ {
		if !q.Enqueue(NewProcessMessage(&Sample{Marker: i}, false)) {
			t.Fatalf("Enqueue %d failed", i)
		}
	}
	if q.Len() != 10 {
		t.Fatalf("Len = %d, want 10", q.Len())
	}
	for i := int64(0); i < 10; i++ {
		m, open := q.DequeueBlocking(time.Second)
		if !open || m == nil {
			t.Fatalf("dequeue %d: got (%v, %v)", i, m, open)
		}
		if m.input.Marker != i {
			t.Errorf("dequeue %d: marker = %d, want %d", i, m.input.Marker, i)
		}
	}
}

func TestControlQueue_EnqueueAfterShutdown(t *testing.T) {
	q := NewControlQueue()
	q.Shutdown()
	q.Shutdown() // idempotent
	if q.Enqueue(newResetMessage()) {
		t.Error("Enqueue after Shutdown must return false")
	}
}

func TestControlQueue_DequeueTimeout(t *testing.T) {
	q := NewControlQueue()
	start := time.Now()
	m, open := q.DequeueBlocking(20 * time.Millisecond)
	if m != nil || !open {
		t.Errorf("timeout dequeue = (%v, %v), want (nil, true)", m, open)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("dequeue returned after %v, before the timeout", elapsed)
	}
}

func TestControlQueue_ShutdownWakesDequeue(t *testing.T) {
	q := NewControlQueue()
	done := make(chan bool, 1)
	go func() {
		_, open := q.DequeueBlocking(10 * time.Second)
		done <- open
	}()
	time.Sleep(10 * time.Millisecond)
	q.Shutdown()
	select {
	case open := <-done:
		if open {
			t.Error("dequeue after shutdown-with-empty-queue should report closed")
		}
	case <-time.After(time.Second):
		t.Fatal("shutdown did not wake the blocked dequeue")
	}
}

func TestControlQueue_EnqueueWakesDequeue(t *testing.T) {
	q := NewControlQueue()
	got := make(chan *ControlMessage, 1)
	go func() {
		m, _ := q.DequeueBlocking(10 * time.Second)
		got <- m
	}()
	time.Sleep(10 * time.Millisecond)
	q.Enqueue(NewProcessMessage(&Sample{Marker: 7}, false))
	select {
	case m := <-got:
		if m == nil || m.input.Marker != 7 {
			t.Errorf("woken dequeue returned %v", m)
		}
	case <-time.After(time.Second):
		t.Fatal("enqueue did not wake the blocked dequeue")
	}
}

func TestControlQueue_DrainsRemainingAfterShutdown(t *testing.T) {
	q := NewControlQueue()
	q.Enqueue(newCloseMessage())
	q.Shutdown()
	if m, _ := q.DequeueBlocking(time.Second); m == nil || m.kind != msgClose {
		t.Fatal("message enqueued before shutdown must remain dequeueable")
	}
	if m, open := q.DequeueBlocking(10 * time.Millisecond); m != nil || open {
		t.Error("drained shut-down queue should report closed")
	}
}

func TestControlQueue_ClearPendingKeepsOrder(t *testing.T) {
	q := NewControlQueue()
	q.Enqueue(NewProcessMessage(&Sample{Marker: 1}, false))
	q.Enqueue(newFlushMessage(41))
	q.Enqueue(NewProcessMessage(&Sample{Marker: 2}, false))
	q.Enqueue(newFlushMessage(42))
	q.Enqueue(NewProcessMessage(&Sample{Marker: 3}, false))

	dropped := q.ClearPending()
	if len(dropped) != 3 {
		t.Fatalf("ClearPending dropped %d messages, want 3", len(dropped))
	}
	for i, m := range dropped {
		if m.kind != msgProcess || m.input.Marker != int64(i+1) {
			t.Errorf("dropped[%d] = %s marker %d", i, m.kind, m.input.Marker)
		}
	}

	// The two flushes survive, in their original relative order.
	wantIDs := []uint64{41, 42}
	for _, want := range wantIDs {
		m, _ := q.DequeueBlocking(time.Second)
		if m == nil || m.kind != msgFlush || m.completionID != want {
			t.Fatalf("surviving message = %v, want flush %d", m, want)
		}
	}
	if q.Len() != 0 {
		t.Errorf("queue still holds %d messages", q.Len())
	}
}

func TestControlQueue_Drain(t *testing.T) {
	q := NewControlQueue()
	q.Enqueue(NewProcessMessage(&Sample{Marker: 1}, false))
	q.Enqueue(newFlushMessage(9))
	out := q.Drain()
	if len(out) != 2 || out[0].kind != msgProcess || out[1].kind != msgFlush {
		t.Fatalf("Drain returned %d messages in wrong shape", len(out))
	}
	if q.Len() != 0 {
		t.Error("Drain must empty the queue")
	}
}
