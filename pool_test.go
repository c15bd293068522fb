package webcodecs

import "testing"

func TestBufferPool_AcquireSizes(t *testing.T) {
	p := NewBufferPool(4)
	tests := []int{0, 1, 100, 4096}
	for _, size := range tests {
		b := p.Acquire(size)
		if len(b.Bytes()) != size {
			t.Errorf("Acquire(%d): len = %d", size, len(b.Bytes()))
		}
	}
}

func TestBufferPool_Reuse(t *testing.T) {
	p := NewBufferPool(4)
	b1 := p.Acquire(1024)
	b1.Release()
	b2 := p.Acquire(512)
	if b1 != b2 {
		t.Error("pooled buffer with sufficient capacity was not reused")
	}
	if len(b2.Bytes()) != 512 {
		t.Errorf("reused buffer len = %d, want 512", len(b2.Bytes()))
	}
	if b2.Cap() < 1024 {
		t.Errorf("reused buffer lost capacity: %d", b2.Cap())
	}
}

func TestBufferPool_SkipsTooSmall(t *testing.T) {
	p := NewBufferPool(4)
	small := p.Acquire(16)
	small.Release()
	big := p.Acquire(1 << 20)
	if big == small {
		t.Error("pool returned a buffer below the requested capacity")
	}
	if len(big.Bytes()) != 1<<20 {
		t.Errorf("len = %d", len(big.Bytes()))
	}
}

func TestBufferPool_Bounded(t *testing.T) {
	p := NewBufferPool(4)
	bufs := make([]*PooledBuffer, 10)
	for i := range bufs {
		bufs[i] = p.Acquire(64)
	}
	for _, b := range bufs {
		b.Release()
	}
	if p.Len() > 4 {
		t.Errorf("pool holds %d buffers, cap is 4", p.Len())
	}
}

func TestBufferPool_NoGrowthUnderChurn(t *testing.T) {
	p := NewBufferPool(4)
	for i := 0; i < 10_000; i++ {
		a := p.Acquire(256)
		b := p.Acquire(1024)
		a.Release()
		b.Release()
		if p.Len() > 4 {
			t.Fatalf("iteration %d: pool grew to %d buffers", i, p.Len())
		}
	}
}

func TestBufferPool_CrossGoroutineRelease(t *testing.T) {
	p := NewBufferPool(4)
	done := make(chan struct{})
	b := p.Acquire(128)
	go func() {
		b.Release()
		close(done)
	}()
	<-done
	if p.Len() != 1 {
		t.Errorf("pool len = %d after cross-goroutine release", p.Len())
	}
}
