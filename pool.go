package webcodecs

import "sync"

// DefaultPoolSize caps how many scratch buffers a BufferPool retains.
// Small on purpose: it bounds worst-case memory overhead while still
// eliminating allocation on the steady-state hot path.
const DefaultPoolSize = 4

// PooledBuffer is a byte buffer with a capacity and a logical size,
// recycled through a BufferPool. A buffer is never referenced by more
// than one in-flight operation; ownership transfers from the acquirer to
// the result payload and eventually back to the pool.
type PooledBuffer struct {
	data []byte
	pool *BufferPool
}

// Bytes returns the buffer contents at its logical size.
func (b *PooledBuffer) Bytes() []byte { return b.data }

// Cap returns the buffer capacity.
func (b *PooledBuffer) Cap() int { return cap(b.data) }

// Release returns the buffer to its pool. The buffer must not be used
// afterwards.
func (b *PooledBuffer) Release() { b.pool.release(b) }

// BufferPool is a bounded pool of reusable scratch buffers. Acquire is
// called on the hot path (worker goroutine, and the engine when copying
// submitted payloads); release may arrive from the delivery side after a
// result has been consumed, so the pool tolerates cross-goroutine use.
type BufferPool struct {
	mu   sync.Mutex
	free []*PooledBuffer
	max  int
}

// NewBufferPool creates a pool retaining at most max buffers. max <= 0
// uses DefaultPoolSize.
func NewBufferPool(max int) *BufferPool {
	if max <= 0 {
		max = DefaultPoolSize
	}
	return &BufferPool{max: max}
}

// Acquire returns a buffer with logical size exactly size, reusing a
// pooled buffer with sufficient capacity when one exists.
func (p *BufferPool) Acquire(size int) *PooledBuffer {
	p.mu.Lock()
	for i, b := range p.free {
		if cap(b.data) >= size {
			p.free = append(p.free[:i], p.free[i+1:]...)
			p.mu.Unlock()
			b.data = b.data[:size]
			return b
		}
	}
	p.mu.Unlock()
	return &PooledBuffer{data: make([]byte, size), pool: p}
}

func (p *BufferPool) release(b *PooledBuffer) {
	if b == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.free) < p.max {
		p.free = append(p.free, b)
	}
	// Above the cap the buffer is simply dropped for the GC.
}

// Len returns the number of buffers currently retained.
func (p *BufferPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}
