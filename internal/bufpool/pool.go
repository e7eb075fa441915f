// Package bufpool implements a bounded, thread-safe free-list of fixed-size
// byte buffers, grounded on the free-list shape exercised by
// github.com/rclone/rclone/lib/pool (see lib/pool/pool_test.go for the
// InUse/InPool/Alloced accounting this mirrors).
package bufpool

import "sync"

// Pool hands out fixed-size []byte buffers and recycles them on Put. It
// corresponds to B2 in the design: the reader/compressor/writer stages of
// the compressor pipeline borrow buffers from here instead of allocating
// on every read.
type Pool struct {
	mu      sync.Mutex
	free    [][]byte
	size    int
	limit   int
	inUse   int
	alloced int
}

// New creates a Pool of buffers of the given size. limit bounds how many
// freed buffers are retained for reuse; beyond that, Put discards rather
// than growing the free list unboundedly.
func New(size, limit int) *Pool {
	return &Pool{
		size:  size,
		limit: limit,
	}
}

// Get returns a buffer of Pool's configured size, reusing one from the
// free list when available.
func (p *Pool) Get() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.inUse++
	n := len(p.free)
	if n == 0 {
		p.alloced++
		return make([]byte, p.size)
	}
	buf := p.free[n-1]
	p.free[n-1] = nil
	p.free = p.free[:n-1]
	return buf[:p.size]
}

// Put returns a buffer to the pool. Put panics if buf's capacity is
// smaller than Pool's configured size.
func (p *Pool) Put(buf []byte) {
	if cap(buf) < p.size {
		panic("bufpool: buffer too small to return to pool")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.inUse--
	if len(p.free) >= p.limit {
		p.alloced--
		return
	}
	p.free = append(p.free, buf)
}

// InUse reports the number of buffers currently checked out.
func (p *Pool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inUse
}

// InPool reports the number of buffers sitting in the free list.
func (p *Pool) InPool() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

// Alloced reports the total number of buffers allocated that have not
// since been discarded by a Put past the limit.
func (p *Pool) Alloced() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.alloced
}

// Size returns the fixed buffer size this pool hands out.
func (p *Pool) Size() int {
	return p.size
}

// Flush discards every buffer currently sitting in the free list.
func (p *Pool) Flush() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alloced -= len(p.free)
	p.free = nil
}
