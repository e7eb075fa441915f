package bufpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetPut(t *testing.T) {
	p := New(4096, 2)

	assert.Equal(t, 0, p.InUse())
	b1 := p.Get()
	assert.Len(t, b1, 4096)
	assert.Equal(t, 1, p.InUse())
	assert.Equal(t, 0, p.InPool())
	assert.Equal(t, 1, p.Alloced())

	b2 := p.Get()
	b3 := p.Get()
	assert.Equal(t, 3, p.InUse())
	assert.Equal(t, 3, p.Alloced())

	p.Put(b1)
	p.Put(b2)
	assert.Equal(t, 1, p.InUse())
	assert.Equal(t, 2, p.InPool())
	assert.Equal(t, 3, p.Alloced())

	// Put beyond limit discards rather than growing the free list
	p.Put(b3)
	assert.Equal(t, 0, p.InUse())
	assert.Equal(t, 2, p.InPool())
	assert.Equal(t, 2, p.Alloced())
}

func TestGetReusesFreed(t *testing.T) {
	p := New(1024, 4)
	b1 := p.Get()
	p.Put(b1)
	b2 := p.Get()
	assert.Equal(t, 0, p.InPool())
	assert.Equal(t, 1, p.Alloced())
	assert.Len(t, b2, 1024)
}

func TestFlush(t *testing.T) {
	p := New(64, 4)
	p.Put(p.Get())
	p.Put(p.Get())
	assert.Equal(t, 1, p.InPool())
	p.Flush()
	assert.Equal(t, 0, p.InPool())
	assert.Equal(t, 0, p.Alloced())
}

func TestPutTooSmallPanics(t *testing.T) {
	p := New(128, 2)
	assert.Panics(t, func() {
		p.Put(make([]byte, 4))
	})
}
