package spsc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	p := New(4)
	s := Slot{Buf: []byte("hello"), Flags: FlagReopenFile}
	ok := p.Write(s, true)
	require.True(t, ok)

	got, ok := p.Read(true)
	require.True(t, ok)
	assert.Equal(t, s, got)
}

func TestNonBlockingWriteFailsWhenFull(t *testing.T) {
	p := New(2)
	require.True(t, p.Write(Slot{Buf: []byte("a")}, false))
	require.True(t, p.Write(Slot{Buf: []byte("b")}, false))

	ok := p.Write(Slot{Buf: []byte("c")}, false)
	assert.False(t, ok, "write past capacity must not block and must fail")

	// previously queued entries are preserved in order
	got, ok := p.Read(false)
	require.True(t, ok)
	assert.Equal(t, "a", string(got.Buf))

	got, ok = p.Read(false)
	require.True(t, ok)
	assert.Equal(t, "b", string(got.Buf))

	_, ok = p.Read(false)
	assert.False(t, ok)
}

func TestNonBlockingReadFailsWhenEmpty(t *testing.T) {
	p := New(1)
	_, ok := p.Read(false)
	assert.False(t, ok)
}

func TestConcurrentProducerConsumer(t *testing.T) {
	p := New(8)
	const n = 1000
	done := make(chan struct{})

	go func() {
		for i := 0; i < n; i++ {
			p.Write(Slot{Buf: []byte{byte(i)}}, true)
		}
		close(done)
	}()

	for i := 0; i < n; i++ {
		s, ok := p.Read(true)
		require.True(t, ok)
		assert.Equal(t, byte(i), s.Buf[0], "order must be preserved")
	}
	<-done
}
