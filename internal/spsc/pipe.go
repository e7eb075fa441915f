// Package spsc implements a fixed-capacity single-producer/single-consumer
// pipe of buffer slots, grounded on the semaphore ring buffer in
// original_source/mysql_memcached_async/itp.c (itp_init/itp_write/itp_read).
// A Go buffered channel already gives the free-slot/data-available
// semaphore pair itp.c hand-rolls with sem_t, so Pipe is a thin typed
// wrapper around one.
package spsc

// Flag carries out-of-band markers alongside a buffer, per spec.md §3.
type Flag uint8

const (
	// FlagReopenFile asks the writer to finalize the current gzip member
	// and reopen its output file.
	FlagReopenFile Flag = 1 << iota
	// FlagShutdown asks the writer to finalize and exit after this slot.
	FlagShutdown
)

// Slot is one buffer hand-off between pipeline stages.
type Slot struct {
	Buf   []byte
	Flags Flag
}

// Pipe is a bounded, single-producer/single-consumer channel of Slots.
type Pipe struct {
	ch chan Slot
}

// New creates a Pipe with room for capacity slots in flight.
func New(capacity int) *Pipe {
	return &Pipe{ch: make(chan Slot, capacity)}
}

// Write enqueues a slot. If wait is true it blocks until there is room;
// otherwise it returns ok=false immediately when the pipe is full,
// mirroring itp_write's sem_trywait path used by the reader thread so it
// never wedges behind a slow compressor.
func (p *Pipe) Write(s Slot, wait bool) (ok bool) {
	if wait {
		p.ch <- s
		return true
	}
	select {
	case p.ch <- s:
		return true
	default:
		return false
	}
}

// Read dequeues a slot. If wait is true it blocks until one is available;
// otherwise it returns ok=false immediately when the pipe is empty.
func (p *Pipe) Read(wait bool) (s Slot, ok bool) {
	if wait {
		s, ok = <-p.ch
		return s, ok
	}
	select {
	case s, ok = <-p.ch:
		return s, ok
	default:
		return Slot{}, false
	}
}

// Close signals that no further writes will occur; a final Read drains
// remaining queued slots before reporting ok=false.
func (p *Pipe) Close() {
	close(p.ch)
}

// Len reports the number of slots currently queued.
func (p *Pipe) Len() int {
	return len(p.ch)
}

// Cap reports the pipe's capacity.
func (p *Pipe) Cap() int {
	return cap(p.ch)
}
