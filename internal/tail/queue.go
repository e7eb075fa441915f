// Package tail implements the reverse-scan tail (C5) and the binary-search
// seeker over periodically-flushed multi-member gzip files, grounded on
// original_source/gzip_logs_tools/ztail/ztail.c and
// original_source/log_compressor/zbingrep/zbingrep.c. Both programs share
// the same backward-growing buffer-queue shape (ztail.c's buffer_t/
// list_entry_t, zbingrep.c's singly-linked buffer_t with a free list); this
// package keeps that shape in Queue and lets ztail's line-counting walk and
// zbingrep's binary search share it instead of duplicating the scan.
package tail

import (
	"errors"
	"io"
)

// Sizing constants match both C sources' #define blocks.
const (
	ChunkSizeRead      = 65536
	ChunkSizeComp      = 65536
	DefaultMemoryLimit = 256 * 1024 * 1024
)

// ErrMemoryLimitExceeded mirrors both programs' "memory limit exceeded"
// fatal error when the backward scan has to grow past MemoryLimit without
// finding a usable gzip member boundary.
var ErrMemoryLimitExceeded = errors.New("tail: memory limit exceeded")

// Queue is a backward-growing, in-memory window over a byte source: each
// Grow call reads one more ChunkSizeRead-sized chunk immediately before the
// currently loaded window, so a gzip member boundary arbitrarily far back
// from the starting offset can be found without re-reading data already
// pulled in.
type Queue struct {
	src   io.ReaderAt
	limit int64 // memory cap, total bytes loaded
	floor int64 // never read before this absolute offset

	bufs   [][]byte // ascending-offset order; bufs[0] is the earliest chunk
	starts []int64  // starts[i] is bufs[i]'s absolute file offset

	loaded int64
	offset int64 // absolute offset of the earliest byte not yet loaded
}

// NewQueue creates a Queue that will grow backward from endOffset, never
// reading before floor, and never loading more than memoryLimit bytes
// in total (DefaultMemoryLimit if <= 0).
func NewQueue(src io.ReaderAt, endOffset, floor, memoryLimit int64) *Queue {
	if memoryLimit <= 0 {
		memoryLimit = DefaultMemoryLimit
	}
	return &Queue{src: src, limit: memoryLimit, floor: floor, offset: endOffset}
}

// Start returns the absolute offset of the earliest byte currently loaded.
func (q *Queue) Start() int64 { return q.offset }

// AtFloor reports whether the queue has loaded all the way down to floor
// and cannot grow further.
func (q *Queue) AtFloor() bool { return q.offset <= q.floor }

// Grow reads one more chunk immediately before the currently loaded window.
// It returns io.EOF once floor has been reached.
func (q *Queue) Grow() error {
	if q.AtFloor() {
		return io.EOF
	}
	n := int64(ChunkSizeRead)
	if room := q.offset - q.floor; n > room {
		n = room
	}
	if q.loaded+n > q.limit {
		return ErrMemoryLimitExceeded
	}

	start := q.offset - n
	buf := make([]byte, n)
	if _, err := q.src.ReadAt(buf, start); err != nil {
		return err
	}

	q.bufs = append([][]byte{buf}, q.bufs...)
	q.starts = append([]int64{start}, q.starts...)
	q.offset = start
	q.loaded += n
	return nil
}

// Len reports how many chunks are currently loaded.
func (q *Queue) Len() int { return len(q.bufs) }

// Chunk returns the i-th loaded chunk (0 == earliest / most recently grown)
// and its absolute start offset.
func (q *Queue) Chunk(i int) (start int64, data []byte) { return q.starts[i], q.bufs[i] }

// End returns the absolute offset one past the last loaded byte.
func (q *Queue) End() int64 {
	if len(q.bufs) == 0 {
		return q.offset
	}
	last := len(q.bufs) - 1
	return q.starts[last] + int64(len(q.bufs[last]))
}

// candidateOffsets returns the gzip-magic candidate positions contributed
// by the most recently grown chunk (bufs[0]), nearest-to-EOF first: the
// cross-boundary case against the previous frontier chunk (checked first,
// since it is the offset closest to EOF), then every 0x1f 0x8b pair found
// scanning bufs[0] from its end back to its start. A straddling header can
// still be missed if it spans more than one byte into each neighbor's
// chunk only on the FNAME/FEXTRA side, matching ztail.c's own noted
// limitation ("can miss a gzip header in buffer boundary") for the
// single-chunk scan; the cross-boundary magic-byte check mirrors
// zbingrep.c's search_compare_first_match exactly.
func (q *Queue) candidateOffsets() []int64 {
	if q.Len() == 0 {
		return nil
	}
	newStart, newBuf := q.Chunk(0)
	var out []int64

	if q.Len() > 1 {
		_, nextBuf := q.Chunk(1)
		if len(newBuf) > 0 && len(nextBuf) > 0 &&
			newBuf[len(newBuf)-1] == 0x1f && nextBuf[0] == 0x8b {
			out = append(out, newStart+int64(len(newBuf))-1)
		}
	}

	for i := len(newBuf) - 2; i >= 0; i-- {
		if newBuf[i] == 0x1f && newBuf[i+1] == 0x8b {
			out = append(out, newStart+int64(i))
		}
	}
	return out
}
