package compressor

import (
	"fmt"

	"github.com/klauspost/compress/gzip"

	"github.com/kaltura/gzlogtools/internal/bufpool"
	"github.com/kaltura/gzlogtools/internal/spsc"
)

// chunkBuffer is the io.Writer a member's gzip.Writer compresses into: it
// slices compressed output into BufferSizeComp buffers borrowed from the
// comp pool and hands each full one to the writer stage, matching the
// do/while(zstream.avail_out == 0) buffer-swap loop in compressor_thread.
type chunkBuffer struct {
	pool *bufpool.Pool
	pipe *spsc.Pipe
	buf  []byte
	n    int
}

func newChunkBuffer(pool *bufpool.Pool, pipe *spsc.Pipe) *chunkBuffer {
	return &chunkBuffer{pool: pool, pipe: pipe, buf: pool.Get()}
}

func (c *chunkBuffer) Write(p []byte) (int, error) {
	total := len(p)
	for len(p) > 0 {
		room := len(c.buf) - c.n
		if room == 0 {
			c.emit(0, true)
			c.buf = c.pool.Get()
		}
		n := copy(c.buf[c.n:], p)
		c.n += n
		p = p[n:]
	}
	return total, nil
}

// emit pushes the current buffer (possibly empty, so a trailing flag-only
// notification still reaches the writer stage) and always blocks rather
// than drop, matching compressor_thread's itp_write(..., TRUE).
func (c *chunkBuffer) emit(flags Flag, wait bool) {
	slot := spsc.Slot{Buf: c.buf[:c.n], Flags: flags}
	c.pipe.Write(slot, wait)
	c.n = 0
}

// Finish flushes whatever is left in the current buffer as the member's
// final chunk, carrying flags (REOPEN_FILE/SHUTDOWN) through to the writer.
func (c *chunkBuffer) Finish(flags Flag) {
	c.emit(flags, true)
}

// RunCompressor is the Go translation of compressor_thread: one
// gzip.Writer per gzip member, a fresh member starting as soon as the
// previous one's deflateEnd-equivalent (Writer.Close) completes.
func (p *Pipeline) RunCompressor() error {
	var (
		cw            *chunkBuffer
		gz            *gzip.Writer
		bytesSinceSync int64
	)

	for {
		slot, ok := p.toComp.Read(true)
		if !ok {
			return fmt.Errorf("compressor: reader-to-compressor pipe closed unexpectedly")
		}

		if gz == nil {
			cw = newChunkBuffer(p.compPool, p.toWriter)
			w, err := gzip.NewWriterLevel(cw, p.Level)
			if err != nil {
				return fmt.Errorf("compressor: gzip.NewWriterLevel: %w", err)
			}
			gz = w
			bytesSinceSync = 0
		}

		if _, err := gz.Write(slot.Buf); err != nil {
			return fmt.Errorf("compressor: deflate: %w", err)
		}
		bytesSinceSync += int64(len(slot.Buf))
		p.readPool.Put(slot.Buf)

		needFlush := slot.Flags&flagFlushMask != 0 || bytesSinceSync > MaxUncompSizeTillSync
		if !needFlush {
			continue
		}

		if err := gz.Close(); err != nil {
			return fmt.Errorf("compressor: finalize gzip member: %w", err)
		}
		cw.Finish(slot.Flags)
		gz = nil

		if slot.Flags&FlagShutdown != 0 {
			return nil
		}
	}
}
