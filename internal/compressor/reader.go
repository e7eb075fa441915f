package compressor

import (
	"context"
	"errors"
	"io"

	"github.com/kaltura/gzlogtools/internal/spsc"
)

// RunReader is the Go translation of reader_thread: it fills BufferSizeRead
// buffers from Input and hands them to the compressor stage, flushing early
// whenever the buffer is nearly full, a reopen was requested, or shutdown
// was signalled. Live sources (FIFO/datagram) drop a buffer rather than
// block the pipe when the compressor is falling behind; file-mode sources
// apply backpressure instead, since there is no "live producer" to protect.
func (p *Pipeline) RunReader(ctx context.Context) error {
	wait := p.Input.Backpressure()
	lastReopen := p.reopenCount()

	buf := p.readPool.Get()
	n := 0

	flush := func(flags Flag) bool {
		slot := spsc.Slot{Buf: buf[:n], Flags: flags}
		ok := p.toComp.Write(slot, wait)
		if !ok {
			p.log.Warn("compressor queue full, dropping read buffer")
			p.readPool.Put(buf)
		}
		buf = p.readPool.Get()
		n = 0
		return ok
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		reopen := p.reopenCount()
		switch {
		case p.shuttingDown():
			flush(FlagShutdown)
			return nil
		case n >= BufferSizeRead-MinReadBufferSize:
			flush(0)
			continue
		case reopen != lastReopen:
			if flush(FlagReopenFile) {
				lastReopen = reopen
			}
			continue
		}

		nr, err := p.Input.Read(buf[n:])
		if nr == 0 && err == nil {
			// would-block (FIFO): wait for the next write before retrying.
			if werr := p.Input.WaitReadable(ctx); werr != nil {
				return werr
			}
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				// file-mode input exhausted: finish the run cleanly.
				flush(FlagShutdown)
				return nil
			}
			return err
		}
		n += nr
	}
}
