package compressor

import (
	"fmt"
	"os"
)

// RunWriter is the Go translation of file_writer_thread: it appends every
// compressed buffer to the output file, lazily (re)opening it and closing
// it again whenever a buffer carries FlagReopenFile or FlagShutdown.
func (p *Pipeline) RunWriter() error {
	var out *os.File
	stdout := p.Output == ".gz"

	closeOut := func() {
		if out != nil && !stdout {
			out.Close()
		}
		out = nil
	}
	defer closeOut()

	for {
		slot, ok := p.toWriter.Read(true)
		if !ok {
			return fmt.Errorf("compressor: compressor-to-writer pipe closed unexpectedly")
		}

		if out == nil {
			if stdout {
				out = os.Stdout
			} else {
				f, err := os.OpenFile(p.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
				if err != nil {
					return fmt.Errorf("compressor: open output %s: %w", p.Output, err)
				}
				out = f
			}
		}

		if len(slot.Buf) > 0 {
			if _, err := out.Write(slot.Buf); err != nil {
				// A write failure (e.g. disk full) is logged and swallowed
				// upstream of this call in the original; here it is
				// reported since a caller can decide whether to retry.
				p.compPool.Put(slot.Buf)
				return fmt.Errorf("compressor: write output: %w", err)
			}
		}
		p.compPool.Put(slot.Buf)

		if slot.Flags&flagFlushMask != 0 {
			closeOut()
			if slot.Flags&FlagShutdown != 0 {
				return nil
			}
		}
	}
}
