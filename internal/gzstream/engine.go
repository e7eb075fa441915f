// Package gzstream implements the multi-member gzip inflate engine (C1):
// it decodes a concatenation of independent gzip members, invoking
// observer callbacks per spec.md §4.2, and resynchronizes on the next
// member's magic bytes after a data error. Ported from
// original_source/gzip_logs_tools/compressed_file.c's
// compressed_file_inflate/compressed_file_resync state machine, built
// over compress/flate the way other_examples' gzran package layers a
// seekable reader over a raw flate decoder (both need member-boundary
// visibility that compress/gzip.Reader hides).
package gzstream

import (
	"bufio"
	"bytes"
	"compress/flate"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
)

// State is the engine's current FSM state, per spec.md §4.2.
type State int

const (
	StateInflate State = iota
	StateEnd
	StateResync
)

// MaxChunk bounds the size of any single ProcessChunk call, per spec.md §4.2.
const MaxChunk = 1 << 20 // 1 MiB

const gzipMagic = 0x8b1f // little-endian 0x1f 0x8b, per spec.md §4.2

const (
	flagHdrCRC  = 1 << 1
	flagExtra   = 1 << 2
	flagName    = 1 << 3
	flagComment = 1 << 4
)

// Observer receives callbacks as the engine decodes a byte stream.
type Observer interface {
	// ProcessChunk is called with every inflated slice.
	ProcessChunk(chunk []byte)
	// Resync is called when the engine has skipped past corruption and
	// found a new gzip header at absolute position pos.
	Resync(pos int64)
	// SegmentEnd is called once per gzip member, successful or not.
	SegmentEnd(pos int64, errorFlag bool)
}

// Engine drives decoding of a multi-member gzip byte stream.
type Engine struct {
	obs Observer
}

// New creates an Engine reporting to obs.
func New(obs Observer) *Engine {
	return &Engine{obs: obs}
}

// countingReader tracks how many bytes have been pulled from the real
// underlying source, so pos() below can report offsets into the
// original stream rather than into any local replay buffer.
type countingReader struct {
	r io.Reader
	n int64
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.n += int64(n)
	return n, err
}

// Run decodes src until it is exhausted, reporting every member via obs.
// It returns a non-nil error only for truncation (an incomplete member at
// end of input); resynchronizable corruption is reported via the
// observer, not returned.
func (e *Engine) Run(src io.Reader) error {
	cr := &countingReader{r: src}
	br := bufio.NewReaderSize(cr, 64*1024)

	pos := func() int64 { return cr.n - int64(br.Buffered()) }

	for {
		consumed, truncated, err := readGzipHeader(br)
		if err == io.EOF && len(consumed) == 0 {
			return nil // clean end of stream between members
		}
		if err != nil {
			// Malformed header: treat like a mid-stream data error so
			// any magic bytes already read are not lost to the resync scan.
			e.obs.SegmentEnd(pos(), true)
			if truncated {
				return fmt.Errorf("gzstream: truncated gzip header at %d", pos())
			}
			if err := e.resync(cr, br, pos, consumed); err != nil {
				return err
			}
			continue
		}

		if err := e.runMember(br, pos); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
				return fmt.Errorf("gzstream: truncated member at %d: %w", pos(), err)
			}
			if err := e.resync(cr, br, pos, nil); err != nil {
				return err
			}
			continue
		}
	}
}

// runMember inflates one member's deflate body, calling ProcessChunk for
// every non-empty slice and SegmentEnd exactly once on completion.
func (e *Engine) runMember(br *bufio.Reader, pos func() int64) error {
	fr := flate.NewReader(br)
	defer fr.Close()

	buf := make([]byte, MaxChunk)
	crc := crc32.NewIEEE()
	var size uint32
	for {
		n, err := fr.Read(buf)
		if n > 0 {
			crc.Write(buf[:n])
			size += uint32(n)
			e.obs.ProcessChunk(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			e.obs.SegmentEnd(pos(), true)
			return err
		}
	}

	var trailer [8]byte // CRC32 + ISIZE trailer
	if _, err := io.ReadFull(br, trailer[:]); err != nil {
		e.obs.SegmentEnd(pos(), true)
		return err
	}
	if binary.LittleEndian.Uint32(trailer[:4]) != crc.Sum32() || binary.LittleEndian.Uint32(trailer[4:]) != size {
		e.obs.SegmentEnd(pos(), true)
		return errors.New("gzstream: gzip trailer checksum mismatch")
	}
	e.obs.SegmentEnd(pos(), false)
	return nil
}

// resync implements spec.md §4.2's RESYNC state: shift candidate bytes
// into a 16-bit little-endian register (low byte first) until it equals
// the gzip magic, then splices the two magic bytes (plus any unread seed
// and br's buffered bytes) back in front of cr's source and resets br, so
// the next header read sees them again. Any bytes replayed this way were
// already counted in cr.n when first read, so cr.n is rewound by the same
// amount to keep pos() accurate across the splice.
func (e *Engine) resync(cr *countingReader, br *bufio.Reader, pos func() int64, seed []byte) error {
	var reg uint16
	feed := func(b byte) bool {
		reg = reg>>8 | uint16(b)<<8
		return reg == gzipMagic
	}

	next := func() (byte, error) {
		if len(seed) > 0 {
			b := seed[0]
			seed = seed[1:]
			return b, nil
		}
		return br.ReadByte()
	}

	for {
		b, err := next()
		if err != nil {
			return fmt.Errorf("gzstream: resync: %w", err)
		}
		if feed(b) {
			buffered, _ := br.Peek(br.Buffered())
			replay := append([]byte{byte(reg), byte(reg >> 8)}, seed...)
			replay = append(replay, buffered...)
			cr.n -= int64(len(replay))
			cr.r = io.MultiReader(bytes.NewReader(replay), cr.r)
			br.Reset(cr)
			e.obs.Resync(pos())
			return nil
		}
	}
}

// readGzipHeader reads one gzip member header from br. consumed holds
// every byte read so far (even on error) so the caller can feed them
// into the resync shift register without losing a magic sequence that
// happens to start inside a malformed header. truncated is true when the
// stream ended partway through a header (as opposed to between members).
func readGzipHeader(br *bufio.Reader) (consumed []byte, truncated bool, err error) {
	var buf []byte
	read := func(n int) ([]byte, error) {
		b := make([]byte, n)
		got, err := io.ReadFull(br, b)
		buf = append(buf, b[:got]...)
		return b[:got], err
	}

	fixed, err := read(10)
	if err != nil {
		if len(fixed) == 0 && errors.Is(err, io.EOF) {
			return buf, false, io.EOF
		}
		return buf, true, fmt.Errorf("gzstream: %w", err)
	}

	if fixed[0] != 0x1f || fixed[1] != 0x8b {
		return buf, false, fmt.Errorf("gzstream: bad gzip magic %02x%02x", fixed[0], fixed[1])
	}
	if fixed[2] != 8 {
		return buf, false, fmt.Errorf("gzstream: unsupported compression method %d", fixed[2])
	}
	flg := fixed[3]

	if flg&flagExtra != 0 {
		xlenB, err := read(2)
		if err != nil {
			return buf, true, fmt.Errorf("gzstream: %w", err)
		}
		xlen := int(xlenB[0]) | int(xlenB[1])<<8
		if _, err := read(xlen); err != nil {
			return buf, true, fmt.Errorf("gzstream: %w", err)
		}
	}
	if flg&flagName != 0 {
		if err := readCString(br, &buf); err != nil {
			return buf, true, err
		}
	}
	if flg&flagComment != 0 {
		if err := readCString(br, &buf); err != nil {
			return buf, true, err
		}
	}
	if flg&flagHdrCRC != 0 {
		if _, err := read(2); err != nil {
			return buf, true, fmt.Errorf("gzstream: %w", err)
		}
	}

	return buf, false, nil
}

func readCString(br *bufio.Reader, buf *[]byte) error {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return fmt.Errorf("gzstream: %w", err)
		}
		*buf = append(*buf, b)
		if b == 0 {
			return nil
		}
	}
}
