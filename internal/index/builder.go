package index

import (
	"bytes"
	"io"
	"regexp"

	"github.com/kaltura/gzlogtools/internal/capture"
)

// DefaultMinSegmentSize is the "at least 512 KiB uncompressed" threshold
// from the glossary's definition of a segment.
const DefaultMinSegmentSize = 512 * 1024

// Builder implements gzstream.Observer, accumulating gzip members into
// segments and emitting a Record each time a segment's uncompressed
// size crosses MinSegmentSize.
type Builder struct {
	MinSegmentSize int64
	// CaptureRegexp, when set, is matched against each line; capture group
	// CaptureGroup (0-based: 0 is $1) feeds MinCapture/MaxCapture.
	CaptureRegexp *regexp.Regexp
	CaptureGroup  int
	CompareType   capture.CompareType
	TimeFormat    capture.TimeFormat
	Out           io.Writer

	segStart     int64
	memberStart  int64
	uncompressed int64
	haveCapture  bool
	minCap       []byte
	maxCap       []byte
	lineBuf      []byte

	writeErr error
}

// NewBuilder creates a Builder starting at byte offset 0.
func NewBuilder(out io.Writer) *Builder {
	return &Builder{
		MinSegmentSize: DefaultMinSegmentSize,
		TimeFormat:     capture.DefaultTimeFormat,
		Out:            out,
	}
}

// Err returns the first error seen writing a record, if any.
func (b *Builder) Err() error {
	return b.writeErr
}

// ProcessChunk implements gzstream.Observer.
func (b *Builder) ProcessChunk(chunk []byte) {
	b.uncompressed += int64(len(chunk))
	if b.CaptureRegexp == nil {
		return
	}
	for len(chunk) > 0 {
		i := bytes.IndexByte(chunk, '\n')
		if i < 0 {
			b.lineBuf = append(b.lineBuf, chunk...)
			return
		}
		b.lineBuf = append(b.lineBuf, chunk[:i+1]...)
		b.consumeLine(b.lineBuf)
		b.lineBuf = b.lineBuf[:0]
		chunk = chunk[i+1:]
	}
}

func (b *Builder) consumeLine(line []byte) {
	idx := b.CaptureRegexp.FindSubmatchIndex(line)
	if idx == nil {
		return
	}
	val, ok := capture.Group(line, idx, b.CaptureGroup)
	if !ok {
		return
	}
	if !b.haveCapture {
		b.minCap = append(b.minCap[:0], val...)
		b.maxCap = append(b.maxCap[:0], val...)
		b.haveCapture = true
		return
	}
	if capture.Compare(b.CompareType, val, b.minCap, b.TimeFormat) < 0 {
		b.minCap = append(b.minCap[:0], val...)
	}
	if capture.Compare(b.CompareType, b.maxCap, val, b.TimeFormat) < 0 {
		b.maxCap = append(b.maxCap[:0], val...)
	}
}

// SegmentEnd implements gzstream.Observer: a member just ended at pos,
// so if the running segment has crossed MinSegmentSize, emit it and
// start a new one at pos (where the next member, if any, begins).
func (b *Builder) SegmentEnd(pos int64, errorFlag bool) {
	b.maybeEmit(pos)
	b.memberStart = pos
}

// Resync implements gzstream.Observer: corruption was skipped and a new
// member found at pos; the segment in progress ends here too, since its
// uncompressed byte count can no longer be trusted to be contiguous.
func (b *Builder) Resync(pos int64) {
	b.maybeEmit(pos)
	b.segStart = pos
	b.memberStart = pos
}

// Finish flushes a final undersized segment at EOF if minSegmentSize
// was never reached; callers that want every byte indexed regardless of
// size should call this, but per spec.md's segment definition a
// trailing sliver smaller than MinSegmentSize is ordinarily just data
// loss risk the caller accepts by choosing a large threshold.
func (b *Builder) Finish() {
	if b.uncompressed > 0 {
		b.emit(b.memberStart)
	}
}

func (b *Builder) maybeEmit(endPos int64) {
	if b.uncompressed >= b.MinSegmentSize {
		b.emit(endPos)
	}
}

func (b *Builder) emit(endPos int64) {
	if b.writeErr != nil {
		return
	}
	rec := Record{
		StartOffset: b.segStart,
		EndOffset:   endPos,
		MinCapture:  string(b.minCap),
		MaxCapture:  string(b.maxCap),
	}
	if err := WriteRecord(b.Out, rec); err != nil {
		b.writeErr = err
	}
	b.segStart = endPos
	b.uncompressed = 0
	b.haveCapture = false
	b.minCap = b.minCap[:0]
	b.maxCap = b.maxCap[:0]
}
