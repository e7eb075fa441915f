package lineblock

import (
	"io"
	"regexp"
	"unsafe"

	"github.com/kaltura/gzlogtools/internal/capture"
	"github.com/kaltura/gzlogtools/internal/filter"
)

// ReserveSize bounds the block state machine's own copy buffer, per
// spec.md §3.
const ReserveSize = 10 * 1024

// Phase is the block state machine's current mode, per spec.md §4.7.
type Phase int

const (
	PhaseIgnore Phase = iota
	PhaseCollect
	PhaseOutput
)

// Block implements the IGNORE/COLLECT/OUTPUT state machine described in
// spec.md §4.7. It satisfies the Sink interface consumed by Reassembler.
type Block struct {
	StartRegexp *regexp.Regexp
	Conditions  []capture.Condition
	TimeFormat  capture.TimeFormat
	Filter      filter.Node // nil means "always pass"
	Out         io.Writer
	Prefix      string // written once before each passing block's bytes
	Suffix      string // written once after each passing block's bytes

	phase   Phase
	span    []byte
	reserve [ReserveSize]byte
	inRes   int // bytes of span currently resident in reserve

	err error
}

// Err returns the first error encountered writing to Out, if any.
func (b *Block) Err() error {
	return b.err
}

// LineStart implements spec.md §4.7's line_start algorithm.
func (b *Block) LineStart(head []byte) {
	indices := b.StartRegexp.FindSubmatchIndex(head)
	if indices == nil {
		return
	}

	if b.phase == PhaseCollect {
		b.finishBlock()
	}
	if b.phase == PhaseOutput && b.Suffix != "" {
		b.write([]byte(b.Suffix))
	}

	b.phase = PhaseIgnore
	b.span = nil
	b.inRes = 0

	if b.Conditions != nil && !capture.Eval(b.Conditions, head, indices, b.TimeFormat) {
		return
	}
	b.phase = PhaseCollect
}

// Append implements spec.md §4.7's append algorithm.
func (b *Block) Append(data []byte) {
	switch b.phase {
	case PhaseIgnore:
		return
	case PhaseOutput:
		b.write(data)
	case PhaseCollect:
		b.collect(data)
	}
}

// Flush implements spec.md §4.7: rehome an in-progress span into the
// reserve buffer before the chunk-owning caller reuses its memory.
func (b *Block) Flush() {
	if b.phase != PhaseCollect || len(b.span) == 0 || b.spanInReserve() {
		return
	}
	oldLen := len(b.span)
	n := copy(b.reserve[:], b.span)
	b.inRes = n
	b.span = b.reserve[:n]
	if n < oldLen {
		// The span alone exceeds the reserve; evaluate now with what fits.
		b.finishBlock()
	}
}

func (b *Block) spanInReserve() bool {
	return b.inRes == len(b.span) && b.inRes > 0 && sameBacking(b.span, b.reserve[:b.inRes])
}

func (b *Block) collect(data []byte) {
	if len(data) == 0 {
		return
	}
	if len(b.span) == 0 {
		b.span = data
		return
	}
	if contiguous(b.span, data) {
		b.span = extend(b.span, len(data))
		return
	}

	if !b.spanInReserve() {
		oldLen := len(b.span)
		n := copy(b.reserve[:], b.span)
		b.inRes = n
		b.span = b.reserve[:n]
		if n < oldLen {
			b.overflow(data)
			return
		}
	}

	room := ReserveSize - b.inRes
	if room <= 0 {
		b.overflow(data)
		return
	}
	take := data
	var rest []byte
	if len(take) > room {
		take = data[:room]
		rest = data[room:]
	}
	n := copy(b.reserve[b.inRes:], take)
	b.inRes += n
	b.span = b.reserve[:b.inRes]

	if rest != nil {
		b.overflow(rest)
	}
}

// overflow implements spec.md §4.7's "reserve buffer fills" rule: the
// block is evaluated early, then tail continues as a direct OUTPUT
// append (or is dropped, if the block failed the filter).
func (b *Block) overflow(tail []byte) {
	b.finishBlock()
	if b.phase == PhaseOutput {
		b.write(tail)
	}
}

// finishBlock evaluates the accumulated span against Filter and
// transitions to OUTPUT (emitting the span, prefixed) or IGNORE.
func (b *Block) finishBlock() {
	pass := b.Filter == nil || b.Filter.Match(b.span)
	if !pass {
		b.phase = PhaseIgnore
		b.span = nil
		return
	}
	b.phase = PhaseOutput
	if b.Prefix != "" {
		b.write([]byte(b.Prefix))
	}
	b.write(b.span)
	b.span = nil
}

func (b *Block) write(p []byte) {
	if b.err != nil || len(p) == 0 {
		return
	}
	_, err := b.Out.Write(p)
	if err != nil {
		b.err = err
	}
}

// contiguous reports whether next begins exactly where span ends in
// memory, the precondition for extending span in place instead of
// copying into the reserve buffer (spec.md §3's block-state invariant).
func contiguous(span, next []byte) bool {
	if len(span) == 0 || len(next) == 0 {
		return false
	}
	spanEnd := uintptr(unsafe.Pointer(&span[len(span)-1])) + 1
	nextStart := uintptr(unsafe.Pointer(&next[0]))
	return spanEnd == nextStart
}

// extend grows span by addLen bytes without requiring span's cap to
// already cover the extra length; safe only when contiguous(span, ...)
// has already established that span's backing memory genuinely
// continues into the adjacent region the caller is folding in.
func extend(span []byte, addLen int) []byte {
	return unsafe.Slice(&span[0], len(span)+addLen)
}

func sameBacking(a, b []byte) bool {
	if len(a) == 0 || len(b) == 0 {
		return len(a) == len(b)
	}
	return uintptr(unsafe.Pointer(&a[0])) == uintptr(unsafe.Pointer(&b[0]))
}
