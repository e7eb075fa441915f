package tail

import (
	"bytes"
	"io"
	"regexp"

	"github.com/kaltura/gzlogtools/internal/gzstream"
)

// lineCounter is a gzstream.Observer that counts newline bytes across every
// member it decodes, the Go shape of get_line_count_from_offset's running
// total in ztail.c. It tolerates member errors (SegmentEnd(errorFlag=true))
// the same way ztail.c does: partial data already counted stands, decoding
// simply stops at the point of corruption.
type lineCounter struct {
	lines int64
	stop  bool
}

func (c *lineCounter) ProcessChunk(chunk []byte) {
	if c.stop {
		return
	}
	c.lines += int64(bytes.Count(chunk, []byte{'\n'}))
}

func (c *lineCounter) Resync(int64) {}

func (c *lineCounter) SegmentEnd(_ int64, errorFlag bool) {
	if errorFlag {
		c.stop = true
	}
}

// countLinesFrom decodes src (normally an io.SectionReader starting at a
// candidate gzip member offset) and returns the number of newline-
// terminated lines found before EOF, truncation, or member corruption.
func countLinesFrom(src io.Reader) int64 {
	lc := &lineCounter{}
	eng := gzstream.New(lc)
	_ = eng.Run(src) // truncation at an arbitrary candidate is expected, not fatal
	return lc.lines
}

// firstMatch is a gzstream.Observer that finds the first line matching re,
// extracts submatch group 1, and stops contributing further output once
// found. It mirrors compare_first_match/compare_last_match in zbingrep.c,
// simplified to always scan line-by-line rather than zbingrep's whole-
// chunk fast path (a pure performance optimization with no behavioral
// difference, dropped here since Go's byte scan is already fast).
type firstMatch struct {
	re    *regexp.Regexp
	found bool
	value []byte
	carry []byte
}

func (f *firstMatch) ProcessChunk(chunk []byte) {
	if f.found {
		return
	}
	f.carry = append(f.carry, chunk...)
	for {
		i := bytes.IndexByte(f.carry, '\n')
		if i < 0 {
			break
		}
		line := f.carry[:i]
		f.carry = f.carry[i+1:]
		if m := f.re.FindSubmatch(line); m != nil && len(m) > 1 {
			f.found = true
			f.value = append([]byte(nil), m[1]...)
			return
		}
	}
}

func (f *firstMatch) Resync(int64) {}
func (f *firstMatch) SegmentEnd(int64, bool) {}

// findFirstMatch decodes src looking for the first line matching re,
// returning its first capture group. ok is false if no matching line was
// found before EOF or truncation (zbingrep.c's COMPARE_ERROR: the
// candidate offset did not lead to a comparable line); lines decoded after
// a resync past corrupted data are still searched.
func findFirstMatch(src io.Reader, re *regexp.Regexp) (value []byte, ok bool) {
	fm := &firstMatch{re: re}
	eng := gzstream.New(fm)
	_ = eng.Run(src)
	return fm.value, fm.found
}
