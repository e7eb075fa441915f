package tail

import (
	"bytes"
	"fmt"
	"io"
	"regexp"

	"github.com/kaltura/gzlogtools/internal/capture"
	"github.com/kaltura/gzlogtools/internal/gzstream"
)

// SearchOptions configures Search, the Go translation of zbingrep.c: a
// regex with one capture group, a comparison rule (string/numeric/time,
// shared with internal/capture so a range query orders values exactly the
// way capture conditions do elsewhere in this toolkit), and an inclusive
// [Start, End] range on that captured value. The log is assumed
// non-decreasing in the captured value, the same precondition zbingrep.c's
// binary search relies on.
type SearchOptions struct {
	Options

	Pattern     *regexp.Regexp
	CompareType capture.CompareType
	TimeFormat  capture.TimeFormat
	Start, End  []byte

	WithFilename bool // prefix each printed line with "path:"
}

// cmpResult mirrors zbingrep.c's compare_result_t.
type cmpResult int

const (
	cmpLess cmpResult = iota
	cmpGreater
	cmpEqual
	cmpLimit
)

// Search writes every line in path whose captured value falls within
// [opt.Start, opt.End] to w. It first binary-searches for the last gzip
// member whose first comparable line's value is <= opt.Start
// (process_file in zbingrep.c), then streams forward from there, stopping
// as soon as a line's value exceeds opt.End.
func Search(path string, opt SearchOptions, w io.Writer) error {
	src, size, closer, err := openSource(path, opt.S3)
	if err != nil {
		return err
	}
	defer closer.Close()

	left, err := floorMemberOffset(src, size, opt)
	if err != nil {
		return err
	}

	prefix := ""
	if opt.WithFilename {
		prefix = path + ":"
	}

	rw := &rangeWriter{
		w: w, re: opt.Pattern, compareType: opt.CompareType, tf: opt.TimeFormat,
		start: opt.Start, end: opt.End, prefix: prefix,
	}
	eng := gzstream.New(rw)
	if err := eng.Run(io.NewSectionReader(src, left, size-left)); err != nil {
		return fmt.Errorf("tail: search: %s: %w", path, err)
	}
	return rw.err
}

// floorMemberOffset bisects [0, size) for the last (highest-offset) member
// whose first comparable line's captured value is <= opt.Start: scanning
// forward from there with rangeWriter's per-line comparison is then
// guaranteed not to have skipped past the start of the range, even though
// opt.Start itself may land line-granularity inside that member rather
// than exactly on its first line. This is the Go shape of process_file's
// bisection loop in zbingrep.c.
func floorMemberOffset(src io.ReaderAt, size int64, opt SearchOptions) (int64, error) {
	left, right := int64(0), size
	limit := int64(0)
	best := int64(0)

	for left < right {
		mid := left + (right-left)/2
		off, result := compareFileOffset(src, size, mid, limit, opt)

		switch result {
		case cmpLess, cmpEqual:
			best = off
			left = off + 1
			limit = left
		case cmpGreater:
			right = off
		case cmpLimit:
			// The probe window [limit, mid] never produced a decisive
			// comparison (it is all one gzip member, or ran into the
			// memory cap): shrink the window by one byte from the right
			// and probe again, returning best once one byte is left.
			if right-1 <= left {
				return best, nil
			}
			right--
		}
	}
	return best, nil
}

// compareFileOffset grows a backward Queue from offset down to limit,
// trying each gzip-magic candidate nearest offset first, decoding forward
// from it until a comparable line is found. It is the Go shape of
// compare_file_offset in zbingrep.c.
func compareFileOffset(src io.ReaderAt, size, offset, limit int64, opt SearchOptions) (start int64, result cmpResult) {
	q := NewQueue(src, offset, limit, opt.MemoryLimit)
	for {
		if err := q.Grow(); err != nil {
			return 0, cmpLimit
		}
		for _, off := range q.candidateOffsets() {
			value, ok := findFirstMatch(io.NewSectionReader(src, off, size-off), opt.Pattern)
			if !ok {
				continue
			}
			switch cmp := capture.Compare(opt.CompareType, value, opt.Start, opt.TimeFormat); {
			case cmp < 0:
				return off, cmpLess
			case cmp > 0:
				return off, cmpGreater
			default:
				return off, cmpEqual
			}
		}
	}
}

// rangeWriter is a gzstream.Observer that extracts opt.Pattern's first
// capture group from every line, writes lines whose value falls within
// [start, end], and stops (without erroring) once a value exceeds end --
// the Go shape of zbingrep.c's print_lines, minus its whole-chunk fast
// path (compare_last_match), which is a pure performance optimization
// with no behavioral difference from scanning line-by-line.
type rangeWriter struct {
	w           io.Writer
	re          *regexp.Regexp
	compareType capture.CompareType
	tf          capture.TimeFormat
	start, end  []byte
	prefix      string

	carry []byte
	done  bool
	err   error
}

func (r *rangeWriter) ProcessChunk(chunk []byte) {
	if r.done || r.err != nil {
		return
	}
	r.carry = append(r.carry, chunk...)
	for {
		i := bytes.IndexByte(r.carry, '\n')
		if i < 0 {
			break
		}
		line := r.carry[:i+1]
		r.carry = r.carry[i+1:]

		m := r.re.FindSubmatch(line)
		if m == nil || len(m) < 2 {
			continue
		}
		value := m[1]

		if capture.Compare(r.compareType, value, r.end, r.tf) > 0 {
			r.done = true
			return
		}
		if capture.Compare(r.compareType, value, r.start, r.tf) < 0 {
			continue
		}

		if r.prefix != "" {
			if _, err := io.WriteString(r.w, r.prefix); err != nil {
				r.err = err
				return
			}
		}
		if _, err := r.w.Write(line); err != nil {
			r.err = err
			return
		}
	}
}

func (r *rangeWriter) Resync(int64)           {}
func (r *rangeWriter) SegmentEnd(int64, bool) {}
