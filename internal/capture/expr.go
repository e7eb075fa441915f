// Package capture implements the $1..$9 capture-expression template
// language and typed capture conditions (C3a/C3b in the design), ported
// from original_source/gzip_logs_tools/capture_expression.c.
package capture

import (
	"bytes"
	"fmt"
)

// Part is one literal-then-capture step of a parsed expression. The final
// Part in a parsed expression always has CaptureIndex == NoCapture and
// carries any trailing literal text.
type Part struct {
	Literal      []byte
	CaptureIndex int // 0-based ($1 -> 0, ... $9 -> 8); NoCapture for the trailing record
}

// NoCapture marks the terminating Part of an expression (and the absence
// of a capture reference generally).
const NoCapture = -1

// ParseExpr parses a template such as "t=$1 u=$2" into a sequence of
// Parts. Any '$' not followed by a digit 1-9 is a parse error; this
// mirrors capture_expression.c's behavior exactly, including rejecting
// "$0" and "$10" (only single digits 1-9 select a capture).
func ParseExpr(s string) ([]Part, int, error) {
	b := []byte(s)
	var parts []Part
	maxIndex := NoCapture

	pos := 0
	for {
		i := bytes.IndexByte(b[pos:], '$')
		if i < 0 {
			parts = append(parts, Part{Literal: b[pos:], CaptureIndex: NoCapture})
			break
		}
		dollar := pos + i
		if dollar+1 >= len(b) || b[dollar+1] < '1' || b[dollar+1] > '9' {
			return nil, NoCapture, fmt.Errorf("capture expression %q: expected capture index 1-9 after '$' at offset %d", s, dollar)
		}
		if dollar+2 < len(b) && b[dollar+2] >= '0' && b[dollar+2] <= '9' {
			return nil, NoCapture, fmt.Errorf("capture expression %q: capture index after '$' at offset %d must be a single digit", s, dollar)
		}
		idx := int(b[dollar+1] - '1')
		parts = append(parts, Part{Literal: b[pos:dollar], CaptureIndex: idx})
		if idx > maxIndex {
			maxIndex = idx
		}
		pos = dollar + 2
	}

	return parts, maxIndex, nil
}

// EvalExpr renders parts against matched (the full regex match text) and
// indices (a regexp.FindSubmatchIndex-style slice of byte offsets into
// matched, pairs of (start,end), -1 for an unmatched group; index 0 is
// the whole match). It writes at most len(dst) bytes and returns the
// number written, truncating silently like the C implementation's
// fixed-size destination buffer.
func EvalExpr(dst []byte, parts []Part, matched []byte, indices []int) int {
	n := 0
	for _, p := range parts {
		n += copyInto(dst, n, p.Literal)
		if p.CaptureIndex == NoCapture {
			continue
		}
		lit, ok := Group(matched, indices, p.CaptureIndex)
		if ok {
			n += copyInto(dst, n, lit)
		}
	}
	return n
}

func copyInto(dst []byte, at int, src []byte) int {
	if at >= len(dst) {
		return 0
	}
	return copy(dst[at:], src)
}

// Group returns the byte slice captured by group (index+1 in regex-group
// terms, since index 0 of indices is the whole match) and whether it
// participated in the match. Mirrors spec.md's "index i present when
// i*2+1 < match_count" rule, plus treating a non-participating group
// (index -1, as Go's regexp marks it) as absent.
func Group(matched []byte, indices []int, index int) ([]byte, bool) {
	i := (index + 1) * 2
	if i+1 >= len(indices) {
		return nil, false
	}
	start, end := indices[i], indices[i+1]
	if start < 0 || end < 0 {
		return nil, false
	}
	return matched[start:end], true
}
