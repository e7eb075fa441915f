package capture

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// CompareType selects how a Condition's reference value is interpreted.
type CompareType int

const (
	// CompareString does a byte-wise comparison (memcmp with a
	// shorter-is-less tie-break, i.e. plain bytes.Compare).
	CompareString CompareType = iota
	// CompareNumeric parses both sides as a general number before comparing.
	CompareNumeric
	// CompareTime parses both sides with the configured time format.
	CompareTime
)

// Op is a capture-condition comparison operator.
type Op int

const (
	OpEQ Op = iota
	OpLT
	OpLE
	OpGT
	OpGE
)

// Condition is one parsed `$N@op value` / `"expr"#op value` clause.
type Condition struct {
	RawCaptureIndex int // >=0 selects a raw $N with no template (0-based: $1 -> 0); -1 means Expr is used
	Expr            []Part
	Type            CompareType
	Op              Op
	RefValue        []byte
}

// ParseConditions parses the comma-separated grammar from spec.md §6:
//
//	(cond (',' cond)*)
//	cond := ($N | '"' expr '"' | "'" expr "'") [@|#] op value
//	op   := '=' | '<' | '>' | '<=' | '>='
//
// value runs to the next top-level comma or end of string.
func ParseConditions(s string) ([]Condition, error) {
	var conds []Condition
	for _, clause := range splitTopLevel(s) {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		c, err := parseCondition(clause)
		if err != nil {
			return nil, err
		}
		conds = append(conds, c)
	}
	return conds, nil
}

// splitTopLevel splits on commas that are not inside a quoted expression.
func splitTopLevel(s string) []string {
	var parts []string
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == ',':
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}

func parseCondition(s string) (Condition, error) {
	var c Condition
	rest := s

	switch {
	case len(rest) > 0 && rest[0] == '$':
		end := 1
		for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
			end++
		}
		if end == 1 {
			return c, fmt.Errorf("capture condition %q: expected digit after '$'", s)
		}
		n, err := strconv.Atoi(rest[1:end])
		if err != nil {
			return c, fmt.Errorf("capture condition %q: %w", s, err)
		}
		if n < 1 || n > 9 {
			return c, fmt.Errorf("capture condition %q: capture index must be 1-9", s)
		}
		c.RawCaptureIndex = n - 1
		rest = rest[end:]
	case len(rest) > 0 && (rest[0] == '"' || rest[0] == '\''):
		q := rest[0]
		end := strings.IndexByte(rest[1:], q)
		if end < 0 {
			return c, fmt.Errorf("capture condition %q: unterminated quoted expression", s)
		}
		end += 1
		parts, _, err := ParseExpr(rest[1:end])
		if err != nil {
			return c, err
		}
		c.RawCaptureIndex = -1
		c.Expr = parts
		rest = rest[end+1:]
	default:
		return c, fmt.Errorf("capture condition %q: expected $N or quoted expression", s)
	}

	c.Type = CompareString
	if len(rest) > 0 && (rest[0] == '@' || rest[0] == '#') {
		if rest[0] == '@' {
			c.Type = CompareTime
		} else {
			c.Type = CompareNumeric
		}
		rest = rest[1:]
	}

	op, opLen, err := parseOp(rest)
	if err != nil {
		return c, fmt.Errorf("capture condition %q: %w", s, err)
	}
	c.Op = op
	c.RefValue = []byte(rest[opLen:])

	return c, nil
}

func parseOp(s string) (Op, int, error) {
	if len(s) >= 2 {
		switch s[:2] {
		case "<=":
			return OpLE, 2, nil
		case ">=":
			return OpGE, 2, nil
		}
	}
	if len(s) >= 1 {
		switch s[0] {
		case '=':
			return OpEQ, 1, nil
		case '<':
			return OpLT, 1, nil
		case '>':
			return OpGT, 1, nil
		}
	}
	return 0, 0, fmt.Errorf("missing comparison operator")
}

// Materialize renders a Condition's source (either a raw capture index or
// a template expression) against a match, matching spec.md §4.4.
func Materialize(dst []byte, c Condition, matched []byte, indices []int) []byte {
	if c.RawCaptureIndex >= 0 {
		g, ok := Group(matched, indices, c.RawCaptureIndex)
		if !ok {
			return nil
		}
		return g
	}
	n := EvalExpr(dst, c.Expr, matched, indices)
	return dst[:n]
}

// TimeFormat carries the strptime-style layout used to parse CompareTime
// values, along with its Go time-layout translation.
type TimeFormat struct {
	goLayout string
}

// DefaultTimeFormat is spec.md §6's default ("%Y-%m-%d %H:%M:%S").
var DefaultTimeFormat = MustParseTimeFormat("%Y-%m-%d %H:%M:%S")

// MustParseTimeFormat is ParseTimeFormat but panics on error; used for
// the package-level default.
func MustParseTimeFormat(strptime string) TimeFormat {
	f, err := ParseTimeFormat(strptime)
	if err != nil {
		panic(err)
	}
	return f
}

// ParseTimeFormat translates a strptime(3)-style format string (as used
// by the -t flag) into Go's reference-time layout.
func ParseTimeFormat(strptime string) (TimeFormat, error) {
	var b strings.Builder
	for i := 0; i < len(strptime); i++ {
		c := strptime[i]
		if c != '%' || i+1 >= len(strptime) {
			b.WriteByte(c)
			continue
		}
		i++
		switch strptime[i] {
		case 'Y':
			b.WriteString("2006")
		case 'y':
			b.WriteString("06")
		case 'm':
			b.WriteString("01")
		case 'd':
			b.WriteString("02")
		case 'H':
			b.WriteString("15")
		case 'I':
			b.WriteString("03")
		case 'M':
			b.WriteString("04")
		case 'S':
			b.WriteString("05")
		case 'p':
			b.WriteString("PM")
		case 'b', 'h':
			b.WriteString("Jan")
		case 'B':
			b.WriteString("January")
		case 'a':
			b.WriteString("Mon")
		case 'A':
			b.WriteString("Monday")
		case 'z':
			b.WriteString("-0700")
		case 'Z':
			b.WriteString("MST")
		case '%':
			b.WriteByte('%')
		default:
			return TimeFormat{}, fmt.Errorf("time format %q: unsupported directive %%%c", strptime, strptime[i])
		}
	}
	return TimeFormat{goLayout: b.String()}, nil
}

// ParseEpoch parses value with f, interpreting the result as a non-DST
// local time (mirroring the original's "tm.tm_isdst = 0 before mktime"),
// and returns its Unix epoch seconds.
func (f TimeFormat) ParseEpoch(value []byte) (int64, error) {
	t, err := time.ParseInLocation(f.goLayout, string(value), time.Local)
	if err != nil {
		return 0, err
	}
	if t.IsDST() {
		// Read the wall clock as standard time: shift by the zone's DST offset.
		_, dstOff := t.Zone()
		for _, m := range []time.Month{time.January, time.July} {
			probe := time.Date(t.Year(), m, 1, 0, 0, 0, 0, time.Local)
			if !probe.IsDST() {
				_, stdOff := probe.Zone()
				return t.Unix() + int64(dstOff-stdOff), nil
			}
		}
	}
	return t.Unix(), nil
}

// Eval evaluates all conditions as an AND against a regex match, with the
// time format used for any CompareTime conditions.
func Eval(conds []Condition, matched []byte, indices []int, tf TimeFormat) bool {
	var scratch [256]byte
	for _, c := range conds {
		lhs := Materialize(scratch[:], c, matched, indices)
		if !evalOne(c, lhs, tf) {
			return false
		}
	}
	return true
}

func evalOne(c Condition, lhs []byte, tf TimeFormat) bool {
	switch c.Type {
	case CompareString:
		if c.Op == OpEQ && len(lhs) != len(c.RefValue) {
			return false
		}
		return applyOp(c.Op, compareString(lhs, c.RefValue))
	case CompareNumeric:
		return applyOp(c.Op, compareNumeric(lhs, c.RefValue))
	case CompareTime:
		return applyOp(c.Op, compareTime(lhs, c.RefValue, tf))
	default:
		return false
	}
}

// Compare applies the ordering rule named by compareType to a and b,
// the same rule evalOne uses to dispatch capture-condition operators.
// Exported so other packages (e.g. the index segment builder) can track
// a running min/max without duplicating the comparison semantics.
func Compare(compareType CompareType, a, b []byte, tf TimeFormat) int {
	switch compareType {
	case CompareNumeric:
		return compareNumeric(a, b)
	case CompareTime:
		return compareTime(a, b, tf)
	default:
		return compareString(a, b)
	}
}

func applyOp(op Op, cmp int) bool {
	switch op {
	case OpEQ:
		return cmp == 0
	case OpLT:
		return cmp < 0
	case OpLE:
		return cmp <= 0
	case OpGT:
		return cmp > 0
	case OpGE:
		return cmp >= 0
	default:
		return false
	}
}

// compareString is a plain byte compare (which already ties shorter <
// longer on a matching common prefix, same as memcmp + length); evalOne
// short-circuits '=' on a length mismatch before calling it.
func compareString(a, b []byte) int {
	return bytes.Compare(a, b)
}

// compareNumeric implements spec.md §4.4's general-numeric ordering:
// parse failures sort before everything, NaN sorts after parse failures
// but before finite numbers, -0 == +0, and residual NaN-vs-NaN ordering
// falls back to comparing the raw bit patterns (to match the reference
// sort behavior when both sides are unparseable-as-ordered NaNs).
func compareNumeric(a, b []byte) int {
	av, aOK := strtold(a)
	bv, bOK := strtold(b)

	aClass := numClass(aOK, av)
	bClass := numClass(bOK, bv)
	if aClass != bClass {
		return aClass - bClass
	}

	switch aClass {
	case classFail:
		return 0
	case classNaN:
		abits := math.Float64bits(av)
		bbits := math.Float64bits(bv)
		switch {
		case abits < bbits:
			return -1
		case abits > bbits:
			return 1
		default:
			return 0
		}
	default: // classFinite
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	}
}

const (
	classFail = iota
	classNaN
	classFinite
)

func numClass(ok bool, v float64) int {
	if !ok {
		return classFail
	}
	if math.IsNaN(v) {
		return classNaN
	}
	return classFinite
}

// strtold parses a leading numeric prefix the way C's strtold does,
// tolerating trailing garbage; ok is false only when no numeric prefix
// could be parsed at all.
func strtold(b []byte) (float64, bool) {
	s := strings.TrimSpace(string(b))
	body := strings.TrimLeft(s, "+-")
	if len(s)-len(body) <= 1 {
		lower := strings.ToLower(body)
		for _, w := range []string{"infinity", "inf", "nan"} {
			if strings.HasPrefix(lower, w) {
				v, err := strconv.ParseFloat(s[:len(s)-len(body)+len(w)], 64)
				return v, err == nil
			}
		}
	}
	end := 0
	for end < len(s) && isFloatChar(s, end) {
		end++
	}
	for ; end > 0; end-- {
		if v, err := strconv.ParseFloat(s[:end], 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

func isFloatChar(s string, i int) bool {
	c := s[i]
	switch {
	case c >= '0' && c <= '9':
		return true
	case c == '+' || c == '-' || c == '.' || c == 'e' || c == 'E':
		return true
	default:
		return false
	}
}

// compareTime implements spec.md §4.4's time ordering: a parse failure on
// either side always compares as "less than" and two failures are never
// considered equal, fixing the original's `int = time_t` truncation bug
// (§9) by comparing signed 64-bit epoch seconds directly.
func compareTime(a, b []byte, tf TimeFormat) int {
	av, aErr := tf.ParseEpoch(a)
	bv, bErr := tf.ParseEpoch(b)

	switch {
	case aErr != nil && bErr != nil:
		return -1
	case aErr != nil:
		return -1
	case bErr != nil:
		return 1
	case av < bv:
		return -1
	case av > bv:
		return 1
	default:
		return 0
	}
}
