package lineblock

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaltura/gzlogtools/internal/capture"
	"github.com/kaltura/gzlogtools/internal/filter"
)

func newBlock(t *testing.T, re string, f filter.Node, out *bytes.Buffer) *Block {
	t.Helper()
	return &Block{
		StartRegexp: regexp.MustCompile(re),
		TimeFormat:  capture.DefaultTimeFormat,
		Out:         out,
		Filter:      f,
	}
}

func feedLines(t *testing.T, r *Reassembler, text string) {
	t.Helper()
	r.Feed([]byte(text))
}

func TestBasicBlockPassesThrough(t *testing.T) {
	var out bytes.Buffer
	b := newBlock(t, `^\d\d:\d\d:\d\d `, nil, &out)
	r := NewReassembler(b, true)

	feedLines(t, r, "12:00:00 a\n13:00:00 b\n14:00:00 c\n")
	// force the last pending block to flush by feeding a line that still
	// matches block-start so finishBlock runs for "14:00:00 c\n"
	feedLines(t, r, "15:00:00 sentinel\n")

	require.NoError(t, b.Err())
	assert.Equal(t, "12:00:00 a\n13:00:00 b\n14:00:00 c\n", out.String())
}

func TestCaptureConditionFiltersBlocks(t *testing.T) {
	var out bytes.Buffer
	b := newBlock(t, `^(\d\d:\d\d:\d\d) `, nil, &out)
	conds, err := capture.ParseConditions("$1>=13:00:00,$1<=13:59:59")
	require.NoError(t, err)
	b.Conditions = conds
	r := NewReassembler(b, true)

	feedLines(t, r, "12:00:00 a\n13:00:00 b\n14:00:00 c\n")
	feedLines(t, r, "15:00:00 sentinel\n")

	require.NoError(t, b.Err())
	assert.Equal(t, "13:00:00 b\n", out.String())
}

type alwaysFalse struct{}

func (alwaysFalse) Match([]byte) bool { return false }

func TestFilterRejectsBlock(t *testing.T) {
	var out bytes.Buffer
	b := newBlock(t, `^line `, alwaysFalse{}, &out)
	r := NewReassembler(b, true)

	feedLines(t, r, "line one\nline two\n")

	require.NoError(t, b.Err())
	assert.Empty(t, out.String())
}

func TestLongLineOverflowsLineBuffer(t *testing.T) {
	var out bytes.Buffer
	b := newBlock(t, `^X`, nil, &out)
	r := NewReassembler(b, true)

	long := "X" + string(bytes.Repeat([]byte("a"), 2000)) + "\n"
	r.Feed([]byte(long))
	r.Feed([]byte("Xshort\n"))
	// a further block start makes finishBlock emit the "Xshort" block
	r.Feed([]byte("Xsentinel\n"))

	require.NoError(t, b.Err())
	// the overflowing line's head (first 1KiB) still starts a block and
	// gets collected; exact overflow truncation is an internal detail,
	// so just assert the short trailing line passed through intact.
	assert.Contains(t, out.String(), "Xshort\n")
}

func TestPrefixAndSuffix(t *testing.T) {
	var out bytes.Buffer
	b := newBlock(t, `^S `, nil, &out)
	b.Prefix = "[["
	b.Suffix = "]]"
	r := NewReassembler(b, true)

	feedLines(t, r, "S one\nS two\n")
	feedLines(t, r, "S three\n")

	require.NoError(t, b.Err())
	assert.Equal(t, "[[S one\n]][[S two\n]]", out.String())
}
