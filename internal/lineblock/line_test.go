package lineblock

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	heads    []string
	appends  []string
	flushes  int
}

func (s *fakeSink) LineStart(head []byte) { s.heads = append(s.heads, string(head)) }
func (s *fakeSink) Append(b []byte)        { s.appends = append(s.appends, string(b)) }
func (s *fakeSink) Flush()                 { s.flushes++ }

func TestReassemblerBasicLines(t *testing.T) {
	s := &fakeSink{}
	r := NewReassembler(s, true)
	r.Feed([]byte("aaa\nbbb\n"))

	require.Equal(t, []string{"aaa\n", "bbb\n"}, s.heads)
	require.Equal(t, []string{"aaa\n", "bbb\n"}, s.appends)
	assert.GreaterOrEqual(t, s.flushes, 1)
}

func TestReassemblerPartialLineAcrossChunks(t *testing.T) {
	s := &fakeSink{}
	r := NewReassembler(s, true)
	r.Feed([]byte("partial"))
	r.Feed([]byte(" line\n"))

	require.Equal(t, []string{"partial line\n"}, s.heads)
}

func TestReassemblerDiscardsFirstPartialLineWhenOffsetNonZero(t *testing.T) {
	s := &fakeSink{}
	r := NewReassembler(s, false)
	r.Feed([]byte("garbage-tail\ngood line\n"))

	require.Equal(t, []string{"good line\n"}, s.heads)
}

func TestReassemblerOverflowingLineSkipsRemainder(t *testing.T) {
	s := &fakeSink{}
	r := NewReassembler(s, true)

	overflow := bytes.Repeat([]byte("a"), 2000)
	r.Feed(overflow)
	r.Feed([]byte("\nnext\n"))

	require.Len(t, s.heads, 2)
	assert.Len(t, s.heads[0], LineBufSize)
	assert.Equal(t, "next\n", s.heads[1])
}
