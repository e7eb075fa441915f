package gzstream

import (
	"bytes"
	"compress/gzip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	chunks    [][]byte
	resyncs   []int64
	segEnds   []segEnd
}

type segEnd struct {
	pos   int64
	error bool
}

func (o *recordingObserver) ProcessChunk(chunk []byte) {
	cp := append([]byte(nil), chunk...)
	o.chunks = append(o.chunks, cp)
}

func (o *recordingObserver) Resync(pos int64) {
	o.resyncs = append(o.resyncs, pos)
}

func (o *recordingObserver) SegmentEnd(pos int64, errorFlag bool) {
	o.segEnds = append(o.segEnds, segEnd{pos, errorFlag})
}

func (o *recordingObserver) data() []byte {
	return bytes.Join(o.chunks, nil)
}

func gzipMember(t *testing.T, data string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write([]byte(data))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestTwoMembersDecodedInOrder(t *testing.T) {
	var stream bytes.Buffer
	stream.Write(gzipMember(t, "aaa\n"))
	stream.Write(gzipMember(t, "bbb\n"))

	obs := &recordingObserver{}
	err := New(obs).Run(&stream)
	require.NoError(t, err)

	assert.Equal(t, "aaa\nbbb\n", string(obs.data()))
	require.Len(t, obs.segEnds, 2)
	assert.False(t, obs.segEnds[0].error)
	assert.False(t, obs.segEnds[1].error)
	assert.Empty(t, obs.resyncs)
}

func TestEmptyStream(t *testing.T) {
	obs := &recordingObserver{}
	err := New(obs).Run(&bytes.Buffer{})
	require.NoError(t, err)
	assert.Empty(t, obs.chunks)
	assert.Empty(t, obs.segEnds)
}

func TestCorruptionTriggersResyncAndContinues(t *testing.T) {
	member1 := gzipMember(t, "first\n")
	member2 := gzipMember(t, "second\n")
	member3 := gzipMember(t, "third\n")

	// corrupt a byte well inside member2's compressed body so the header
	// still parses but inflate fails partway through
	corrupt := append([]byte(nil), member2...)
	corrupt[len(corrupt)/2] ^= 0xff

	var stream bytes.Buffer
	stream.Write(member1)
	stream.Write(corrupt)
	stream.Write(member3)

	obs := &recordingObserver{}
	err := New(obs).Run(&stream)
	require.NoError(t, err)

	assert.Contains(t, string(obs.data()), "first\n")
	assert.Contains(t, string(obs.data()), "third\n")
	assert.NotEmpty(t, obs.resyncs, "a resync must have been observed")

	var sawFailedSegment bool
	for _, se := range obs.segEnds {
		if se.error {
			sawFailedSegment = true
		}
	}
	assert.True(t, sawFailedSegment, "the corrupted member must report an error segment_end")
}

func TestTruncatedMemberReturnsError(t *testing.T) {
	member := gzipMember(t, "hello world this needs to be long enough to truncate mid-body\n")
	truncated := member[:len(member)-4]

	obs := &recordingObserver{}
	err := New(obs).Run(bytes.NewReader(truncated))
	assert.Error(t, err)
}

func TestLeadingGarbageResyncsToFirstMember(t *testing.T) {
	member := gzipMember(t, "payload\n")
	var stream bytes.Buffer
	stream.Write([]byte{0x00, 0x01, 0x02, 0x03})
	stream.Write(member)

	obs := &recordingObserver{}
	err := New(obs).Run(&stream)
	require.NoError(t, err)
	assert.Equal(t, "payload\n", string(obs.data()))
	require.Len(t, obs.resyncs, 1)
	assert.EqualValues(t, 4, obs.resyncs[0])
}
