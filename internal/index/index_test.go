package index

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRoundTrip(t *testing.T) {
	r := Record{StartOffset: 10, EndOffset: 2000, MinCapture: "a", MaxCapture: "z"}
	parsed, err := ParseRecord(r.Encode()[:len(r.Encode())-1])
	require.NoError(t, err)
	assert.Equal(t, r, parsed)
}

func TestParseRecordMalformed(t *testing.T) {
	_, err := ParseRecord("not-enough-fields")
	assert.Error(t, err)
}

func TestReadRecordsMultipleLines(t *testing.T) {
	in := "0\t100\ta\tb\n100\t200\tc\td\n"
	recs, err := ReadRecords(bytes.NewBufferString(in))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, int64(0), recs[0].StartOffset)
	assert.Equal(t, int64(200), recs[1].EndOffset)
}

func TestBuilderEmitsOnThreshold(t *testing.T) {
	var out bytes.Buffer
	b := NewBuilder(&out)
	b.MinSegmentSize = 10

	b.ProcessChunk([]byte("0123456789")) // exactly threshold
	b.SegmentEnd(100, false)
	b.ProcessChunk([]byte("abc")) // below threshold, not emitted yet
	b.Finish()

	recs, err := ReadRecords(&out)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, int64(0), recs[0].StartOffset)
	assert.Equal(t, int64(100), recs[0].EndOffset)
	assert.Equal(t, int64(100), recs[1].StartOffset)
}

func TestBuilderTracksCaptureMinMax(t *testing.T) {
	var out bytes.Buffer
	b := NewBuilder(&out)
	b.MinSegmentSize = 1
	b.CaptureRegexp = regexp.MustCompile(`^(\d+) `)
	b.CaptureGroup = 0

	b.ProcessChunk([]byte("30 c\n10 a\n20 b\n"))
	b.SegmentEnd(50, false)

	recs, err := ReadRecords(&out)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "10", recs[0].MinCapture)
	assert.Equal(t, "30", recs[0].MaxCapture)
}
