package tail

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kaltura/gzlogtools/internal/capture"
)

func timestampedLines(fromSeq, toSeq int) []string {
	var lines []string
	for i := fromSeq; i <= toSeq; i++ {
		lines = append(lines, fmt.Sprintf("seq=%04d payload-%d", i, i))
	}
	return lines
}

func TestSearchNumericRange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.gz")

	// 10 members of 50 lines each, seq strictly increasing across the
	// whole file: a realistic periodically-flushed, monotonic log.
	var groups [][]string
	for g := 0; g < 10; g++ {
		groups = append(groups, timestampedLines(g*50, g*50+49))
	}
	writeMultiMemberGzip(t, path, groups)

	re := regexp.MustCompile(`seq=(\d+)`)
	var out bytes.Buffer
	opt := SearchOptions{
		Pattern:     re,
		CompareType: capture.CompareNumeric,
		Start:       []byte("120"),
		End:         []byte("124"),
	}
	require.NoError(t, Search(path, opt, &out))

	got := out.String()
	require.Contains(t, got, "seq=0120 payload-120\n")
	require.Contains(t, got, "seq=0124 payload-124\n")
	require.NotContains(t, got, "seq=0119")
	require.NotContains(t, got, "seq=0125")
	require.Equal(t, 5, bytes.Count(out.Bytes(), []byte("\n")))
}

func TestSearchWithFilenamePrefix(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.gz")
	writeMultiMemberGzip(t, path, [][]string{timestampedLines(0, 9)})

	re := regexp.MustCompile(`seq=(\d+)`)
	var out bytes.Buffer
	opt := SearchOptions{
		Pattern:      re,
		CompareType:  capture.CompareNumeric,
		Start:        []byte("0"),
		End:          []byte("9"),
		WithFilename: true,
	}
	require.NoError(t, Search(path, opt, &out))
	require.Contains(t, out.String(), path+":seq=0000 payload-0\n")
}

func TestQueueGrowRespectsFloor(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{0}, 200000), 0o644))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	q := NewQueue(f, 200000, 150000, 0)
	for !q.AtFloor() {
		require.NoError(t, q.Grow())
	}
	require.Equal(t, int64(150000), q.Start())
}
