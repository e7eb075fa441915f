package tail

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeMultiMemberGzip writes one independent gzip member per element of
// lineGroups (each group joined into a single deflate stream), matching the
// shape log_compressor.c/internal/compressor produces: many small,
// independently-decodable gzip members concatenated in one file.
func writeMultiMemberGzip(t *testing.T, path string, lineGroups [][]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	for _, group := range lineGroups {
		gz := gzip.NewWriter(f)
		for _, line := range group {
			_, err := gz.Write([]byte(line + "\n"))
			require.NoError(t, err)
		}
		require.NoError(t, gz.Close())
	}
}

func numberedLines(prefix string, from, to int) []string {
	var lines []string
	for i := from; i <= to; i++ {
		lines = append(lines, fmt.Sprintf("%s%04d", prefix, i))
	}
	return lines
}

func TestTailLastN(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.gz")

	// Five members of 20 lines each, 100 lines total.
	var groups [][]string
	for g := 0; g < 5; g++ {
		groups = append(groups, numberedLines("line-", g*20, g*20+19))
	}
	writeMultiMemberGzip(t, path, groups)

	var out bytes.Buffer
	require.NoError(t, Tail(path, 5, Options{}, &out))

	got := string(out.Bytes())
	want := "line-0095\nline-0096\nline-0097\nline-0098\nline-0099\n"
	require.Equal(t, want, got)
}

func TestTailMoreThanAvailable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.gz")
	writeMultiMemberGzip(t, path, [][]string{numberedLines("x", 0, 4)})

	var out bytes.Buffer
	require.NoError(t, Tail(path, 100, Options{}, &out))
	require.Equal(t, 5, bytes.Count(out.Bytes(), []byte("\n")))
}

func TestTailZero(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.gz")
	writeMultiMemberGzip(t, path, [][]string{numberedLines("x", 0, 4)})

	var out bytes.Buffer
	require.NoError(t, Tail(path, 0, Options{}, &out))
	require.Empty(t, out.Bytes())
}
