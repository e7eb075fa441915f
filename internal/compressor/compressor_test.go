package compressor

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// memInput is a minimal Input over an in-memory byte slice: Read behaves
// like a blocking file read (returns io.EOF once exhausted), matching
// fileInput's Backpressure()==true contract so RunReader never has to call
// WaitReadable.
type memInput struct {
	r *bytes.Reader
}

func (m *memInput) Read(p []byte) (int, error)            { return m.r.Read(p) }
func (m *memInput) Close() error                           { return nil }
func (m *memInput) WaitReadable(ctx context.Context) error { return nil }
func (m *memInput) Backpressure() bool                     { return true }

func TestPipelineRoundTrip(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "out.gz")

	payload := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog\n"), 500)

	p := New(&memInput{r: bytes.NewReader(payload)}, outPath, nil, nil)
	require.NoError(t, p.Run(context.Background()))

	f, err := os.Open(outPath)
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	gz.Multistream(true)
	out, err := io.ReadAll(gz)
	require.NoError(t, err)

	require.Equal(t, payload, out)
}

func TestParseInputSpec(t *testing.T) {
	cases := []struct {
		arg            string
		scheme, path, out string
	}{
		{"udg://sock:out.gz", "udg", "sock", "out.gz"},
		{"file://in.log:out.gz", "file", "in.log", "out.gz"},
		{"/tmp/fifo:/tmp/out.gz", "pipe", "/tmp/fifo", "/tmp/out.gz"},
	}
	for _, c := range cases {
		scheme, path, out, err := ParseInputSpec(c.arg)
		require.NoError(t, err)
		require.Equal(t, c.scheme, scheme)
		require.Equal(t, c.path, path)
		require.Equal(t, c.out, out)
	}
}

func TestParseInputSpecMissingOutput(t *testing.T) {
	_, _, _, err := ParseInputSpec("file://in.log")
	require.Error(t, err)
}
