package byteio

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURLNoScheme(t *testing.T) {
	scheme, path, rng, err := ParseURL("/var/log/foo.gz")
	require.NoError(t, err)
	assert.Equal(t, "file", scheme)
	assert.Equal(t, "/var/log/foo.gz", path)
	assert.Equal(t, Range{}, rng)
}

func TestParseURLWithRange(t *testing.T) {
	scheme, path, rng, err := ParseURL("file:///var/log/foo.gz:100-200")
	require.NoError(t, err)
	assert.Equal(t, "file", scheme)
	assert.Equal(t, "/var/log/foo.gz", path)
	assert.Equal(t, Range{Start: 100, End: 200}, rng)
	assert.True(t, rng.Bounded())
}

func TestParseURLHTTP(t *testing.T) {
	scheme, path, rng, err := ParseURL("https://example.com/foo.gz")
	require.NoError(t, err)
	assert.Equal(t, "https", scheme)
	assert.Equal(t, "example.com/foo.gz", path)
	assert.False(t, rng.Bounded())
}

func TestFileSourceWholeFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(p, []byte("hello world"), 0644))

	src, err := Open(p, S3Options{})
	require.NoError(t, err)
	rc, err := src.Open(context.Background())
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

func TestFileSourceRange(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(p, []byte("0123456789"), 0644))

	src, err := Open(p+":2-5", S3Options{})
	require.NoError(t, err)
	rc, err := src.Open(context.Background())
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "234", string(data))
}

func TestS3MissingCredentials(t *testing.T) {
	_, err := Open("s3://bucket/key", S3Options{})
	assert.Error(t, err)
}

func TestS3MalformedPath(t *testing.T) {
	_, err := Open("s3://justbucket", S3Options{AccessKeyID: "a", SecretAccessKey: "b"})
	assert.Error(t, err)
}
