package byteio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// DefaultChunkSize is the re-fetch window ChunkedReader uses for a cache
// miss, matching internal/tail's own 64 KiB backward-scan chunk size so a
// single fetch typically covers one Queue.Grow call.
const DefaultChunkSize = 64 * 1024

// ChunkedReader adapts a byte-source spec into an io.ReaderAt, grounded on
// fs/chunkedreader's buffering wrapper: repeated nearby ReadAt calls (the
// access pattern internal/tail's backward buffer queue and binary search
// both have) are served from one cached window instead of opening a fresh
// Source, and therefore a fresh connection, on every call.
type ChunkedReader struct {
	scheme, path string
	s3Opt        S3Options
	chunkSize    int64

	cachedOff  int64
	cachedData []byte
}

// NewChunkedReader builds a ChunkedReader over spec, the same
// "[scheme://]path" grammar ParseURL accepts elsewhere in this package;
// spec must not itself carry a byte range since ChunkedReader serves
// arbitrary offsets on demand. chunkSize is the minimum re-fetch
// granularity (DefaultChunkSize if <= 0).
func NewChunkedReader(spec string, opt S3Options, chunkSize int64) (*ChunkedReader, error) {
	scheme, path, rng, err := ParseURL(spec)
	if err != nil {
		return nil, err
	}
	if rng != (Range{}) {
		return nil, fmt.Errorf("byteio: chunked reader spec %q must not carry a byte range", spec)
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &ChunkedReader{scheme: scheme, path: path, s3Opt: opt, chunkSize: chunkSize}, nil
}

// ReadAt implements io.ReaderAt, fetching a fresh window whenever the
// request falls outside the one currently cached.
func (c *ChunkedReader) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off < c.cachedOff || off+int64(len(p)) > c.cachedOff+int64(len(c.cachedData)) {
		if err := c.fetch(off, int64(len(p))); err != nil {
			return 0, err
		}
	}
	n := copy(p, c.cachedData[off-c.cachedOff:])
	if n < len(p) {
		return n, io.ErrUnexpectedEOF
	}
	return n, nil
}

// fetch replaces the cached window with one starting at off, at least
// chunkSize bytes long (more, if the request itself is larger).
func (c *ChunkedReader) fetch(off, want int64) error {
	size := c.chunkSize
	if want > size {
		size = want
	}
	src, err := c.source(Range{Start: off, End: off + size})
	if err != nil {
		return err
	}
	rc, err := src.Open(context.Background())
	if err != nil {
		return err
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rc); err != nil {
		return fmt.Errorf("byteio: chunked read at %d: %w", off, err)
	}
	c.cachedOff = off
	c.cachedData = buf.Bytes()
	return nil
}

// Size reports the underlying source's total length, fetched fresh (no
// range-bounded GET tells us the total) via a HEAD for http/s3 or a stat
// for a local file.
func (c *ChunkedReader) Size(ctx context.Context) (int64, error) {
	switch c.scheme {
	case "file":
		return (&fileSource{path: c.path}).size()
	case "http", "https":
		return (&httpSource{url: c.scheme + "://" + c.path, client: http.DefaultClient}).size(ctx)
	case "s3":
		s, err := newS3Source(c.path, Range{}, c.s3Opt)
		if err != nil {
			return 0, err
		}
		return s.size(ctx)
	default:
		return 0, fmt.Errorf("byteio: unsupported scheme %q", c.scheme)
	}
}

func (c *ChunkedReader) source(rng Range) (Source, error) {
	switch c.scheme {
	case "file":
		return &fileSource{path: c.path, rng: rng}, nil
	case "http", "https":
		return &httpSource{url: c.scheme + "://" + c.path, rng: rng, client: http.DefaultClient}, nil
	case "s3":
		return newS3Source(c.path, rng, c.s3Opt)
	default:
		return nil, fmt.Errorf("byteio: unsupported scheme %q", c.scheme)
	}
}
