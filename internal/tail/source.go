package tail

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/kaltura/gzlogtools/internal/byteio"
)

type noopCloser struct{}

func (noopCloser) Close() error { return nil }

// openSource resolves path -- either a plain local path or a
// "[scheme://]path" byteio spec -- into an io.ReaderAt plus its current
// size. Local files are opened directly with *os.File so Tail's --follow
// mode can keep re-Stat-ing the same descriptor; http(s)/s3 specs go
// through a byteio.ChunkedReader, so repeated backward-scan windows are
// re-fetched rather than requiring one long-lived connection per ReadAt.
func openSource(path string, s3opt byteio.S3Options) (src io.ReaderAt, size int64, closer io.Closer, err error) {
	scheme, local, _, err := byteio.ParseURL(path)
	if err != nil {
		return nil, 0, nil, err
	}
	if scheme == "file" {
		f, err := os.Open(local)
		if err != nil {
			return nil, 0, nil, fmt.Errorf("tail: open %s: %w", path, err)
		}
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, 0, nil, fmt.Errorf("tail: stat %s: %w", path, err)
		}
		return f, info.Size(), f, nil
	}

	cr, err := byteio.NewChunkedReader(path, s3opt, 0)
	if err != nil {
		return nil, 0, nil, err
	}
	size, err = cr.Size(context.Background())
	if err != nil {
		return nil, 0, nil, err
	}
	return cr, size, noopCloser{}, nil
}
