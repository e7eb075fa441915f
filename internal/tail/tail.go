package tail

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/kaltura/gzlogtools/internal/byteio"
	"github.com/kaltura/gzlogtools/internal/gzstream"
)

// Options configures a Tail or Search call.
type Options struct {
	MemoryLimit int64 // backward-scan cap in bytes; 0 uses DefaultMemoryLimit
	Follow      bool  // keep running past EOF, like tail -f
	S3          byteio.S3Options
}

// skipWriter is a gzstream.Observer that discards the first skip decoded
// lines, then streams every remaining byte straight to w, the Go shape of
// print_lines' "requested_line_count" skip in ztail.c.
type skipWriter struct {
	w    io.Writer
	skip int64
	err  error
}

func (s *skipWriter) ProcessChunk(chunk []byte) {
	if s.err != nil {
		return
	}
	for s.skip > 0 && len(chunk) > 0 {
		i := bytes.IndexByte(chunk, '\n')
		if i < 0 {
			return // whole remaining chunk is still inside a skipped line
		}
		chunk = chunk[i+1:]
		s.skip--
	}
	if len(chunk) == 0 {
		return
	}
	if _, err := s.w.Write(chunk); err != nil {
		s.err = err
	}
}

func (s *skipWriter) Resync(int64)           {}
func (s *skipWriter) SegmentEnd(int64, bool) {}

// Tail writes the last n lines of a periodically-flushed multi-member gzip
// file to w. It is the Go translation of ztail.c's main(): grow a backward
// Queue from EOF until some candidate member start decodes to at least n
// lines, then stream forward from there, skipping the extra ones. With
// opt.Follow it keeps running past the current end of file, the same as
// `tail -f`, only returning once the watch itself fails or w.Write does.
func Tail(path string, n int64, opt Options, w io.Writer) error {
	src, size, closer, err := openSource(path, opt.S3)
	if err != nil {
		return err
	}
	defer closer.Close()

	if _, isFile := src.(*os.File); !isFile && opt.Follow {
		return fmt.Errorf("tail: --follow requires a local file, got %s", path)
	}

	start, skip, err := findTailStart(src, size, n, opt.MemoryLimit)
	if err != nil {
		return err
	}

	var wt watcher
	if opt.Follow {
		wt, err = newWatcher(path)
		if err != nil {
			return err
		}
		defer wt.Close()
	}

	sw := &skipWriter{w: w, skip: skip}
	fr := &followReader{
		src: src,
		pos: start,
		size: func() (int64, error) {
			if sw.err != nil {
				return 0, sw.err
			}
			if !opt.Follow {
				return size, nil
			}
			info, err := os.Stat(path)
			if err != nil {
				return 0, fmt.Errorf("tail: stat %s: %w", path, err)
			}
			return info.Size(), nil
		},
		follow: opt.Follow,
		watch:  wt,
	}

	eng := gzstream.New(sw)
	if err := eng.Run(fr); err != nil {
		return fmt.Errorf("tail: %s: %w", path, err)
	}
	return sw.err
}

// findTailStart locates the gzip member start nearest to EOF that, decoded
// forward to EOF, yields at least n lines, and how many of those lines to skip to land
// on exactly the last n. It mirrors get_line_count_from_offset's backward
// search in ztail.c, trying the nearest-to-EOF candidate contributed by
// each newly grown chunk first, since the line count from a candidate can
// only grow as the search moves further back toward offset 0.
func findTailStart(src io.ReaderAt, size, n, memoryLimit int64) (start, skip int64, err error) {
	if n <= 0 {
		return size, 0, nil
	}

	q := NewQueue(src, size, 0, memoryLimit)
	for {
		if growErr := q.Grow(); growErr != nil {
			if growErr == io.EOF {
				break // reached offset 0 without finding enough lines
			}
			return 0, 0, fmt.Errorf("tail: %w", growErr)
		}
		for _, off := range q.candidateOffsets() {
			lines := countLinesFrom(io.NewSectionReader(src, off, size-off))
			if lines >= n {
				return off, lines - n, nil
			}
		}
	}

	lines := countLinesFrom(io.NewSectionReader(src, 0, size))
	if lines <= n {
		return 0, 0, nil
	}
	return 0, lines - n, nil
}
