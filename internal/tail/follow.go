package tail

import "io"

// watcher is woken whenever the watched file might have grown. newWatcher
// (follow_linux.go / follow_other.go) picks an inotify IN_MODIFY watch on
// Linux, matching ztail.c's main() (inotify_add_watch(fd, path, IN_MODIFY)
// followed by a blocking read of the inotify fd), or a portable poll loop
// elsewhere.
type watcher interface {
	// Wait blocks until the file may have new data, or returns an error if
	// the watch itself failed.
	Wait() error
	Close() error
}

// followReader turns a fixed io.ReaderAt plus a live size() query into an
// io.Reader that, in follow mode, blocks at the current end of file instead
// of returning io.EOF -- letting a single gzstream.Engine.Run drive both the
// initial catch-up read and an indefinite "tail -f" continuation, since
// gzstream's header loop already treats "io.EOF between members" as the
// ordinary end-of-stream case.
type followReader struct {
	src  io.ReaderAt
	pos  int64
	size func() (int64, error)

	follow bool
	watch  watcher
}

func (r *followReader) Read(p []byte) (int, error) {
	for {
		size, err := r.size()
		if err != nil {
			return 0, err
		}
		if r.pos < size {
			n := int64(len(p))
			if want := size - r.pos; n > want {
				n = want
			}
			got, err := r.src.ReadAt(p[:n], r.pos)
			r.pos += int64(got)
			if err != nil && err != io.EOF {
				return got, err
			}
			return got, nil
		}
		if !r.follow {
			return 0, io.EOF
		}
		if err := r.watch.Wait(); err != nil {
			return 0, err
		}
	}
}
