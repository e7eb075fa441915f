//go:build linux

package tail

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// inotifyWatcher is the Linux watcher: one inotify instance watching path
// for IN_MODIFY, the same event ztail.c waits on in its follow loop.
type inotifyWatcher struct {
	fd int
	wd int
}

func newWatcher(path string) (watcher, error) {
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("tail: inotify_init1: %w", err)
	}
	wd, err := unix.InotifyAddWatch(fd, path, unix.IN_MODIFY)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("tail: inotify_add_watch %s: %w", path, err)
	}
	return &inotifyWatcher{fd: fd, wd: wd}, nil
}

// maxInotifyEvent is sized for one unix.InotifyEvent plus a generous name
// field; IN_MODIFY on a single watched path never carries a name, but the
// kernel still requires the read buffer to be large enough for one event.
const maxInotifyEvent = unix.SizeofInotifyEvent + 4096

func (w *inotifyWatcher) Wait() error {
	buf := make([]byte, maxInotifyEvent)
	for {
		n, err := unix.Read(w.fd, buf)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("tail: inotify read: %w", err)
		}
		if n > 0 {
			return nil
		}
	}
}

func (w *inotifyWatcher) Close() error {
	if w.wd >= 0 {
		unix.InotifyRmWatch(w.fd, uint32(w.wd))
	}
	return unix.Close(w.fd)
}
