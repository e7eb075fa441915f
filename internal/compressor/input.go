package compressor

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/user"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// Input abstracts the three source kinds log_compressor.c's init_state
// dispatches on (IT_UNIX_DGRAM, IT_PIPE, IT_FILE), each parsed from a
// "scheme://path:output" argument per spec.md §6.
type Input interface {
	io.ReadCloser
	// WaitReadable blocks until data may be available again, used only
	// after a Read that returned (0, nil) to mean "would block" (the
	// FIFO case, woken by an inotify IN_MODIFY event).
	WaitReadable(ctx context.Context) error
	// Backpressure reports whether the reader should block (rather than
	// drop) when handing a full buffer downstream, matching the
	// `wait = input_type == IT_FILE` flag in reader_thread.
	Backpressure() bool
}

const (
	unixDgramPrefix = "udg://"
	filePrefix      = "file://"
)

// ParseInputSpec splits one "[scheme://]path:output" argument into its
// path and output halves, per log_compressor.c's init_state. The colon
// separating path from output is the first one found after any scheme
// prefix is stripped.
func ParseInputSpec(arg string) (scheme, path, output string, err error) {
	rest := arg
	switch {
	case strings.HasPrefix(rest, unixDgramPrefix):
		scheme = "udg"
		rest = rest[len(unixDgramPrefix):]
	case strings.HasPrefix(rest, filePrefix):
		scheme = "file"
		rest = rest[len(filePrefix):]
	default:
		scheme = "pipe"
	}
	i := strings.IndexByte(rest, ':')
	if i < 0 {
		return "", "", "", fmt.Errorf("compressor: %q: missing ':output' suffix", arg)
	}
	return scheme, rest[:i], rest[i+1:], nil
}

// OpenInput opens the source named by a parsed spec. owner, if non-empty,
// chowns a freshly created socket/FIFO to that "user[:group]" (set_file_owner
// in the original); Go's standard library has no chown-by-name helper so
// resolving the names still goes through os/user plus unix.Chown.
func OpenInput(scheme, path, owner string) (Input, error) {
	switch scheme {
	case "udg":
		return openDgramInput(path, owner)
	case "file":
		return openFileInput(path)
	default:
		return openFIFOInput(path, owner)
	}
}

// fileInput wraps a plain file (or stdin, for path == "") opened for a
// single blocking pass, per init_file/file_mode_main.
type fileInput struct {
	f *os.File
}

func openFileInput(path string) (Input, error) {
	if path == "" {
		return &fileInput{f: os.Stdin}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("compressor: open input file: %w", err)
	}
	return &fileInput{f: f}, nil
}

func (i *fileInput) Read(p []byte) (int, error)             { return i.f.Read(p) }
func (i *fileInput) Close() error                            { return i.f.Close() }
func (i *fileInput) WaitReadable(ctx context.Context) error  { return nil }
func (i *fileInput) Backpressure() bool                      { return true }

// dgramInput is a bound AF_UNIX SOCK_DGRAM socket; recvfrom blocks until a
// datagram arrives, so no inotify plumbing is needed (init_unix_dgram_socket).
type dgramInput struct {
	fd int
}

func openDgramInput(path, owner string) (Input, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_DGRAM, 0)
	if err != nil {
		return nil, fmt.Errorf("compressor: socket: %w", err)
	}
	_ = unix.Unlink(path)
	addr := &unix.SockaddrUnix{Name: path}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("compressor: bind %s: %w", path, err)
	}
	if err := chownToSpec(path, owner); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return &dgramInput{fd: fd}, nil
}

func (i *dgramInput) Read(p []byte) (int, error) {
	n, err := unix.Read(i.fd, p)
	if err != nil {
		return 0, err
	}
	return n, nil
}
func (i *dgramInput) Close() error                           { return unix.Close(i.fd) }
func (i *dgramInput) WaitReadable(ctx context.Context) error { return nil }
func (i *dgramInput) Backpressure() bool                     { return false }

// fifoInput is a non-blocking-opened named pipe, following read() EAGAIN
// with a blocking wait on an inotify IN_MODIFY watch (init_pipe).
type fifoInput struct {
	fd      int
	inotify int
}

func openFIFOInput(path, owner string) (Input, error) {
	if err := unix.Mkfifo(path, 0666); err != nil && err != unix.EEXIST {
		return nil, fmt.Errorf("compressor: mkfifo %s: %w", path, err)
	} else if err == nil {
		if err := chownToSpec(path, owner); err != nil {
			return nil, err
		}
	}

	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("compressor: open fifo %s: %w", path, err)
	}

	// F_SETPIPE_SZ has no portable wrapper in x/sys/unix; best effort only,
	// matching the original's #ifdef F_SETPIPE_SZ guard.
	const fSetPipeSz = 1031
	_, _ = unix.FcntlInt(uintptr(fd), fSetPipeSz, 1024*1024)

	inFd, err := unix.InotifyInit1(unix.IN_CLOEXEC)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("compressor: inotify_init: %w", err)
	}
	if _, err := unix.InotifyAddWatch(inFd, path, unix.IN_MODIFY); err != nil {
		unix.Close(fd)
		unix.Close(inFd)
		return nil, fmt.Errorf("compressor: inotify_add_watch: %w", err)
	}

	return &fifoInput{fd: fd, inotify: inFd}, nil
}

func (i *fifoInput) Read(p []byte) (int, error) {
	n, err := unix.Read(i.fd, p)
	if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (i *fifoInput) WaitReadable(ctx context.Context) error {
	buf := make([]byte, unix.SizeofInotifyEvent+unix.NAME_MAX+1)
	done := make(chan error, 1)
	go func() {
		_, err := unix.Read(i.inotify, buf)
		done <- err
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func (i *fifoInput) Backpressure() bool { return false }

func (i *fifoInput) Close() error {
	err1 := unix.Close(i.fd)
	err2 := unix.Close(i.inotify)
	if err1 != nil {
		return err1
	}
	return err2
}

// chownToSpec resolves "user[:group]" via os/user (there is no third-party
// account-lookup library anywhere in the pack, so this one corner stays on
// the standard library) and chowns path to it, matching set_file_owner. An
// empty spec is a no-op.
func chownToSpec(path, spec string) error {
	if spec == "" {
		return nil
	}
	userName, groupName, hasGroup := strings.Cut(spec, ":")

	u, err := user.Lookup(userName)
	if err != nil {
		return fmt.Errorf("compressor: lookup user %q: %w", userName, err)
	}
	uid, _ := strconv.Atoi(u.Uid)
	gid, _ := strconv.Atoi(u.Gid)

	if hasGroup {
		g, err := user.LookupGroup(groupName)
		if err != nil {
			return fmt.Errorf("compressor: lookup group %q: %w", groupName, err)
		}
		gid, _ = strconv.Atoi(g.Gid)
	}

	if err := unix.Chown(path, uid, gid); err != nil {
		return fmt.Errorf("compressor: chown %s: %w", path, err)
	}
	return nil
}
