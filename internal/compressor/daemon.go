package compressor

import (
	"fmt"
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

// CreatePIDFile takes an exclusive, non-blocking F_SETLK write lock on path
// (leaving it open and locked for the process lifetime) and writes the
// current PID into it, matching create_pid_file. The lock itself is the
// singleton guard: a second instance's F_SETLK attempt fails with EAGAIN.
func CreatePIDFile(path string) error {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT, 0600)
	if err != nil {
		return fmt.Errorf("compressor: open pid file: %w", err)
	}

	lock := unix.Flock_t{
		Type:   unix.F_WRLCK,
		Whence: 0,
		Start:  0,
		Len:    0,
	}
	if err := unix.FcntlFlock(uintptr(fd), unix.F_SETLK, &lock); err != nil {
		unix.Close(fd)
		if err == unix.EAGAIN || err == unix.EACCES {
			return fmt.Errorf("compressor: pid file %s is locked: %w", path, err)
		}
		return fmt.Errorf("compressor: fcntl F_SETLK: %w", err)
	}

	if err := unix.Ftruncate(fd, 0); err != nil {
		unix.Close(fd)
		return fmt.Errorf("compressor: truncate pid file: %w", err)
	}
	buf := []byte(strconv.Itoa(os.Getpid()) + "\n")
	if _, err := unix.Write(fd, buf); err != nil {
		unix.Close(fd)
		return fmt.Errorf("compressor: write pid file: %w", err)
	}

	// fd is deliberately left open and locked for the process lifetime.
	return nil
}
