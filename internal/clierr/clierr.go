// Package clierr implements spec.md §7's single-line failure format,
// shared by every cmd/ entry point so the five tools agree on what a
// fatal error looks like on stderr instead of each main.go rolling its
// own. No teacher cmd/ source survived into the retrieval pack (only its
// tests did), so this follows cobra's own RunE-returns-error convention
// directly rather than adapting a specific teacher file.
package clierr

import (
	"fmt"
	"os"

	"github.com/kaltura/gzlogtools/internal/errwalk"
)

// Exit prints err as "<program>: <message>[: <cause>]" to stderr and exits
// with code. The optional "[: <cause>]" suffix is only appended when
// errwalk.RootCause finds something more specific than err's own message,
// e.g. an *os.PathError or syscall.Errno at the bottom of a wrapped chain.
func Exit(program string, err error, code int) {
	msg := err.Error()
	if cause := errwalk.RootCause(err); cause != nil && cause.Error() != msg {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", program, msg, cause)
	} else {
		fmt.Fprintf(os.Stderr, "%s: %s\n", program, msg)
	}
	os.Exit(code)
}

// Exit codes per spec.md §6.
const (
	ExitOK          = 0
	ExitFatal       = 1
	ExitUsageConfig = 2
)
