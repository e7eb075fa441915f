// Package errwalk walks a wrapped error chain to find its root cause,
// grounded on the chain-walking helper exercised in
// github.com/rclone/rclone/lib/errors (lib/errors/errors_test.go's Walk).
// Go's errors.Unwrap already gives us the traversal primitive; this
// package just applies it to the one thing the compressor's fatal-error
// path needs: the innermost error, for the single-line
// "<program>: <message>[: <cause>]" format spec.md §7 requires.
package errwalk

import "errors"

// RootCause returns the innermost error in err's Unwrap chain. If err does
// not wrap anything, it returns err itself.
func RootCause(err error) error {
	for {
		inner := errors.Unwrap(err)
		if inner == nil {
			return err
		}
		err = inner
	}
}

// Any reports whether any error in err's chain satisfies match.
func Any(err error, match func(error) bool) bool {
	for err != nil {
		if match(err) {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}
