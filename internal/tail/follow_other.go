//go:build !linux

package tail

import "time"

// pollInterval is how often the portable fallback re-checks the file's
// size when no inotify-equivalent is available for GOOS.
const pollInterval = 200 * time.Millisecond

// pollWatcher is the non-Linux watcher: a plain sleep loop. followReader
// re-stats the file on every Wait return, so a false wake just costs one
// extra size() call.
type pollWatcher struct{}

func newWatcher(path string) (watcher, error) {
	return pollWatcher{}, nil
}

func (pollWatcher) Wait() error {
	time.Sleep(pollInterval)
	return nil
}

func (pollWatcher) Close() error { return nil }
