package compressor

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/sirupsen/logrus"
)

// Signals is the Go translation of sig_thread/init_signals: REOPEN_SIGNAL
// (SIGUSR1) bumps a shared counter every watched Pipeline's reader notices
// on its next loop iteration; SHUTDOWN_SIGNAL (SIGQUIT) sets a shared flag.
// sigwait's dedicated signal-handling thread becomes a channel registered
// with os/signal.Notify; Go's runtime already delivers signals off the main
// goroutine, so there is no equivalent of sigprocmask(SIG_BLOCK) to write.
type Signals struct {
	ReopenCounter int64
	Shutdown      int32
}

// NewSignals allocates a zeroed Signals ready to be shared by every
// Pipeline a daemon-mode invocation watches.
func NewSignals() *Signals {
	return &Signals{}
}

// Watch blocks handling SIGUSR1/SIGQUIT until ctx is cancelled or SIGQUIT is
// received, at which point it sets Shutdown and returns.
func (s *Signals) Watch(ctx context.Context, log *logrus.Entry) {
	ch := make(chan os.Signal, 4)
	signal.Notify(ch, syscall.SIGUSR1, syscall.SIGQUIT)
	defer signal.Stop(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-ch:
			switch sig {
			case syscall.SIGUSR1:
				atomic.AddInt64(&s.ReopenCounter, 1)
				log.Info("sig_thread: reopening files")
			case syscall.SIGQUIT:
				log.Info("sig_thread: shutting down")
				atomic.StoreInt32(&s.Shutdown, 1)
				return
			}
		}
	}
}

// counters exposes the pointers New expects; a Pipeline only ever reads
// them, the same relaxed "writer increments, reader polls" contract
// reopen_files/shutdown_signalled used as `volatile int` globals.
func (s *Signals) counters() (*int64, *int32) {
	return &s.ReopenCounter, &s.Shutdown
}
