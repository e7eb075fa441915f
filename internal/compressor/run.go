package compressor

import (
	"context"

	"github.com/kaltura/gzlogtools/internal/errwalk"
)

// Run starts the reader, compressor, and writer stages and blocks until all
// three finish, mirroring main_thread's sem_wait(&thread_error_sem) followed
// by pthread_join. The first non-nil error among the three is returned;
// unlike the original (where a genuine thread error just lets main() return
// and the process exit, abandoning the other two pthreads), the remaining
// goroutines here are still waited on, since leaking them would outlive a
// single Pipeline's Run call in a long-lived Go process.
func (p *Pipeline) Run(ctx context.Context) error {
	errs := make(chan error, 3)

	go func() { errs <- p.RunReader(ctx) }()
	go func() { errs <- p.RunCompressor() }()
	go func() { errs <- p.RunWriter() }()

	var firstErr error
	for i := 0; i < 3; i++ {
		if err := <-errs; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		// Log both the full wrapped chain and its innermost cause: the fatal
		// path's own message usually names the stage that failed, while
		// RootCause is what a caller piping stderr through `grep` actually
		// wants to match on (the underlying I/O or OS error, unwrapped).
		p.log.WithError(firstErr).WithField("cause", errwalk.RootCause(firstErr)).
			Error("pipeline: fatal error, shutting down")
	}
	return firstErr
}
