package compressor

import (
	"sync/atomic"

	"github.com/klauspost/compress/gzip"
	"github.com/sirupsen/logrus"

	"github.com/kaltura/gzlogtools/internal/bufpool"
	"github.com/kaltura/gzlogtools/internal/spsc"
)

// Pipeline is one watched input's worth of state: the two buffer pools and
// two SPSC pipes log_compressor.c's state_t bundles per input, plus the
// shared reopen/shutdown counters every pipeline's reader consults.
type Pipeline struct {
	Input  Input
	Output string // output path, or ".gz" for stdout, per log_compressor.c's file_writer_thread

	Level int // gzip compression level, passed to gzip.NewWriterLevel as is; New sets gzip.DefaultCompression

	readPool *bufpool.Pool
	compPool *bufpool.Pool
	toComp   *spsc.Pipe
	toWriter *spsc.Pipe

	reopenCounter *int64
	shutdown      *int32

	log *logrus.Entry
}

// New builds a Pipeline. sig is shared across every watched input in a
// daemon-mode invocation, so a single SIGUSR1/SIGQUIT fans out to all of
// them at once (sig_thread in the original only runs once regardless of how
// many inputs were passed on argv).
func New(input Input, output string, sig *Signals, log *logrus.Entry) *Pipeline {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if sig == nil {
		sig = NewSignals()
	}
	reopenCounter, shutdown := sig.counters()
	return &Pipeline{
		Input:         input,
		Output:        output,
		Level:         gzip.DefaultCompression,
		readPool:      bufpool.New(BufferSizeRead, ReaderToCompressorLen),
		compPool:      bufpool.New(BufferSizeComp, CompressorToWriterLen),
		toComp:        spsc.New(ReaderToCompressorLen),
		toWriter:      spsc.New(CompressorToWriterLen),
		reopenCounter: reopenCounter,
		shutdown:      shutdown,
		log:           log,
	}
}

func (p *Pipeline) reopenCount() int64 { return atomic.LoadInt64(p.reopenCounter) }
func (p *Pipeline) shuttingDown() bool { return atomic.LoadInt32(p.shutdown) != 0 }
