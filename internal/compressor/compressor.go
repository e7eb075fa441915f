// Package compressor implements the reader/compressor/writer pipeline (C4)
// that turns a live byte stream into a sequence of independent gzip
// members, grounded on
// original_source/gzip_logs_tools/log_compressor/log_compressor.c
// (reader_thread/compressor_thread/file_writer_thread/sig_thread). Each C
// pthread becomes a goroutine; the sem_t-guarded ring buffers become
// internal/spsc pipes of internal/bufpool buffers; deflateInit2/deflate/
// deflateEnd becomes one github.com/klauspost/compress/gzip.Writer per
// gzip member (same NewWriterLevel/Write/Close shape the teacher's own
// backend/compress/gzip_handler.go uses for its sibling sgzip writer,
// generalized here to klauspost's drop-in so the output stays a plain,
// independently-decodable gzip member per sync point).
package compressor

import "github.com/kaltura/gzlogtools/internal/spsc"

// Sizing constants mirror log_compressor.c's #define block; they bound
// memory usage to roughly BufferSizeRead*ReaderToCompressorSlots +
// BufferSizeComp*CompressorToWriterSlots.
const (
	BufferSizeRead        = 65536
	BufferSizeComp        = 65536
	ReaderToCompressorLen = 256
	CompressorToWriterLen = 256
	MinReadBufferSize     = 16384
	MaxUncompSizeTillSync = 64 * 1024 * 1024
)

// Flag re-exports spsc's out-of-band markers under the names the reader/
// compressor/writer stages reason about.
type Flag = spsc.Flag

const (
	FlagReopenFile = spsc.FlagReopenFile
	FlagShutdown   = spsc.FlagShutdown
	flagFlushMask  = FlagReopenFile | FlagShutdown
)
