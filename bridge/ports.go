package bridge

import (
	"context"

	"github.com/justapithecus/ingot/types"
)

// SampleSource produces I/Q sample chunks for the pipeline. Pull blocks
// until a chunk is ready, the stream ends, or ctx is done.
//
// Pull returns exactly one of:
//   - (chunk, nil) when a chunk is available
//   - (zero, ErrEndOfStream) when no more chunks will ever arrive
//   - (zero, ErrUnavailable) when no chunk is ready right now
//   - (zero, err) on a hard source failure
type SampleSource interface {
	Pull(ctx context.Context) (types.SampleChunk, error)
	Close() error
}

// PacketSink accepts serialized VRT packets. Push either takes
// ownership of the packet bytes, returns ErrBackpressure when it cannot
// accept right now, or returns any other error to signal a fatal sink
// condition.
type PacketSink interface {
	Push(ctx context.Context, packet []byte) error
	Close() error
}
