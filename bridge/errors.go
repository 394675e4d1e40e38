// Package bridge implements the I/Q to VRT packetization pipeline: it
// pulls sample chunks from a source, interleaves context packets on
// parameter changes and heartbeats, slices sample data into bounded
// data packets, and delivers serialized packets to a sink with bounded
// backpressure handling.
package bridge

import (
	"errors"
	"fmt"
)

// Adapter control-flow sentinels. Sources and sinks return these to
// signal conditions the pipeline handles in-band; they are not failures
// by themselves.
var (
	// ErrEndOfStream is returned by a source when no more chunks will
	// ever arrive. The pipeline flushes and finishes cleanly.
	ErrEndOfStream = errors.New("end of stream")

	// ErrUnavailable is returned by a source when no chunk is ready
	// right now. The pipeline waits briefly and pulls again.
	ErrUnavailable = errors.New("source temporarily unavailable")

	// ErrBackpressure is returned by a sink that cannot accept a packet
	// right now. The pipeline retries with bounded buffering.
	ErrBackpressure = errors.New("sink backpressure")
)

// Classification sentinels. Use errors.Is(err, ErrXxx) for typed
// assertions on pipeline errors.
var (
	// ErrMalformedInput classifies a bad chunk from the source.
	// Recovered locally: the chunk is skipped and counted.
	ErrMalformedInput = errors.New("malformed input chunk")

	// ErrClockDiscontinuity classifies a backward timestamp step.
	// Recovered: the affected packet is marked and the stream continues.
	ErrClockDiscontinuity = errors.New("clock discontinuity")

	// ErrSinkFatal classifies a hard sink failure or a push that
	// outlasted the push timeout. Halts the pipeline.
	ErrSinkFatal = errors.New("sink failure")

	// ErrResourceExhausted classifies a full pending queue that could
	// not drain within the push timeout. Halts the pipeline.
	ErrResourceExhausted = errors.New("resource exhausted")

	// ErrSourceFailed classifies a hard source failure other than end
	// of stream. Halts the pipeline.
	ErrSourceFailed = errors.New("source failure")

	// ErrConfigInvalid classifies configuration rejected at startup,
	// before the pipeline runs.
	ErrConfigInvalid = errors.New("invalid configuration")
)

// PipelineError wraps an underlying error with pipeline classification.
// It preserves the original error in the chain for errors.Is/As.
type PipelineError struct {
	// Kind is the classification sentinel (e.g. ErrSinkFatal).
	Kind error
	// Op is the pipeline operation that failed (e.g. "push", "pull").
	Op string
	// Err is the underlying error, if any.
	Err error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Kind)
}

// Unwrap returns the underlying error for chain traversal.
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target sentinel.
func (e *PipelineError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// Fatal reports whether this error halts the pipeline. Everything else
// is absorbed locally with a counter and a log line.
func (e *PipelineError) Fatal() bool {
	switch {
	case errors.Is(e.Kind, ErrSinkFatal),
		errors.Is(e.Kind, ErrResourceExhausted),
		errors.Is(e.Kind, ErrSourceFailed),
		errors.Is(e.Kind, ErrConfigInvalid):
		return true
	default:
		return false
	}
}

// IsFatal reports whether err is a pipeline-halting condition. Errors
// that are not classified pipeline errors are treated as fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Fatal()
	}
	return true
}

func newError(kind error, op string, err error) *PipelineError {
	return &PipelineError{Kind: kind, Op: op, Err: err}
}
