package sink

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/justapithecus/ingot/bridge"
	"github.com/justapithecus/ingot/log"
)

// InstrumentedStats is a point-in-time view of an Instrumented sink's
// counters.
type InstrumentedStats struct {
	Pushes       int64
	Accepted     int64
	Bytes        int64
	Backpressure int64
	Failures     int64
}

// Instrumented wraps a sink with counters and warn-level logs on
// backpressure and failure. The pipeline keeps its own delivery
// metrics; these counters stand alone so any sink can be observed from
// tooling that runs without a collector.
type Instrumented struct {
	inner  bridge.PacketSink
	logger *log.Logger

	pushes       atomic.Int64
	accepted     atomic.Int64
	bytes        atomic.Int64
	backpressure atomic.Int64
	failures     atomic.Int64
}

var _ bridge.PacketSink = (*Instrumented)(nil)

// NewInstrumented wraps inner. A nil logger gets a default.
func NewInstrumented(inner bridge.PacketSink, logger *log.Logger) *Instrumented {
	if logger == nil {
		logger = log.NewLogger(nil)
	}
	return &Instrumented{inner: inner, logger: logger}
}

// Push delegates to the inner sink, recording the outcome.
func (s *Instrumented) Push(ctx context.Context, packet []byte) error {
	s.pushes.Add(1)
	err := s.inner.Push(ctx, packet)
	switch {
	case err == nil:
		s.accepted.Add(1)
		s.bytes.Add(int64(len(packet)))
	case errors.Is(err, bridge.ErrBackpressure):
		s.backpressure.Add(1)
		s.logger.Warn("sink backpressure", map[string]any{"packet_bytes": len(packet)})
	default:
		s.failures.Add(1)
		s.logger.Warn("sink push failed", map[string]any{"error": err.Error()})
	}
	return err
}

// Stats returns the counters accumulated so far.
func (s *Instrumented) Stats() InstrumentedStats {
	return InstrumentedStats{
		Pushes:       s.pushes.Load(),
		Accepted:     s.accepted.Load(),
		Bytes:        s.bytes.Load(),
		Backpressure: s.backpressure.Load(),
		Failures:     s.failures.Load(),
	}
}

// Close delegates to the inner sink.
func (s *Instrumented) Close() error {
	return s.inner.Close()
}
