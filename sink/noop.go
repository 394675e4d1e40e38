package sink

import (
	"context"
	"sync/atomic"

	"github.com/justapithecus/ingot/bridge"
)

// Noop accepts every packet and keeps counts. Useful for dry runs and
// for measuring packetization throughput without a transport.
type Noop struct {
	packets atomic.Int64
	bytes   atomic.Int64
}

var _ bridge.PacketSink = (*Noop)(nil)

// NewNoop creates a counting sink.
func NewNoop() *Noop {
	return &Noop{}
}

// Push accepts the packet unconditionally.
func (s *Noop) Push(_ context.Context, packet []byte) error {
	s.packets.Add(1)
	s.bytes.Add(int64(len(packet)))
	return nil
}

// Packets returns the number of packets accepted so far.
func (s *Noop) Packets() int64 {
	return s.packets.Load()
}

// Bytes returns the total packet bytes accepted so far.
func (s *Noop) Bytes() int64 {
	return s.bytes.Load()
}

// Close is a no-op.
func (s *Noop) Close() error {
	return nil
}
