package metrics

import (
	"sync"
	"testing"
)

func TestCollector_IncrementMethods(t *testing.T) {
	c := NewCollector("synth", "udp", 42, "sess-001")

	c.AddChunk(1024, 4096)
	c.AddChunk(512, 2048)
	c.IncChunkSkipped()
	c.IncDataPacket()
	c.IncDataPacket()
	c.IncDataPacket()
	c.IncContextPacket(false)
	c.IncContextPacket(true)
	c.AddDelivered(1480)
	c.AddDelivered(1480)
	c.IncBackpressureRetry()
	c.IncBackpressureRetry()
	c.IncDiscontinuity()
	c.IncAdapterPublishError()

	s := c.Snapshot()

	if s.ChunksIn != 2 {
		t.Errorf("ChunksIn = %d, want 2", s.ChunksIn)
	}
	if s.ChunksSkipped != 1 {
		t.Errorf("ChunksSkipped = %d, want 1", s.ChunksSkipped)
	}
	if s.PairsIn != 1536 {
		t.Errorf("PairsIn = %d, want 1536", s.PairsIn)
	}
	if s.BytesIn != 6144 {
		t.Errorf("BytesIn = %d, want 6144", s.BytesIn)
	}
	if s.DataPackets != 3 {
		t.Errorf("DataPackets = %d, want 3", s.DataPackets)
	}
	if s.ContextPackets != 2 {
		t.Errorf("ContextPackets = %d, want 2", s.ContextPackets)
	}
	if s.HeartbeatCtx != 1 {
		t.Errorf("HeartbeatCtx = %d, want 1", s.HeartbeatCtx)
	}
	if s.PacketsDelivered != 2 {
		t.Errorf("PacketsDelivered = %d, want 2", s.PacketsDelivered)
	}
	if s.BytesDelivered != 2960 {
		t.Errorf("BytesDelivered = %d, want 2960", s.BytesDelivered)
	}
	if s.BackpressureRetries != 2 {
		t.Errorf("BackpressureRetries = %d, want 2", s.BackpressureRetries)
	}
	if s.Discontinuities != 1 {
		t.Errorf("Discontinuities = %d, want 1", s.Discontinuities)
	}
	if s.AdapterPublishErrors != 1 {
		t.Errorf("AdapterPublishErrors = %d, want 1", s.AdapterPublishErrors)
	}
}

func TestCollector_Dimensions(t *testing.T) {
	c := NewCollector("udp", "s3", 7, "sess-42")
	s := c.Snapshot()

	if s.SourceKind != "udp" {
		t.Errorf("SourceKind = %q, want %q", s.SourceKind, "udp")
	}
	if s.SinkKind != "s3" {
		t.Errorf("SinkKind = %q, want %q", s.SinkKind, "s3")
	}
	if s.StreamID != 7 {
		t.Errorf("StreamID = %d, want 7", s.StreamID)
	}
	if s.SessionID != "sess-42" {
		t.Errorf("SessionID = %q, want %q", s.SessionID, "sess-42")
	}
}

func TestCollector_ObservePending(t *testing.T) {
	c := NewCollector("synth", "noop", 1, "")

	c.ObservePending(3)
	c.ObservePending(7)
	c.ObservePending(2)

	s := c.Snapshot()
	if s.MaxPendingObserved != 7 {
		t.Errorf("MaxPendingObserved = %d, want 7 (high-water mark)", s.MaxPendingObserved)
	}
}

func TestCollector_SnapshotImmutability(t *testing.T) {
	c := NewCollector("synth", "noop", 1, "")
	c.IncDataPacket()
	c.AddDelivered(100)

	s1 := c.Snapshot()

	// Mutate collector after snapshot
	c.IncDataPacket()
	c.AddDelivered(100)
	c.AddDelivered(100)

	// s1 should be unchanged
	if s1.DataPackets != 1 {
		t.Errorf("s1.DataPackets = %d, want 1 (snapshot should be frozen)", s1.DataPackets)
	}
	if s1.PacketsDelivered != 1 {
		t.Errorf("s1.PacketsDelivered = %d, want 1 (snapshot should be frozen)", s1.PacketsDelivered)
	}

	// New snapshot should reflect mutations
	s2 := c.Snapshot()
	if s2.DataPackets != 2 {
		t.Errorf("s2.DataPackets = %d, want 2", s2.DataPackets)
	}
	if s2.BytesDelivered != 300 {
		t.Errorf("s2.BytesDelivered = %d, want 300", s2.BytesDelivered)
	}
}

func TestCollector_NilReceiverSafety(t *testing.T) {
	var c *Collector

	// None of these should panic
	c.AddChunk(10, 40)
	c.IncChunkSkipped()
	c.IncDataPacket()
	c.IncContextPacket(true)
	c.AddDelivered(100)
	c.IncBackpressureRetry()
	c.ObservePending(5)
	c.IncDiscontinuity()
	c.IncAdapterPublishError()

	s := c.Snapshot()
	if s.ChunksIn != 0 {
		t.Errorf("nil collector snapshot ChunksIn = %d, want 0", s.ChunksIn)
	}
	if s.MaxPendingObserved != 0 {
		t.Errorf("nil collector snapshot MaxPendingObserved = %d, want 0", s.MaxPendingObserved)
	}
}

func TestCollector_ConcurrentAccess(t *testing.T) {
	c := NewCollector("synth", "noop", 1, "")
	const goroutines = 10
	const iterations = 1000

	var wg sync.WaitGroup
	wg.Add(goroutines)

	for range goroutines {
		go func() {
			defer wg.Done()
			for range iterations {
				c.IncDataPacket()
				c.AddDelivered(4)
				c.IncBackpressureRetry()
			}
		}()
	}

	wg.Wait()

	s := c.Snapshot()
	want := int64(goroutines * iterations)

	if s.DataPackets != want {
		t.Errorf("DataPackets = %d, want %d", s.DataPackets, want)
	}
	if s.PacketsDelivered != want {
		t.Errorf("PacketsDelivered = %d, want %d", s.PacketsDelivered, want)
	}
	if s.BytesDelivered != want*4 {
		t.Errorf("BytesDelivered = %d, want %d", s.BytesDelivered, want*4)
	}
	if s.BackpressureRetries != want {
		t.Errorf("BackpressureRetries = %d, want %d", s.BackpressureRetries, want)
	}
}
