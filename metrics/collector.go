// Package metrics provides per-stream metrics collection.
//
// The Collector accumulates counters during a single stream session. It
// is a leaf package with no internal dependencies; the bridge records
// into it live and the final report renders from a Snapshot.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all stream metrics.
// Returned by Collector.Snapshot(). Safe to read concurrently after
// creation.
type Snapshot struct {
	// Input
	ChunksIn      int64
	ChunksSkipped int64
	PairsIn       int64
	BytesIn       int64

	// Packetization
	DataPackets    int64
	ContextPackets int64
	HeartbeatCtx   int64

	// Delivery
	PacketsDelivered    int64
	BytesDelivered      int64
	BackpressureRetries int64
	MaxPendingObserved  int64

	// Anomalies
	Discontinuities      int64
	AdapterPublishErrors int64

	// Dimensions (informational, set at construction)
	SourceKind string
	SinkKind   string
	StreamID   uint32
	SessionID  string
}

// Collector accumulates metrics during a single stream session.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver
// safe so instrumentation points never have to guard for a missing
// collector.
type Collector struct {
	mu sync.Mutex

	// Input
	chunksIn      int64
	chunksSkipped int64
	pairsIn       int64
	bytesIn       int64

	// Packetization
	dataPackets    int64
	contextPackets int64
	heartbeatCtx   int64

	// Delivery
	packetsDelivered    int64
	bytesDelivered      int64
	backpressureRetries int64
	maxPendingObserved  int64

	// Anomalies
	discontinuities      int64
	adapterPublishErrors int64

	// Dimensions
	sourceKind string
	sinkKind   string
	streamID   uint32
	sessionID  string
}

// NewCollector creates a Collector with dimension labels. sourceKind
// and sinkKind name the configured adapters; streamID and sessionID
// identify the stream session.
func NewCollector(sourceKind, sinkKind string, streamID uint32, sessionID string) *Collector {
	return &Collector{
		sourceKind: sourceKind,
		sinkKind:   sinkKind,
		streamID:   streamID,
		sessionID:  sessionID,
	}
}

// --- Input ---

// AddChunk records one accepted chunk with its pair and byte sizes.
func (c *Collector) AddChunk(pairs, bytes int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.chunksIn++
	c.pairsIn += int64(pairs)
	c.bytesIn += int64(bytes)
	c.mu.Unlock()
}

// IncChunkSkipped records one malformed chunk skipped without
// packetization.
func (c *Collector) IncChunkSkipped() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.chunksSkipped++
	c.mu.Unlock()
}

// --- Packetization ---

// IncDataPacket records one assembled data packet.
func (c *Collector) IncDataPacket() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.dataPackets++
	c.mu.Unlock()
}

// IncContextPacket records one assembled context packet. heartbeat
// distinguishes cadence refreshers from change announcements.
func (c *Collector) IncContextPacket(heartbeat bool) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.contextPackets++
	if heartbeat {
		c.heartbeatCtx++
	}
	c.mu.Unlock()
}

// --- Delivery ---

// AddDelivered records one packet accepted by the sink.
func (c *Collector) AddDelivered(bytes int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.packetsDelivered++
	c.bytesDelivered += int64(bytes)
	c.mu.Unlock()
}

// IncBackpressureRetry records one backpressure response from the sink.
func (c *Collector) IncBackpressureRetry() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.backpressureRetries++
	c.mu.Unlock()
}

// ObservePending records the pending-queue depth after an enqueue,
// keeping the high-water mark.
func (c *Collector) ObservePending(depth int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	if int64(depth) > c.maxPendingObserved {
		c.maxPendingObserved = int64(depth)
	}
	c.mu.Unlock()
}

// --- Anomalies ---

// IncDiscontinuity records one backward timestamp step.
func (c *Collector) IncDiscontinuity() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.discontinuities++
	c.mu.Unlock()
}

// IncAdapterPublishError records one failed lifecycle event publish.
func (c *Collector) IncAdapterPublishError() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.adapterPublishErrors++
	c.mu.Unlock()
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics.
// The returned Snapshot is safe to read concurrently; the Collector can
// continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		ChunksIn:      c.chunksIn,
		ChunksSkipped: c.chunksSkipped,
		PairsIn:       c.pairsIn,
		BytesIn:       c.bytesIn,

		DataPackets:    c.dataPackets,
		ContextPackets: c.contextPackets,
		HeartbeatCtx:   c.heartbeatCtx,

		PacketsDelivered:    c.packetsDelivered,
		BytesDelivered:      c.bytesDelivered,
		BackpressureRetries: c.backpressureRetries,
		MaxPendingObserved:  c.maxPendingObserved,

		Discontinuities:      c.discontinuities,
		AdapterPublishErrors: c.adapterPublishErrors,

		SourceKind: c.sourceKind,
		SinkKind:   c.sinkKind,
		StreamID:   c.streamID,
		SessionID:  c.sessionID,
	}
}
