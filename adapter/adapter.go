// Package adapter defines the stream event-bus boundary.
//
// Adapters publish stream lifecycle notifications to downstream
// systems. The bridge owns adapter lifecycle; users provide
// configuration only. Event publishing is best effort and never blocks
// the sample path.
package adapter

import "context"

// Event types published over a stream session's lifecycle.
const (
	// EventStreamStarted is published once when the pipeline starts.
	EventStreamStarted = "stream_started"
	// EventContextChanged is published when radio parameters change
	// mid-stream. Heartbeat context packets do not publish.
	EventContextChanged = "context_changed"
	// EventClockDiscontinuity is published when a timestamp steps
	// backward.
	EventClockDiscontinuity = "clock_discontinuity"
	// EventStreamCompleted is published when the source ends cleanly
	// and the flush finished.
	EventStreamCompleted = "stream_completed"
	// EventStreamHalted is published when the pipeline stops on a
	// fatal error or cancellation.
	EventStreamHalted = "stream_halted"
)

// StreamEvent is the payload published at stream lifecycle points.
type StreamEvent struct {
	SchemaVersion string `json:"schema_version"`
	EventType     string `json:"event_type"`
	StreamID      uint32 `json:"stream_id"`
	SessionID     string `json:"session_id,omitempty"`
	Timestamp     string `json:"timestamp"` // ISO 8601

	// Radio parameters in effect when the event fired. Zero when no
	// context has been announced yet.
	CenterFrequencyHz float64 `json:"center_frequency_hz,omitempty"`
	SampleRateHz      float64 `json:"sample_rate_hz,omitempty"`

	// Counters at event time.
	DataPackets    int64 `json:"data_packets"`
	ContextPackets int64 `json:"context_packets"`
	BytesDelivered int64 `json:"bytes_delivered"`

	// Reason describes a halt or discontinuity. Empty otherwise.
	Reason string `json:"reason,omitempty"`
}

// Adapter publishes stream events to a downstream system.
// Implementations must be safe for single-use per stream session.
type Adapter interface {
	// Publish sends a stream event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *StreamEvent) error

	// Close releases adapter resources.
	Close() error
}
