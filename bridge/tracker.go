package bridge

import (
	"time"

	"github.com/justapithecus/ingot/types"
)

// ContextDecision is the outcome of observing a chunk's radio
// parameters against the last announced context.
type ContextDecision int

const (
	// ContextUnchanged means no context packet is due.
	ContextUnchanged ContextDecision = iota
	// ContextChanged means the parameters differ from the last
	// announced snapshot and a change context packet is due.
	ContextChanged
	// ContextHeartbeat means parameters are unchanged but the
	// heartbeat cadence requires a refresher context packet.
	ContextHeartbeat
)

func (d ContextDecision) String() string {
	switch d {
	case ContextUnchanged:
		return "unchanged"
	case ContextChanged:
		return "changed"
	case ContextHeartbeat:
		return "heartbeat"
	default:
		return "unknown"
	}
}

// ContextTracker decides when context packets are due. Observe is a
// pure read; the caller commits a snapshot only after the context
// packet for it has actually been emitted, so a failed emission leaves
// the tracker ready to decide again.
type ContextTracker struct {
	heartbeatPackets  int
	heartbeatInterval time.Duration

	last      types.RadioParams
	announced bool
	dataSince int
	lastEmit  time.Time
}

// NewContextTracker returns a tracker with the given heartbeat cadence.
// A zero packets count or zero interval disables that trigger.
func NewContextTracker(heartbeatPackets int, heartbeatInterval time.Duration) *ContextTracker {
	return &ContextTracker{
		heartbeatPackets:  heartbeatPackets,
		heartbeatInterval: heartbeatInterval,
	}
}

// Observe compares params against the last announced snapshot and
// reports whether a context packet is due. It never mutates tracker
// state: identical params observed twice yield the same decision.
func (t *ContextTracker) Observe(params types.RadioParams, now time.Time) (types.RadioParams, ContextDecision) {
	switch {
	case !t.announced:
		return params, ContextChanged
	case !t.last.Equal(params):
		return params, ContextChanged
	case t.heartbeatPackets > 0 && t.dataSince >= t.heartbeatPackets:
		return params, ContextHeartbeat
	case t.heartbeatInterval > 0 && now.Sub(t.lastEmit) >= t.heartbeatInterval:
		return params, ContextHeartbeat
	default:
		return params, ContextUnchanged
	}
}

// Commit records that a context packet carrying snapshot was emitted at
// now, resetting both heartbeat triggers.
func (t *ContextTracker) Commit(snapshot types.RadioParams, now time.Time) {
	t.last = snapshot
	t.announced = true
	t.dataSince = 0
	t.lastEmit = now
}

// NoteData records one emitted data packet for the packet-count
// heartbeat trigger.
func (t *ContextTracker) NoteData() {
	t.dataSince++
}

// Current returns the last committed snapshot, if any.
func (t *ContextTracker) Current() (types.RadioParams, bool) {
	return t.last, t.announced
}
