package bridge

import (
	"testing"
	"time"

	"github.com/justapithecus/ingot/types"
)

func testParams() types.RadioParams {
	return types.RadioParams{
		CenterFrequencyHz: 100e6,
		SampleRateHz:      1e6,
		BandwidthHz:       800e3,
		GainDB:            20,
		ReferenceLevelDBm: -30,
	}
}

func TestTracker_FirstObserveIsChanged(t *testing.T) {
	tr := NewContextTracker(0, 0)
	now := time.Unix(1700000000, 0)

	snapshot, decision := tr.Observe(testParams(), now)
	if decision != ContextChanged {
		t.Fatalf("decision = %s, want changed", decision)
	}
	if !snapshot.Equal(testParams()) {
		t.Errorf("snapshot = %+v, want observed params", snapshot)
	}
}

func TestTracker_ObserveIsPure(t *testing.T) {
	tr := NewContextTracker(0, 0)
	now := time.Unix(1700000000, 0)

	// Observing without committing must not change the decision.
	_, first := tr.Observe(testParams(), now)
	_, second := tr.Observe(testParams(), now)
	if first != second {
		t.Fatalf("repeated observe: first = %s, second = %s", first, second)
	}

	if _, ok := tr.Current(); ok {
		t.Error("Current should report nothing before a commit")
	}
}

func TestTracker_UnchangedAfterCommit(t *testing.T) {
	tr := NewContextTracker(0, 0)
	now := time.Unix(1700000000, 0)

	snapshot, _ := tr.Observe(testParams(), now)
	tr.Commit(snapshot, now)

	_, decision := tr.Observe(testParams(), now)
	if decision != ContextUnchanged {
		t.Fatalf("decision = %s, want unchanged", decision)
	}
}

func TestTracker_ParamChangeIsChanged(t *testing.T) {
	tr := NewContextTracker(0, 0)
	now := time.Unix(1700000000, 0)

	snapshot, _ := tr.Observe(testParams(), now)
	tr.Commit(snapshot, now)

	retuned := testParams()
	retuned.CenterFrequencyHz = 200e6

	got, decision := tr.Observe(retuned, now)
	if decision != ContextChanged {
		t.Fatalf("decision = %s, want changed", decision)
	}
	if got.CenterFrequencyHz != 200e6 {
		t.Errorf("snapshot center = %v, want retuned value", got.CenterFrequencyHz)
	}
}

func TestTracker_HeartbeatByPacketCount(t *testing.T) {
	tr := NewContextTracker(3, 0)
	now := time.Unix(1700000000, 0)

	snapshot, _ := tr.Observe(testParams(), now)
	tr.Commit(snapshot, now)

	tr.NoteData()
	tr.NoteData()
	if _, decision := tr.Observe(testParams(), now); decision != ContextUnchanged {
		t.Fatalf("below threshold: decision = %s, want unchanged", decision)
	}

	tr.NoteData()
	if _, decision := tr.Observe(testParams(), now); decision != ContextHeartbeat {
		t.Fatalf("at threshold: decision = %s, want heartbeat", decision)
	}

	// Commit resets the counter.
	tr.Commit(snapshot, now)
	if _, decision := tr.Observe(testParams(), now); decision != ContextUnchanged {
		t.Fatalf("after commit: decision = %s, want unchanged", decision)
	}
}

func TestTracker_HeartbeatByInterval(t *testing.T) {
	tr := NewContextTracker(0, time.Second)
	start := time.Unix(1700000000, 0)

	snapshot, _ := tr.Observe(testParams(), start)
	tr.Commit(snapshot, start)

	if _, decision := tr.Observe(testParams(), start.Add(500*time.Millisecond)); decision != ContextUnchanged {
		t.Fatalf("within interval: decision = %s, want unchanged", decision)
	}

	if _, decision := tr.Observe(testParams(), start.Add(time.Second)); decision != ContextHeartbeat {
		t.Fatalf("past interval: decision = %s, want heartbeat", decision)
	}
}

func TestTracker_ChangeWinsOverHeartbeat(t *testing.T) {
	tr := NewContextTracker(1, 0)
	now := time.Unix(1700000000, 0)

	snapshot, _ := tr.Observe(testParams(), now)
	tr.Commit(snapshot, now)
	tr.NoteData()

	retuned := testParams()
	retuned.GainDB = 40

	// Both triggers are due; a real change must be announced as one.
	if _, decision := tr.Observe(retuned, now); decision != ContextChanged {
		t.Fatalf("decision = %s, want changed", decision)
	}
}

func TestTracker_DisabledHeartbeats(t *testing.T) {
	tr := NewContextTracker(0, 0)
	now := time.Unix(1700000000, 0)

	snapshot, _ := tr.Observe(testParams(), now)
	tr.Commit(snapshot, now)

	for range 100 {
		tr.NoteData()
	}
	if _, decision := tr.Observe(testParams(), now.Add(time.Hour)); decision != ContextUnchanged {
		t.Fatalf("decision = %s, want unchanged with heartbeats disabled", decision)
	}
}
