package bridge

import (
	"errors"
	"testing"
	"time"

	"github.com/justapithecus/ingot/vrt"
)

func TestClock_RealTimeFractional(t *testing.T) {
	g := NewTimestampGenerator(vrt.TSIUTC, vrt.TSFRealTime)
	acq := time.Unix(1700000000, 250_000_000)

	ts, err := g.Next(acq, 0, 1e6)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if ts.Integer != 1700000000 {
		t.Errorf("Integer = %d, want 1700000000", ts.Integer)
	}
	// 250ms in picoseconds
	if ts.Fractional != 250_000_000_000 {
		t.Errorf("Fractional = %d, want 250000000000", ts.Fractional)
	}
}

func TestClock_PairOffsetAdvancesTime(t *testing.T) {
	g := NewTimestampGenerator(vrt.TSIUTC, vrt.TSFRealTime)
	acq := time.Unix(1700000000, 0)

	// 1000 pairs at 1 MHz is exactly 1 ms after acquisition.
	ts, err := g.Next(acq, 1000, 1e6)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if ts.Integer != 1700000000 {
		t.Errorf("Integer = %d, want 1700000000", ts.Integer)
	}
	if ts.Fractional != 1_000_000_000 {
		t.Errorf("Fractional = %d ps, want 1000000000 (1 ms)", ts.Fractional)
	}
}

func TestClock_SampleCountFractional(t *testing.T) {
	g := NewTimestampGenerator(vrt.TSIUTC, vrt.TSFSampleCount)
	acq := time.Unix(1700000000, 500_000_000)

	// Half a second into the second at 1 MHz = sample 500000.
	ts, err := g.Next(acq, 0, 1e6)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if ts.Fractional != 500_000 {
		t.Errorf("Fractional = %d, want 500000", ts.Fractional)
	}
}

func TestClock_SampleCountCarriesIntoNextSecond(t *testing.T) {
	g := NewTimestampGenerator(vrt.TSIUTC, vrt.TSFSampleCount)
	// 999999999 ns at 1 kHz rounds to sample 1000 == rate, which must
	// carry into the next second.
	acq := time.Unix(1700000000, 999_999_999)

	ts, err := g.Next(acq, 0, 1000)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if ts.Integer != 1700000001 {
		t.Errorf("Integer = %d, want carried 1700000001", ts.Integer)
	}
	if ts.Fractional != 0 {
		t.Errorf("Fractional = %d, want 0 after carry", ts.Fractional)
	}
}

func TestClock_FreeRunningCounter(t *testing.T) {
	g := NewTimestampGenerator(vrt.TSIUTC, vrt.TSFFreeRunning)
	acq := time.Unix(1700000000, 0)

	ts, err := g.Next(acq, 0, 1e6)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if ts.Fractional != 0 {
		t.Errorf("first Fractional = %d, want 0", ts.Fractional)
	}

	g.Advance(360)
	ts, err = g.Next(acq.Add(time.Second), 0, 1e6)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if ts.Fractional != 360 {
		t.Errorf("second Fractional = %d, want 360", ts.Fractional)
	}
}

func TestClock_NoneModes(t *testing.T) {
	g := NewTimestampGenerator(vrt.TSINone, vrt.TSFNone)

	ts, err := g.Next(time.Unix(1700000000, 123), 0, 1e6)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if ts.Integer != 0 || ts.Fractional != 0 {
		t.Errorf("ts = %+v, want zero under none/none", ts)
	}
}

func TestClock_BackwardStepSurfacesDiscontinuity(t *testing.T) {
	g := NewTimestampGenerator(vrt.TSIUTC, vrt.TSFRealTime)
	base := time.Unix(1700000000, 0)

	if _, err := g.Next(base, 0, 1e6); err != nil {
		t.Fatalf("first next: %v", err)
	}

	ts, err := g.Next(base.Add(-2*time.Second), 0, 1e6)
	if err == nil {
		t.Fatal("expected discontinuity error for backward step")
	}
	if !errors.Is(err, ErrClockDiscontinuity) {
		t.Errorf("error = %v, want ErrClockDiscontinuity", err)
	}
	// The timestamp is still usable for the affected packet.
	if ts.Integer != 1699999998 {
		t.Errorf("Integer = %d, want best-effort 1699999998", ts.Integer)
	}

	// Monotonicity rebases on the bad value: moving forward again is
	// not a second discontinuity.
	if _, err := g.Next(base.Add(-time.Second), 0, 1e6); err != nil {
		t.Errorf("forward step after rebase: %v", err)
	}
}

func TestClock_EqualTimestampsAreMonotonic(t *testing.T) {
	g := NewTimestampGenerator(vrt.TSIUTC, vrt.TSFRealTime)
	base := time.Unix(1700000000, 0)

	if _, err := g.Next(base, 0, 1e6); err != nil {
		t.Fatalf("first next: %v", err)
	}
	// A context packet and its first data packet may share a timestamp.
	if _, err := g.Next(base, 0, 1e6); err != nil {
		t.Errorf("equal timestamp: %v, want no discontinuity", err)
	}
}

func TestClock_DiscontinuityIsFatalNeverSilent(t *testing.T) {
	g := NewTimestampGenerator(vrt.TSIUTC, vrt.TSFRealTime)
	base := time.Unix(1700000000, 0)

	if _, err := g.Next(base, 0, 1e6); err != nil {
		t.Fatalf("first next: %v", err)
	}
	_, err := g.Next(base.Add(-time.Second), 0, 1e6)

	var pe *PipelineError
	if !errors.As(err, &pe) {
		t.Fatalf("error %v is not a PipelineError", err)
	}
	if pe.Fatal() {
		t.Error("discontinuity should be recoverable, not fatal")
	}
	if IsFatal(err) {
		t.Error("IsFatal should report false for a discontinuity")
	}
}
