// Package source provides sample source adapters: a deterministic tone
// synthesizer, RIFF/WAVE files, recorded .iqc captures, a UDP listener,
// and pcap replay. All of them implement bridge.SampleSource.
package source

import (
	"context"
	"time"
)

// timeAt synthesizes an acquisition timestamp from a pair counter, for
// sources whose input carries no clock of its own.
func timeAt(start time.Time, pairs int64, rateHz float64) time.Time {
	return start.Add(time.Duration(float64(pairs) / rateHz * float64(time.Second)))
}

// sleepUntil blocks until the target wall time or context cancellation.
func sleepUntil(ctx context.Context, clock func() time.Time, target time.Time) error {
	d := target.Sub(clock())
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// pacer maps recorded timestamps onto the wall clock so replay sources
// can reproduce the original cadence. The first recorded time anchors
// the mapping and replays immediately.
type pacer struct {
	clock      func() time.Time
	anchored   bool
	wallAnchor time.Time
	recAnchor  time.Time
}

func (p *pacer) wait(ctx context.Context, recorded time.Time) error {
	if !p.anchored {
		p.wallAnchor = p.clock()
		p.recAnchor = recorded
		p.anchored = true
		return nil
	}
	target := p.wallAnchor.Add(recorded.Sub(p.recAnchor))
	return sleepUntil(ctx, p.clock, target)
}
