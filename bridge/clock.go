package bridge

import (
	"fmt"
	"math"
	"time"

	"github.com/justapithecus/ingot/vrt"
)

// TimestampGenerator derives per-packet VRT timestamps from chunk
// acquisition times and enforces monotonicity across the stream.
//
// Integer seconds are Unix epoch seconds regardless of the announced
// TSI mode; consumers interpret the field per the header's TSI bits.
type TimestampGenerator struct {
	tsi vrt.TSIMode
	tsf vrt.TSFMode

	last   vrt.Time
	primed bool

	// freeCounter backs TSFFreeRunning: total sample pairs emitted so
	// far, advanced by the caller after each data packet.
	freeCounter uint64
}

// NewTimestampGenerator returns a generator for the given timestamp
// modes.
func NewTimestampGenerator(tsi vrt.TSIMode, tsf vrt.TSFMode) *TimestampGenerator {
	return &TimestampGenerator{tsi: tsi, tsf: tsf}
}

// Next derives the timestamp for a packet whose first sample pair is
// pairOffset pairs after acq at rateHz pairs per second.
//
// The returned timestamp is always usable. When it would step backward
// relative to the previous one, Next additionally returns an
// ErrClockDiscontinuity classification and rebases monotonicity
// tracking on the new value, so a single bad step is surfaced once
// rather than cascading.
func (g *TimestampGenerator) Next(acq time.Time, pairOffset int, rateHz float64) (vrt.Time, error) {
	at := acq
	if pairOffset > 0 && rateHz > 0 {
		at = acq.Add(time.Duration(float64(pairOffset) / rateHz * float64(time.Second)))
	}

	next := vrt.Time{}
	if g.tsi != vrt.TSINone {
		next.Integer = uint32(at.Unix())
	}

	switch g.tsf {
	case vrt.TSFNone:
	case vrt.TSFSampleCount:
		if rateHz > 0 {
			frac := math.Round(float64(at.Nanosecond()) / float64(time.Second) * rateHz)
			if frac >= rateHz {
				next.Integer++
				frac = 0
			}
			next.Fractional = uint64(frac)
		}
	case vrt.TSFRealTime:
		next.Fractional = uint64(at.Nanosecond()) * 1000
	case vrt.TSFFreeRunning:
		next.Fractional = g.freeCounter
	}

	var err error
	if g.primed && next.Less(g.last) {
		err = newError(ErrClockDiscontinuity, "timestamp",
			fmt.Errorf("time stepped backward: %d.%012d -> %d.%012d",
				g.last.Integer, g.last.Fractional, next.Integer, next.Fractional))
	}
	g.last = next
	g.primed = true
	return next, err
}

// Advance records pairs emitted sample pairs for the free-running
// fractional counter. No-op under other TSF modes.
func (g *TimestampGenerator) Advance(pairs int) {
	g.freeCounter += uint64(pairs)
}
