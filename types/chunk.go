package types

import "time"

// SampleChunk is one pulled unit of raw I/Q data.
//
// Data holds interleaved I/Q components already in wire byte order for
// the stream's sample format; the packetizer slices it without copying
// or transcoding. Chunks are immutable once produced.
type SampleChunk struct {
	// Data is interleaved big-endian I/Q component bytes.
	Data []byte
	// Pairs is the number of complex pairs in Data.
	Pairs int
	// Time is the acquisition timestamp of the first pair.
	Time time.Time
	// Params is the radio parameter snapshot in effect at acquisition.
	Params RadioParams
}

// WellFormed reports whether the chunk satisfies the input contract for
// the given sample format: non-empty, a whole number of pairs, a pair
// count consistent with the byte length, and a positive sample rate.
func (c *SampleChunk) WellFormed(format SampleFormat) bool {
	if c == nil || len(c.Data) == 0 {
		return false
	}
	pb := format.PairBytes()
	if pb == 0 || len(c.Data)%pb != 0 {
		return false
	}
	if c.Pairs != len(c.Data)/pb {
		return false
	}
	return c.Params.SampleRateHz > 0
}
