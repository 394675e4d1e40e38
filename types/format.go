package types

import "fmt"

// SampleFormat identifies the on-wire encoding of one complex I/Q pair.
//
// Only word-aligned formats are supported: every pair occupies a whole
// number of 32-bit words, so payload slicing on pair boundaries is always
// slicing on word boundaries too.
type SampleFormat string

const (
	// FormatCI16 is complex int16: 16-bit big-endian I then Q, one word per pair.
	FormatCI16 SampleFormat = "ci16"
	// FormatCI32 is complex int32: 32-bit big-endian I then Q, two words per pair.
	FormatCI32 SampleFormat = "ci32"
	// FormatCF32 is complex float32: IEEE 754 big-endian I then Q, two words per pair.
	FormatCF32 SampleFormat = "cf32"
)

// ParseSampleFormat parses a config string into a SampleFormat.
func ParseSampleFormat(s string) (SampleFormat, error) {
	switch SampleFormat(s) {
	case FormatCI16, FormatCI32, FormatCF32:
		return SampleFormat(s), nil
	default:
		return "", fmt.Errorf("unknown sample format %q (want ci16, ci32, or cf32)", s)
	}
}

// PairBytes returns the serialized size of one I/Q pair in bytes.
func (f SampleFormat) PairBytes() int {
	switch f {
	case FormatCI16:
		return 4
	case FormatCI32, FormatCF32:
		return 8
	default:
		return 0
	}
}

// PairWords returns the serialized size of one I/Q pair in 32-bit words.
func (f SampleFormat) PairWords() int {
	return f.PairBytes() / 4
}

// Valid reports whether f is a known sample format.
func (f SampleFormat) Valid() bool {
	return f.PairBytes() > 0
}
