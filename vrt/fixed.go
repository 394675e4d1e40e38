package vrt

import "math"

// VITA-49.0 fixed-point encodings for context fields.
//
// Frequency-class fields (bandwidth, RF reference frequency, sample rate)
// are 64-bit two's complement with the radix point to the right of bit 20,
// giving roughly microhertz resolution. Level-class fields (reference
// level, gain stages) are 16-bit two's complement with the radix point to
// the right of bit 7, giving 1/128 dB resolution.

const hzRadix = 1 << 20

// EncodeHz converts hertz to the 64-bit radix-20 fixed-point wire value.
func EncodeHz(hz float64) int64 {
	return int64(math.Round(hz * hzRadix))
}

// DecodeHz converts a 64-bit radix-20 fixed-point wire value to hertz.
func DecodeHz(v int64) float64 {
	return float64(v) / hzRadix
}

const dbRadix = 1 << 7

// EncodeDB converts decibels to the 16-bit radix-7 fixed-point wire value.
func EncodeDB(db float64) int16 {
	return int16(math.Round(db * dbRadix))
}

// DecodeDB converts a 16-bit radix-7 fixed-point wire value to decibels.
func DecodeDB(v int16) float64 {
	return float64(v) / dbRadix
}
