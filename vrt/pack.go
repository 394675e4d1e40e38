package vrt

import (
	"encoding/binary"
	"math"
)

// Sample packing helpers. Sources produce chunk data in wire byte order
// so the packetizer can slice payloads without transcoding; these cover
// the conversion from native component slices.

// PackCI16 packs interleaved int16 I/Q components into wire bytes.
func PackCI16(components []int16) []byte {
	buf := make([]byte, len(components)*2)
	for i, c := range components {
		binary.BigEndian.PutUint16(buf[i*2:], uint16(c))
	}
	return buf
}

// UnpackCI16 reverses PackCI16.
func UnpackCI16(data []byte) []int16 {
	out := make([]int16, len(data)/2)
	for i := range out {
		out[i] = int16(binary.BigEndian.Uint16(data[i*2:]))
	}
	return out
}

// PackCI32 packs interleaved int32 I/Q components into wire bytes.
func PackCI32(components []int32) []byte {
	buf := make([]byte, len(components)*4)
	for i, c := range components {
		binary.BigEndian.PutUint32(buf[i*4:], uint32(c))
	}
	return buf
}

// PackCF32 packs interleaved float32 I/Q components into wire bytes.
func PackCF32(components []float32) []byte {
	buf := make([]byte, len(components)*4)
	for i, c := range components {
		binary.BigEndian.PutUint32(buf[i*4:], math.Float32bits(c))
	}
	return buf
}

// UnpackCF32 reverses PackCF32.
func UnpackCF32(data []byte) []float32 {
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.BigEndian.Uint32(data[i*4:]))
	}
	return out
}
