package vrt

import (
	"encoding/binary"
	"fmt"
)

// CIF0 indicator bits for the context fields this codec emits. Field
// data follows the indicator word in descending bit order.
const (
	CIF0ChangeIndicator = uint32(1) << 31
	CIF0Bandwidth       = uint32(1) << 29
	CIF0RFRefFrequency  = uint32(1) << 27
	CIF0ReferenceLevel  = uint32(1) << 24
	CIF0Gain            = uint32(1) << 23
	CIF0SampleRate      = uint32(1) << 21
	CIF0StateEvents     = uint32(1) << 16
)

const contextFieldBits = CIF0Bandwidth | CIF0RFRefFrequency | CIF0ReferenceLevel |
	CIF0Gain | CIF0SampleRate | CIF0StateEvents

// ContextPayload is the decoded body of an IF Context packet. All fields
// are emitted on every context packet; FieldChange distinguishes a real
// parameter change from a heartbeat re-emission.
type ContextPayload struct {
	// FieldChange is the CIF0 change indicator.
	FieldChange bool
	// BandwidthHz is the occupied bandwidth.
	BandwidthHz float64
	// RFFrequencyHz is the RF reference (center) frequency.
	RFFrequencyHz float64
	// ReferenceLevelDBm is the full-scale reference level.
	ReferenceLevelDBm float64
	// GainDB is the stage-1 gain; stage 2 is always zero here.
	GainDB float64
	// SampleRateHz is the complex sample rate.
	SampleRateHz float64
	// StateEvents mirrors the trailer enable/indicator groups.
	StateEventEnables    uint16
	StateEventIndicators uint16
}

// contextPayloadWords is the fixed body size: CIF0 plus three 64-bit
// fields plus three 32-bit fields.
const contextPayloadWords = 1 + 2 + 2 + 1 + 1 + 2 + 1

// Encode serializes the context body: CIF0 word, then fields in
// descending indicator-bit order.
func (c *ContextPayload) Encode() []byte {
	buf := make([]byte, contextPayloadWords*wordBytes)

	cif0 := contextFieldBits
	if c.FieldChange {
		cif0 |= CIF0ChangeIndicator
	}
	binary.BigEndian.PutUint32(buf[0:], cif0)
	binary.BigEndian.PutUint64(buf[4:], uint64(EncodeHz(c.BandwidthHz)))
	binary.BigEndian.PutUint64(buf[12:], uint64(EncodeHz(c.RFFrequencyHz)))
	binary.BigEndian.PutUint32(buf[20:], uint32(uint16(EncodeDB(c.ReferenceLevelDBm))))
	binary.BigEndian.PutUint32(buf[24:], uint32(uint16(EncodeDB(c.GainDB))))
	binary.BigEndian.PutUint64(buf[28:], uint64(EncodeHz(c.SampleRateHz)))
	state := uint32(c.StateEventEnables&eventMask)<<20 | uint32(c.StateEventIndicators&eventMask)<<8
	binary.BigEndian.PutUint32(buf[36:], state)

	return buf
}

// DecodeContextPayload parses a context body produced by Encode. It is
// strict about the CIF0 field set: foreign context layouts cannot be
// skipped safely without a full field-size table.
func DecodeContextPayload(payload []byte) (*ContextPayload, error) {
	if len(payload) != contextPayloadWords*wordBytes {
		return nil, fmt.Errorf("context payload is %d bytes, want %d", len(payload), contextPayloadWords*wordBytes)
	}

	cif0 := binary.BigEndian.Uint32(payload[0:])
	if cif0&^CIF0ChangeIndicator != contextFieldBits {
		return nil, fmt.Errorf("unsupported context indicator field %#08x", cif0)
	}

	state := binary.BigEndian.Uint32(payload[36:])
	return &ContextPayload{
		FieldChange:          cif0&CIF0ChangeIndicator != 0,
		BandwidthHz:          DecodeHz(int64(binary.BigEndian.Uint64(payload[4:]))),
		RFFrequencyHz:        DecodeHz(int64(binary.BigEndian.Uint64(payload[12:]))),
		ReferenceLevelDBm:    DecodeDB(int16(binary.BigEndian.Uint32(payload[20:]) & 0xFFFF)),
		GainDB:               DecodeDB(int16(binary.BigEndian.Uint32(payload[24:]) & 0xFFFF)),
		SampleRateHz:         DecodeHz(int64(binary.BigEndian.Uint64(payload[28:]))),
		StateEventEnables:    uint16(state>>20) & eventMask,
		StateEventIndicators: uint16(state>>8) & eventMask,
	}, nil
}
