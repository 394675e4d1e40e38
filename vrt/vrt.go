// Package vrt implements the VITA-49.0 (VRT) packet layout used on the wire.
//
// Every packet is a sequence of big-endian 32-bit words:
//
//	word 0          header (type, indicators, TSI/TSF modes, count, size)
//	word 1          stream identifier (packet types 1, 3, 4, 5)
//	words +0..1     class identifier (when the C bit is set)
//	word  +0        integer-seconds timestamp (when TSI != none)
//	words +0..1     fractional-seconds timestamp (when TSF != none)
//	words ...       payload (sample data or context fields)
//	last word       trailer (data packets with the T bit set)
//
// Header bit layout, most significant bit first:
//
//	31..28  packet type
//	27      C: class identifier present
//	26      T: trailer present (data packets)
//	25      reserved
//	24      TSM (context packets)
//	23..22  TSI mode
//	21..20  TSF mode
//	19..16  packet count, modulo 16
//	15..0   packet size in words, including header and trailer
//
// The size field is authoritative: it must equal the true serialized word
// count, and readers use it to delimit packets in a byte stream.
package vrt

import "fmt"

// PacketType is the 4-bit packet type field.
type PacketType uint8

// Packet types defined by VITA-49.0. Extension types carry
// implementation-defined payloads; this codec emits only IF types.
const (
	TypeIFDataNoID    PacketType = 0x0
	TypeIFDataWithID  PacketType = 0x1
	TypeExtDataNoID   PacketType = 0x2
	TypeExtDataWithID PacketType = 0x3
	TypeIFContext     PacketType = 0x4
	TypeExtContext    PacketType = 0x5
)

// HasStreamID reports whether this packet type carries a stream
// identifier word.
func (t PacketType) HasStreamID() bool {
	switch t {
	case TypeIFDataWithID, TypeExtDataWithID, TypeIFContext, TypeExtContext:
		return true
	default:
		return false
	}
}

// IsData reports whether this packet type carries sample payload.
func (t PacketType) IsData() bool {
	return t <= TypeExtDataWithID
}

// IsContext reports whether this packet type carries context fields.
func (t PacketType) IsContext() bool {
	return t == TypeIFContext || t == TypeExtContext
}

func (t PacketType) String() string {
	switch t {
	case TypeIFDataNoID:
		return "if_data"
	case TypeIFDataWithID:
		return "if_data_id"
	case TypeExtDataNoID:
		return "ext_data"
	case TypeExtDataWithID:
		return "ext_data_id"
	case TypeIFContext:
		return "if_context"
	case TypeExtContext:
		return "ext_context"
	default:
		return fmt.Sprintf("reserved_%d", uint8(t))
	}
}

// TSIMode is the 2-bit integer-seconds timestamp mode.
type TSIMode uint8

const (
	TSINone  TSIMode = 0
	TSIUTC   TSIMode = 1
	TSIGPS   TSIMode = 2
	TSIOther TSIMode = 3
)

// ParseTSI parses a configuration string into a TSI mode.
func ParseTSI(s string) (TSIMode, error) {
	switch s {
	case "none":
		return TSINone, nil
	case "utc":
		return TSIUTC, nil
	case "gps":
		return TSIGPS, nil
	case "other":
		return TSIOther, nil
	default:
		return 0, fmt.Errorf("unknown tsi mode %q (want none, utc, gps, or other)", s)
	}
}

func (m TSIMode) String() string {
	return [...]string{"none", "utc", "gps", "other"}[m&0x3]
}

// TSFMode is the 2-bit fractional-seconds timestamp mode.
type TSFMode uint8

const (
	TSFNone TSFMode = 0
	// TSFSampleCount counts samples within the current integer second,
	// rolling over at the sample rate.
	TSFSampleCount TSFMode = 1
	// TSFRealTime counts picoseconds within the current integer second.
	TSFRealTime TSFMode = 2
	// TSFFreeRunning is a free-running 64-bit sample counter.
	TSFFreeRunning TSFMode = 3
)

// ParseTSF parses a configuration string into a TSF mode.
func ParseTSF(s string) (TSFMode, error) {
	switch s {
	case "none":
		return TSFNone, nil
	case "count":
		return TSFSampleCount, nil
	case "real":
		return TSFRealTime, nil
	case "free":
		return TSFFreeRunning, nil
	default:
		return 0, fmt.Errorf("unknown tsf mode %q (want none, count, real, or free)", s)
	}
}

func (m TSFMode) String() string {
	return [...]string{"none", "count", "real", "free"}[m&0x3]
}

// PicosecondsPerSecond is the rollover of the real-time TSF field.
const PicosecondsPerSecond = uint64(1_000_000_000_000)

// MaxPacketWords is the largest representable packet size.
const MaxPacketWords = 0xFFFF

// Header field masks and shifts.
const (
	typeShift   = 28
	classIDBit  = uint32(1) << 27
	trailerBit  = uint32(1) << 26
	tsmBit      = uint32(1) << 24
	tsiShift    = 22
	tsfShift    = 20
	countShift  = 16
	countMask   = uint32(0xF)
	sizeMask    = uint32(0xFFFF)
	modeMask    = uint32(0x3)
	typeMask    = uint32(0xF)
	ouiMask     = uint32(0xFFFFFF)
	wordBytes   = 4
	headerWords = 1
)
