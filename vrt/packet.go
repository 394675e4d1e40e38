package vrt

import (
	"encoding/binary"
	"fmt"
)

// ClassID is the optional two-word class identifier.
type ClassID struct {
	// OUI is the organizationally unique identifier, 24 bits.
	OUI uint32
	// InfoClass identifies the information class.
	InfoClass uint16
	// PacketClass identifies the packet class within the information class.
	PacketClass uint16
}

// Time is a VRT timestamp: integer seconds plus a fractional field whose
// unit depends on the stream's TSF mode.
type Time struct {
	Integer    uint32
	Fractional uint64
}

// Less orders timestamps with the same TSI/TSF modes.
func (t Time) Less(other Time) bool {
	if t.Integer != other.Integer {
		return t.Integer < other.Integer
	}
	return t.Fractional < other.Fractional
}

// Packet is one VRT packet ready for serialization, or the result of
// decoding one. It is constructed per emission and not retained.
type Packet struct {
	Type     PacketType
	StreamID uint32
	// ClassID is encoded when non-nil; the C bit follows.
	ClassID *ClassID
	// TSM is the context timestamp-mode bit. Zero for data packets.
	TSM   bool
	TSI   TSIMode
	TSF   TSFMode
	Count uint8
	Time  Time
	// Payload is sample data or encoded context fields; its length must
	// be a whole number of words.
	Payload []byte
	// Trailer is encoded when non-nil; the T bit follows. Only data
	// packet types may carry one.
	Trailer *Trailer
}

// SizeWords returns the total serialized size in 32-bit words.
func (p *Packet) SizeWords() int {
	words := headerWords + len(p.Payload)/wordBytes
	if p.Type.HasStreamID() {
		words++
	}
	if p.ClassID != nil {
		words += 2
	}
	if p.TSI != TSINone {
		words++
	}
	if p.TSF != TSFNone {
		words += 2
	}
	if p.Trailer != nil {
		words++
	}
	return words
}

func (p *Packet) validate() error {
	if len(p.Payload)%wordBytes != 0 {
		return fmt.Errorf("payload length %d is not word aligned", len(p.Payload))
	}
	if p.Count > 0xF {
		return fmt.Errorf("packet count %d exceeds 4 bits", p.Count)
	}
	if p.Trailer != nil && !p.Type.IsData() {
		return fmt.Errorf("%s packets cannot carry a trailer", p.Type)
	}
	if words := p.SizeWords(); words > MaxPacketWords {
		return fmt.Errorf("packet size %d words exceeds maximum %d", words, MaxPacketWords)
	}
	return nil
}

func (p *Packet) headerWord() uint32 {
	h := uint32(p.Type&PacketType(typeMask)) << typeShift
	if p.ClassID != nil {
		h |= classIDBit
	}
	if p.Trailer != nil {
		h |= trailerBit
	}
	if p.TSM {
		h |= tsmBit
	}
	h |= (uint32(p.TSI) & modeMask) << tsiShift
	h |= (uint32(p.TSF) & modeMask) << tsfShift
	h |= (uint32(p.Count) & countMask) << countShift
	h |= uint32(p.SizeWords()) & sizeMask
	return h
}

// Encode serializes the packet to big-endian wire bytes.
func (p *Packet) Encode() ([]byte, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	buf := make([]byte, p.SizeWords()*wordBytes)
	off := 0
	put := func(w uint32) {
		binary.BigEndian.PutUint32(buf[off:], w)
		off += wordBytes
	}

	put(p.headerWord())
	if p.Type.HasStreamID() {
		put(p.StreamID)
	}
	if p.ClassID != nil {
		put(p.ClassID.OUI & ouiMask)
		put(uint32(p.ClassID.InfoClass)<<16 | uint32(p.ClassID.PacketClass))
	}
	if p.TSI != TSINone {
		put(p.Time.Integer)
	}
	if p.TSF != TSFNone {
		binary.BigEndian.PutUint64(buf[off:], p.Time.Fractional)
		off += 2 * wordBytes
	}
	copy(buf[off:], p.Payload)
	off += len(p.Payload)
	if p.Trailer != nil {
		put(p.Trailer.Word())
	}

	return buf, nil
}

// DataOverheadWords returns the per-packet word overhead of a data packet
// with the given prologue options. Configuration validation uses it to
// bound the maximum payload size.
func DataOverheadWords(hasClassID, hasTrailer bool, tsi TSIMode, tsf TSFMode) int {
	p := Packet{Type: TypeIFDataWithID, TSI: tsi, TSF: tsf}
	if hasClassID {
		p.ClassID = &ClassID{}
	}
	if hasTrailer {
		p.Trailer = &Trailer{}
	}
	return p.SizeWords()
}
