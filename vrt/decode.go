package vrt

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Decode sentinels. ErrTruncated means the buffer or stream ended inside
// a packet; readers treat it as fatal for the remainder of the stream.
var (
	ErrTruncated = errors.New("truncated packet")
	ErrBadSize   = errors.New("header size field smaller than prologue")
)

// Parse decodes exactly one packet from buf. The header size field
// determines how many bytes belong to the packet; buf may be longer, and
// the second return value is the number of bytes consumed.
func Parse(buf []byte) (*Packet, int, error) {
	if len(buf) < wordBytes {
		return nil, 0, fmt.Errorf("%w: %d bytes", ErrTruncated, len(buf))
	}

	h := binary.BigEndian.Uint32(buf)
	p := &Packet{
		Type:  PacketType(h >> typeShift & typeMask),
		TSM:   h&tsmBit != 0,
		TSI:   TSIMode(h >> tsiShift & modeMask),
		TSF:   TSFMode(h >> tsfShift & modeMask),
		Count: uint8(h >> countShift & countMask),
	}

	sizeWords := int(h & sizeMask)
	sizeBytes := sizeWords * wordBytes
	if len(buf) < sizeBytes {
		return nil, 0, fmt.Errorf("%w: size field %d words, have %d bytes", ErrTruncated, sizeWords, len(buf))
	}

	off := wordBytes
	prologue := headerWords
	if p.Type.HasStreamID() {
		prologue++
	}
	if h&classIDBit != 0 {
		prologue += 2
	}
	if p.TSI != TSINone {
		prologue++
	}
	if p.TSF != TSFNone {
		prologue += 2
	}
	trailerWords := 0
	if h&trailerBit != 0 {
		trailerWords = 1
	}
	if sizeWords < prologue+trailerWords {
		return nil, 0, fmt.Errorf("%w: size %d, prologue %d, trailer %d", ErrBadSize, sizeWords, prologue, trailerWords)
	}

	if p.Type.HasStreamID() {
		p.StreamID = binary.BigEndian.Uint32(buf[off:])
		off += wordBytes
	}
	if h&classIDBit != 0 {
		w0 := binary.BigEndian.Uint32(buf[off:])
		w1 := binary.BigEndian.Uint32(buf[off+wordBytes:])
		p.ClassID = &ClassID{
			OUI:         w0 & ouiMask,
			InfoClass:   uint16(w1 >> 16),
			PacketClass: uint16(w1),
		}
		off += 2 * wordBytes
	}
	if p.TSI != TSINone {
		p.Time.Integer = binary.BigEndian.Uint32(buf[off:])
		off += wordBytes
	}
	if p.TSF != TSFNone {
		p.Time.Fractional = binary.BigEndian.Uint64(buf[off:])
		off += 2 * wordBytes
	}

	payloadBytes := (sizeWords - prologue - trailerWords) * wordBytes
	p.Payload = buf[off : off+payloadBytes : off+payloadBytes]
	off += payloadBytes

	if trailerWords == 1 {
		t := ParseTrailer(binary.BigEndian.Uint32(buf[off:]))
		p.Trailer = &t
		off += wordBytes
	}

	return p, off, nil
}

// PacketReader decodes consecutive packets from a byte stream, using
// each header's size field to delimit them.
type PacketReader struct {
	reader io.Reader
}

// NewPacketReader creates a reader over a serialized packet stream.
func NewPacketReader(r io.Reader) *PacketReader {
	return &PacketReader{reader: r}
}

// ReadPacket reads and decodes the next packet.
//
// Errors:
//   - io.EOF: stream ended cleanly on a packet boundary
//   - ErrTruncated (wrapped): stream ended mid-packet
func (r *PacketReader) ReadPacket() (*Packet, error) {
	var head [wordBytes]byte
	if _, err := io.ReadFull(r.reader, head[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: reading header: %v", ErrTruncated, err)
	}

	sizeWords := int(binary.BigEndian.Uint32(head[:]) & sizeMask)
	if sizeWords < headerWords {
		return nil, fmt.Errorf("%w: size %d", ErrBadSize, sizeWords)
	}

	buf := make([]byte, sizeWords*wordBytes)
	copy(buf, head[:])
	if _, err := io.ReadFull(r.reader, buf[wordBytes:]); err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrTruncated, err)
	}

	p, _, err := Parse(buf)
	return p, err
}
