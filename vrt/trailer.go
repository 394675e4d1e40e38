package vrt

// Trailer event bits. The same bit positions apply within the enable
// group (bits 31..20 of the trailer word) and the indicator group (bits
// 19..8): an indicator is only meaningful when its enable bit is set.
const (
	EventCalibratedTime    = uint16(1) << 11
	EventValidData         = uint16(1) << 10
	EventReferenceLock     = uint16(1) << 9
	EventAGC               = uint16(1) << 8
	EventDetectedSignal    = uint16(1) << 7
	EventSpectralInversion = uint16(1) << 6
	EventOverRange         = uint16(1) << 5
	EventSampleLoss        = uint16(1) << 4
)

const eventMask = uint16(0xFFF)

// Trailer is the optional final word of a data packet.
type Trailer struct {
	// Enables marks which indicator bits are meaningful.
	Enables uint16
	// Indicators carries the event states for enabled bits.
	Indicators uint16
	// HasContextCount sets the E bit and emits ContextPacketCount.
	HasContextCount bool
	// ContextPacketCount is the 7-bit associated context packet count.
	ContextPacketCount uint8
}

// Word packs the trailer into its 32-bit wire word.
func (t *Trailer) Word() uint32 {
	w := uint32(t.Enables&eventMask) << 20
	w |= uint32(t.Indicators&eventMask) << 8
	if t.HasContextCount {
		w |= 1 << 7
		w |= uint32(t.ContextPacketCount & 0x7F)
	}
	return w
}

// ParseTrailer unpacks a trailer word.
func ParseTrailer(w uint32) Trailer {
	t := Trailer{
		Enables:    uint16(w>>20) & eventMask,
		Indicators: uint16(w>>8) & eventMask,
	}
	if w&(1<<7) != 0 {
		t.HasContextCount = true
		t.ContextPacketCount = uint8(w & 0x7F)
	}
	return t
}

// Asserted reports whether an event is both enabled and indicated.
func (t *Trailer) Asserted(event uint16) bool {
	return t.Enables&event != 0 && t.Indicators&event != 0
}
