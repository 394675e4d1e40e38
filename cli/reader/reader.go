// Package reader loads stream artifacts from disk for the inspect and
// stats commands: serialized VRT packet streams and capture containers.
package reader

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/justapithecus/ingot/capture"
	"github.com/justapithecus/ingot/types"
	"github.com/justapithecus/ingot/vrt"
)

// Kind identifies an artifact layout on disk.
type Kind string

const (
	// KindVRT is a stream of serialized VRT packets, as written by the
	// file sink.
	KindVRT Kind = "vrt"
	// KindCapture is an .iqc capture container.
	KindCapture Kind = "capture"
)

// Detect infers the artifact kind from the file extension.
func Detect(path string) (Kind, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".vrt":
		return KindVRT, nil
	case ".iqc":
		return KindCapture, nil
	default:
		return "", fmt.Errorf("cannot tell artifact kind of %q (want a .vrt or .iqc file)", filepath.Base(path))
	}
}

// PacketRecord summarizes one decoded VRT packet.
type PacketRecord struct {
	Index        int    `json:"index"`
	Type         string `json:"type"`
	StreamID     uint32 `json:"stream_id"`
	Count        uint8  `json:"count"`
	SizeWords    int    `json:"size_words"`
	PayloadBytes int    `json:"payload_bytes"`
	Timestamp    string `json:"timestamp,omitempty"`
	Detail       string `json:"detail,omitempty"`
}

// ReadPackets decodes up to limit packets from a VRT stream file. A
// limit of zero or less reads the whole file.
func ReadPackets(path string, limit int) ([]PacketRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reader: %w", err)
	}
	defer f.Close()

	r := vrt.NewPacketReader(bufio.NewReader(f))
	var records []PacketRecord
	for limit <= 0 || len(records) < limit {
		p, err := r.ReadPacket()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reader: packet %d: %w", len(records), err)
		}
		records = append(records, packetRecord(len(records), p))
	}
	return records, nil
}

func packetRecord(index int, p *vrt.Packet) PacketRecord {
	return PacketRecord{
		Index:        index,
		Type:         p.Type.String(),
		StreamID:     p.StreamID,
		Count:        p.Count,
		SizeWords:    p.SizeWords(),
		PayloadBytes: len(p.Payload),
		Timestamp:    timestampString(p.Time, p.TSI, p.TSF),
		Detail:       packetDetail(p),
	}
}

// timestampString renders a VRT timestamp per the packet's TSI/TSF
// modes. Only the real-time mode has a known fractional unit
// (picoseconds); count and free-running fractionals are shown raw.
func timestampString(t vrt.Time, tsi vrt.TSIMode, tsf vrt.TSFMode) string {
	switch {
	case tsi == vrt.TSINone && tsf == vrt.TSFNone:
		return ""
	case tsf == vrt.TSFRealTime:
		return fmt.Sprintf("%d.%012ds", t.Integer, t.Fractional)
	case tsf == vrt.TSFNone:
		return fmt.Sprintf("%ds", t.Integer)
	default:
		return fmt.Sprintf("%ds+%d", t.Integer, t.Fractional)
	}
}

func packetDetail(p *vrt.Packet) string {
	if p.Type.IsContext() {
		ctx, err := vrt.DecodeContextPayload(p.Payload)
		if err != nil {
			return fmt.Sprintf("undecodable context: %v", err)
		}
		kind := "heartbeat"
		if ctx.FieldChange {
			kind = "change"
		}
		return kind + " " + contextDetail(ctx)
	}
	if p.Trailer != nil {
		return trailerDetail(p.Trailer)
	}
	return ""
}

func contextDetail(ctx *vrt.ContextPayload) string {
	return fmt.Sprintf("cf=%s sr=%s bw=%s gain=%.1fdB ref=%.1fdBm",
		hzString(ctx.RFFrequencyHz), hzString(ctx.SampleRateHz),
		hzString(ctx.BandwidthHz), ctx.GainDB, ctx.ReferenceLevelDBm)
}

func paramsDetail(p types.RadioParams) string {
	return fmt.Sprintf("cf=%s sr=%s bw=%s gain=%.1fdB ref=%.1fdBm",
		hzString(p.CenterFrequencyHz), hzString(p.SampleRateHz),
		hzString(p.BandwidthHz), p.GainDB, p.ReferenceLevelDBm)
}

func trailerDetail(t *vrt.Trailer) string {
	var events []string
	for _, e := range []struct {
		bit  uint16
		name string
	}{
		{vrt.EventCalibratedTime, "calibrated"},
		{vrt.EventValidData, "valid"},
		{vrt.EventReferenceLock, "ref_lock"},
		{vrt.EventOverRange, "over_range"},
		{vrt.EventSampleLoss, "sample_loss"},
	} {
		if t.Asserted(e.bit) {
			events = append(events, e.name)
		}
	}
	if len(events) == 0 {
		return "trailer"
	}
	return "trailer " + strings.Join(events, ",")
}

// hzString renders a frequency with an SI suffix.
func hzString(hz float64) string {
	switch {
	case hz >= 1e9:
		return fmt.Sprintf("%.6gGHz", hz/1e9)
	case hz >= 1e6:
		return fmt.Sprintf("%.6gMHz", hz/1e6)
	case hz >= 1e3:
		return fmt.Sprintf("%.6gkHz", hz/1e3)
	default:
		return fmt.Sprintf("%gHz", hz)
	}
}

// FrameRecord summarizes one capture container frame. The header frame
// is always record zero.
type FrameRecord struct {
	Index  int    `json:"index"`
	Type   string `json:"type"`
	Time   string `json:"time,omitempty"`
	Pairs  int    `json:"pairs,omitempty"`
	Bytes  int    `json:"bytes,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// ReadFrames decodes up to limit frames from a capture container. A
// limit of zero or less reads the whole file. Frames that fail to
// decode become records rather than errors; only a truncated container
// stops the read.
func ReadFrames(path string, limit int) ([]FrameRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reader: %w", err)
	}
	defer f.Close()

	r := capture.NewReader(bufio.NewReader(f))
	header, err := r.Header()
	if err != nil {
		return nil, fmt.Errorf("reader: %w", err)
	}

	records := []FrameRecord{{
		Type:   header.Type,
		Time:   header.CreatedAt,
		Detail: headerDetail(header),
	}}
	for limit <= 0 || len(records) < limit {
		frame, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if capture.IsFatalFrameError(err) {
				return nil, fmt.Errorf("reader: frame %d: %w", len(records), err)
			}
			records = append(records, FrameRecord{Index: len(records), Type: "invalid", Detail: err.Error()})
			continue
		}
		switch fr := frame.(type) {
		case *capture.ChunkFrame:
			records = append(records, FrameRecord{
				Index: len(records),
				Type:  fr.Type,
				Time:  time.Unix(0, fr.TimeNs).UTC().Format(time.RFC3339Nano),
				Pairs: fr.Pairs,
				Bytes: len(fr.Data),
			})
		case *capture.ParamsFrame:
			records = append(records, FrameRecord{
				Index:  len(records),
				Type:   fr.Type,
				Time:   time.Unix(0, fr.EffectiveNs).UTC().Format(time.RFC3339Nano),
				Detail: paramsDetail(fr.Params),
			})
		}
	}
	return records, nil
}

func headerDetail(h *capture.HeaderFrame) string {
	parts := []string{fmt.Sprintf("stream=%d", h.StreamID)}
	if h.SessionID != "" {
		parts = append(parts, "session="+h.SessionID)
	}
	parts = append(parts, "format="+h.Format, paramsDetail(h.Params))
	return strings.Join(parts, " ")
}
