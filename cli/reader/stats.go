package reader

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/justapithecus/ingot/capture"
	"github.com/justapithecus/ingot/vrt"
)

// VRTStats aggregates a whole VRT packet stream file.
type VRTStats struct {
	Path            string  `json:"path"`
	Packets         int     `json:"packets"`
	DataPackets     int     `json:"data_packets"`
	ContextPackets  int     `json:"context_packets"`
	PayloadBytes    int64   `json:"payload_bytes"`
	SequenceGaps    int     `json:"sequence_gaps"`
	FirstTimestamp  string  `json:"first_timestamp,omitempty"`
	LastTimestamp   string  `json:"last_timestamp,omitempty"`
	SpanSeconds     float64 `json:"span_seconds"`
	PayloadByteRate float64 `json:"payload_bytes_per_second"`
}

// streamKey separates sequence tracking the way counts are assigned on
// the wire: data and context packets advance independent mod-16
// counters per stream identifier.
type streamKey struct {
	context  bool
	streamID uint32
}

// StatsVRT scans a VRT stream file end to end.
func StatsVRT(path string) (*VRTStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reader: %w", err)
	}
	defer f.Close()

	r := vrt.NewPacketReader(bufio.NewReader(f))
	stats := &VRTStats{Path: path}
	lastCount := make(map[streamKey]uint8)
	var first, last *vrt.Packet
	for {
		p, err := r.ReadPacket()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reader: packet %d: %w", stats.Packets, err)
		}

		if p.Type.IsContext() {
			stats.ContextPackets++
		} else {
			stats.DataPackets++
		}
		stats.PayloadBytes += int64(len(p.Payload))

		key := streamKey{context: p.Type.IsContext(), streamID: p.StreamID}
		if prev, seen := lastCount[key]; seen && p.Count != (prev+1)&0xF {
			stats.SequenceGaps++
		}
		lastCount[key] = p.Count

		if first == nil {
			first = p
		}
		last = p
		stats.Packets++
	}

	if first != nil {
		stats.FirstTimestamp = timestampString(first.Time, first.TSI, first.TSF)
		stats.LastTimestamp = timestampString(last.Time, last.TSI, last.TSF)
		stats.SpanSeconds = timeSeconds(last.Time, last.TSF) - timeSeconds(first.Time, first.TSF)
		if stats.SpanSeconds > 0 {
			stats.PayloadByteRate = float64(stats.PayloadBytes) / stats.SpanSeconds
		}
	}
	return stats, nil
}

// timeSeconds flattens a timestamp to seconds. Only the real-time TSF
// mode has a known fractional unit; other modes contribute integer
// seconds only.
func timeSeconds(t vrt.Time, tsf vrt.TSFMode) float64 {
	s := float64(t.Integer)
	if tsf == vrt.TSFRealTime {
		s += float64(t.Fractional) / float64(vrt.PicosecondsPerSecond)
	}
	return s
}

// CaptureStats aggregates an .iqc capture container.
type CaptureStats struct {
	Path          string  `json:"path"`
	StreamID      uint32  `json:"stream_id"`
	Session       string  `json:"session,omitempty"`
	Format        string  `json:"format"`
	CreatedAt     string  `json:"created_at"`
	Chunks        int     `json:"chunks"`
	ParamsChanges int     `json:"params_changes"`
	InvalidFrames int     `json:"invalid_frames"`
	Pairs         int64   `json:"pairs"`
	SampleBytes   int64   `json:"sample_bytes"`
	SpanSeconds   float64 `json:"span_seconds"`
}

// StatsCapture scans a capture container end to end.
func StatsCapture(path string) (*CaptureStats, error) {
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

	stats := &CaptureStats{
		Path:      path,
		StreamID:  header.StreamID,
		Session:   header.SessionID,
		Format:    header.Format,
		CreatedAt: header.CreatedAt,
	}
	var firstNs, lastNs int64
	haveTime := false
	for frameIndex := 1; ; frameIndex++ {
		frame, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if capture.IsFatalFrameError(err) {
				return nil, fmt.Errorf("reader: frame %d: %w", frameIndex, err)
			}
			stats.InvalidFrames++
			continue
		}
		switch fr := frame.(type) {
		case *capture.ChunkFrame:
			stats.Chunks++
			stats.Pairs += int64(fr.Pairs)
			stats.SampleBytes += int64(len(fr.Data))
			if !haveTime {
				firstNs = fr.TimeNs
				haveTime = true
			}
			lastNs = fr.TimeNs
		case *capture.ParamsFrame:
			stats.ParamsChanges++
		}
	}

	if haveTime && lastNs > firstNs {
		stats.SpanSeconds = time.Duration(lastNs - firstNs).Seconds()
	}
	return stats, nil
}
