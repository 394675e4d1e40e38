package reader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/justapithecus/ingot/capture"
	"github.com/justapithecus/ingot/types"
	"github.com/justapithecus/ingot/vrt"
)

func testParams() types.RadioParams {
	return types.RadioParams{
		CenterFrequencyHz: 100e6,
		SampleRateHz:      1e6,
		BandwidthHz:       800e3,
		GainDB:            20,
		ReferenceLevelDBm: -30,
	}
}

func contextPacket(count uint8, sec uint32, change bool) *vrt.Packet {
	body := vrt.ContextPayload{
		FieldChange:       change,
		BandwidthHz:       800e3,
		RFFrequencyHz:     100e6,
		ReferenceLevelDBm: -30,
		GainDB:            20,
		SampleRateHz:      1e6,
	}
	return &vrt.Packet{
		Type:     vrt.TypeIFContext,
		StreamID: 0x2A,
		TSM:      true,
		TSI:      vrt.TSIUTC,
		TSF:      vrt.TSFRealTime,
		Count:    count,
		Time:     vrt.Time{Integer: sec},
		Payload:  body.Encode(),
	}
}

func dataPacket(count uint8, sec uint32, frac uint64, payloadBytes int) *vrt.Packet {
	return &vrt.Packet{
		Type:     vrt.TypeIFDataWithID,
		StreamID: 0x2A,
		TSI:      vrt.TSIUTC,
		TSF:      vrt.TSFRealTime,
		Count:    count,
		Time:     vrt.Time{Integer: sec, Fractional: frac},
		Payload:  make([]byte, payloadBytes),
		Trailer: &vrt.Trailer{
			Enables:    vrt.EventCalibratedTime | vrt.EventValidData | vrt.EventSampleLoss,
			Indicators: vrt.EventCalibratedTime | vrt.EventValidData,
		},
	}
}

func writeVRTFile(t *testing.T, packets ...*vrt.Packet) string {
	t.Helper()
	var buf []byte
	for _, p := range packets {
		encoded, err := p.Encode()
		if err != nil {
			t.Fatalf("encode packet: %v", err)
		}
		buf = append(buf, encoded...)
	}
	path := filepath.Join(t.TempDir(), "stream.vrt")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func writeCaptureFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "take.iqc")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create fixture: %v", err)
	}
	defer f.Close()

	w := capture.NewWriter(f)
	header := &capture.HeaderFrame{
		StreamID:  42,
		SessionID: "sess-1",
		Format:    "ci16",
		CreatedAt: "2026-01-02T03:04:05Z",
		Params:    testParams(),
	}
	if err := w.WriteHeader(header); err != nil {
		t.Fatalf("write header: %v", err)
	}
	t0 := time.Unix(1700000000, 0).UTC()
	if err := w.WriteChunk(t0, 4, make([]byte, 16)); err != nil {
		t.Fatalf("write chunk: %v", err)
	}
	retuned := testParams()
	retuned.CenterFrequencyHz = 101e6
	if err := w.WriteParams(retuned, t0.Add(10*time.Millisecond)); err != nil {
		t.Fatalf("write params: %v", err)
	}
	if err := w.WriteChunk(t0.Add(20*time.Millisecond), 2, make([]byte, 8)); err != nil {
		t.Fatalf("write chunk: %v", err)
	}
	return path
}

func TestDetect(t *testing.T) {
	tests := []struct {
		path    string
		want    Kind
		wantErr bool
	}{
		{"out/stream.vrt", KindVRT, false},
		{"take.iqc", KindCapture, false},
		{"TAKE.IQC", KindCapture, false},
		{"samples.bin", "", true},
		{"noext", "", true},
	}
	for _, tt := range tests {
		got, err := Detect(tt.path)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Detect(%q) expected error", tt.path)
			}
			continue
		}
		if err != nil {
			t.Errorf("Detect(%q) failed: %v", tt.path, err)
		} else if got != tt.want {
			t.Errorf("Detect(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestReadPackets(t *testing.T) {
	path := writeVRTFile(t,
		contextPacket(0, 1700000000, true),
		dataPacket(0, 1700000000, 0, 16),
		dataPacket(1, 1700000000, 500_000_000_000, 16),
	)

	records, err := ReadPackets(path, 0)
	if err != nil {
		t.Fatalf("ReadPackets failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}

	ctx := records[0]
	if ctx.Type != "if_context" || ctx.StreamID != 0x2A || ctx.Count != 0 {
		t.Errorf("context record = %+v", ctx)
	}
	if ctx.PayloadBytes != 40 {
		t.Errorf("context payload bytes = %d, want 40", ctx.PayloadBytes)
	}
	if !strings.Contains(ctx.Detail, "change") || !strings.Contains(ctx.Detail, "cf=100MHz") {
		t.Errorf("context detail = %q", ctx.Detail)
	}
	if !strings.Contains(ctx.Detail, "bw=800kHz") || !strings.Contains(ctx.Detail, "ref=-30.0dBm") {
		t.Errorf("context detail = %q", ctx.Detail)
	}

	d0 := records[1]
	if d0.Type != "if_data_id" || d0.Count != 0 || d0.PayloadBytes != 16 {
		t.Errorf("data record = %+v", d0)
	}
	if d0.SizeWords != 10 {
		t.Errorf("data size words = %d, want 10", d0.SizeWords)
	}
	if d0.Timestamp != "1700000000.000000000000s" {
		t.Errorf("data timestamp = %q", d0.Timestamp)
	}
	if d0.Detail != "trailer calibrated,valid" {
		t.Errorf("data detail = %q", d0.Detail)
	}

	d1 := records[2]
	if d1.Index != 2 || d1.Count != 1 {
		t.Errorf("second data record = %+v", d1)
	}
	if d1.Timestamp != "1700000000.500000000000s" {
		t.Errorf("second data timestamp = %q", d1.Timestamp)
	}
}

func TestReadPackets_Limit(t *testing.T) {
	path := writeVRTFile(t,
		contextPacket(0, 1700000000, true),
		dataPacket(0, 1700000000, 0, 16),
		dataPacket(1, 1700000000, 1, 16),
	)
	records, err := ReadPackets(path, 2)
	if err != nil {
		t.Fatalf("ReadPackets failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("got %d records, want 2", len(records))
	}
}

func TestReadPackets_Truncated(t *testing.T) {
	path := writeVRTFile(t,
		dataPacket(0, 1700000000, 0, 16),
		dataPacket(1, 1700000000, 1, 16),
	)
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	if err := os.WriteFile(path, raw[:len(raw)-3], 0o644); err != nil {
		t.Fatalf("truncate fixture: %v", err)
	}

	_, err = ReadPackets(path, 0)
	if err == nil {
		t.Fatal("expected error for truncated stream")
	}
	if !strings.Contains(err.Error(), "packet 1") {
		t.Errorf("error %q does not name the packet index", err)
	}
}

func TestReadPackets_MissingFile(t *testing.T) {
	if _, err := ReadPackets(filepath.Join(t.TempDir(), "absent.vrt"), 0); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestReadFrames(t *testing.T) {
	path := writeCaptureFile(t)

	records, err := ReadFrames(path, 0)
	if err != nil {
		t.Fatalf("ReadFrames failed: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("got %d records, want 4", len(records))
	}

	header := records[0]
	if header.Type != capture.HeaderFrameType || header.Time != "2026-01-02T03:04:05Z" {
		t.Errorf("header record = %+v", header)
	}
	for _, want := range []string{"stream=42", "session=sess-1", "format=ci16", "cf=100MHz"} {
		if !strings.Contains(header.Detail, want) {
			t.Errorf("header detail %q missing %q", header.Detail, want)
		}
	}

	chunk := records[1]
	if chunk.Type != capture.ChunkFrameType || chunk.Pairs != 4 || chunk.Bytes != 16 {
		t.Errorf("chunk record = %+v", chunk)
	}
	wantTime := time.Unix(1700000000, 0).UTC().Format(time.RFC3339Nano)
	if chunk.Time != wantTime {
		t.Errorf("chunk time = %q, want %q", chunk.Time, wantTime)
	}

	params := records[2]
	if params.Type != capture.ParamsFrameType || !strings.Contains(params.Detail, "cf=101MHz") {
		t.Errorf("params record = %+v", params)
	}

	if records[3].Pairs != 2 || records[3].Bytes != 8 {
		t.Errorf("second chunk record = %+v", records[3])
	}
}

func TestReadFrames_Limit(t *testing.T) {
	path := writeCaptureFile(t)
	records, err := ReadFrames(path, 2)
	if err != nil {
		t.Fatalf("ReadFrames failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Type != capture.HeaderFrameType || records[1].Type != capture.ChunkFrameType {
		t.Errorf("limited records = %+v", records)
	}
}

func TestReadFrames_NotAContainer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.iqc")
	if err := os.WriteFile(path, []byte{0x00, 0x01}, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := ReadFrames(path, 0); err == nil {
		t.Error("expected error for non-container file")
	}
}
