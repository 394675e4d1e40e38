package source

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/justapithecus/ingot/bridge"
	"github.com/justapithecus/ingot/types"
)

// writeWAVFile assembles a minimal RIFF/WAVE file for tests.
func writeWAVFile(t *testing.T, audioFormat, channels uint16, rate uint32, bits uint16, samples []byte) string {
	t.Helper()

	var fmtBody bytes.Buffer
	binary.Write(&fmtBody, binary.LittleEndian, audioFormat)
	binary.Write(&fmtBody, binary.LittleEndian, channels)
	binary.Write(&fmtBody, binary.LittleEndian, rate)
	byteRate := rate * uint32(channels) * uint32(bits) / 8
	binary.Write(&fmtBody, binary.LittleEndian, byteRate)
	blockAlign := channels * bits / 8
	binary.Write(&fmtBody, binary.LittleEndian, blockAlign)
	binary.Write(&fmtBody, binary.LittleEndian, bits)

	var body bytes.Buffer
	body.WriteString("WAVE")
	// A LIST chunk before fmt exercises the chunk walk.
	body.WriteString("LIST")
	binary.Write(&body, binary.LittleEndian, uint32(4))
	body.WriteString("INFO")
	body.WriteString("fmt ")
	binary.Write(&body, binary.LittleEndian, uint32(fmtBody.Len()))
	body.Write(fmtBody.Bytes())
	body.WriteString("data")
	binary.Write(&body, binary.LittleEndian, uint32(len(samples)))
	body.Write(samples)

	var file bytes.Buffer
	file.WriteString("RIFF")
	binary.Write(&file, binary.LittleEndian, uint32(body.Len()))
	file.Write(body.Bytes())

	path := filepath.Join(t.TempDir(), "test.wav")
	if err := os.WriteFile(path, file.Bytes(), 0o644); err != nil {
		t.Fatalf("write wav file: %v", err)
	}
	return path
}

func TestWAV_PCM16(t *testing.T) {
	// Two stereo frames, little-endian in the file.
	samples := make([]byte, 0, 8)
	for _, v := range []int16{258, -2, 1000, -1000} {
		samples = binary.LittleEndian.AppendUint16(samples, uint16(v))
	}
	path := writeWAVFile(t, wavFormatPCM, 2, 44100, 16, samples)

	w, err := NewWAV(WAVConfig{Path: path, Start: time.Unix(1700000000, 0)})
	if err != nil {
		t.Fatalf("NewWAV failed: %v", err)
	}
	defer w.Close()

	if w.Format() != types.FormatCI16 {
		t.Errorf("Format = %s, want ci16", w.Format())
	}
	if w.Params().SampleRateHz != 44100 {
		t.Errorf("sample rate = %v, want 44100 from the file", w.Params().SampleRateHz)
	}

	chunk, err := w.Pull(t.Context())
	if err != nil {
		t.Fatalf("Pull failed: %v", err)
	}
	if chunk.Pairs != 2 {
		t.Fatalf("Pairs = %d, want 2", chunk.Pairs)
	}
	if !chunk.WellFormed(types.FormatCI16) {
		t.Fatal("chunk is not well formed")
	}

	want := []int16{258, -2, 1000, -1000}
	for i, v := range want {
		got := int16(binary.BigEndian.Uint16(chunk.Data[i*2:]))
		if got != v {
			t.Errorf("sample %d = %d, want %d", i, got, v)
		}
	}

	if _, err := w.Pull(t.Context()); !errors.Is(err, bridge.ErrEndOfStream) {
		t.Errorf("error after data = %v, want ErrEndOfStream", err)
	}
}

func TestWAV_Float32(t *testing.T) {
	samples := make([]byte, 0, 16)
	values := []float32{0.5, -0.25, 1.0, -1.0}
	for _, v := range values {
		samples = binary.LittleEndian.AppendUint32(samples, math.Float32bits(v))
	}
	path := writeWAVFile(t, wavFormatFloat, 2, 48000, 32, samples)

	w, err := NewWAV(WAVConfig{Path: path})
	if err != nil {
		t.Fatalf("NewWAV failed: %v", err)
	}
	defer w.Close()

	if w.Format() != types.FormatCF32 {
		t.Errorf("Format = %s, want cf32", w.Format())
	}

	chunk, err := w.Pull(t.Context())
	if err != nil {
		t.Fatalf("Pull failed: %v", err)
	}
	if !chunk.WellFormed(types.FormatCF32) {
		t.Fatal("chunk is not well formed")
	}
	for i, v := range values {
		got := math.Float32frombits(binary.BigEndian.Uint32(chunk.Data[i*4:]))
		if got != v {
			t.Errorf("sample %d = %v, want %v", i, got, v)
		}
	}
}

func TestWAV_ChunkedReadsAdvanceClock(t *testing.T) {
	// Four stereo PCM16 frames at 1 kHz, pulled two at a time.
	samples := make([]byte, 16)
	path := writeWAVFile(t, wavFormatPCM, 2, 1000, 16, samples)

	start := time.Unix(1700000000, 0)
	w, err := NewWAV(WAVConfig{Path: path, ChunkPairs: 2, Start: start})
	if err != nil {
		t.Fatalf("NewWAV failed: %v", err)
	}
	defer w.Close()

	first, err := w.Pull(t.Context())
	if err != nil {
		t.Fatalf("Pull failed: %v", err)
	}
	second, err := w.Pull(t.Context())
	if err != nil {
		t.Fatalf("Pull failed: %v", err)
	}

	if !first.Time.Equal(start) {
		t.Errorf("first chunk time = %v, want %v", first.Time, start)
	}
	if want := start.Add(2 * time.Millisecond); !second.Time.Equal(want) {
		t.Errorf("second chunk time = %v, want %v", second.Time, want)
	}
}

func TestWAV_RejectsUnusableFiles(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
		cfg  func(path string) WAVConfig
	}{
		{
			"mono",
			func(t *testing.T) string {
				return writeWAVFile(t, wavFormatPCM, 1, 44100, 16, make([]byte, 4))
			},
			func(path string) WAVConfig { return WAVConfig{Path: path} },
		},
		{
			"24-bit pcm",
			func(t *testing.T) string {
				return writeWAVFile(t, wavFormatPCM, 2, 44100, 24, make([]byte, 12))
			},
			func(path string) WAVConfig { return WAVConfig{Path: path} },
		},
		{
			"rate conflict",
			func(t *testing.T) string {
				return writeWAVFile(t, wavFormatPCM, 2, 44100, 16, make([]byte, 8))
			},
			func(path string) WAVConfig {
				return WAVConfig{Path: path, Params: types.RadioParams{SampleRateHz: 48000}}
			},
		},
		{
			"not a wav",
			func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "noise.wav")
				if err := os.WriteFile(path, []byte("certainly not RIFF data"), 0o644); err != nil {
					t.Fatalf("write file: %v", err)
				}
				return path
			},
			func(path string) WAVConfig { return WAVConfig{Path: path} },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewWAV(tt.cfg(tt.path(t))); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}
