package source

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/justapithecus/ingot/bridge"
	"github.com/justapithecus/ingot/types"
)

// DefaultWAVChunkPairs is the pull size when the config leaves it zero.
const DefaultWAVChunkPairs = 4096

// WAV audio format tags.
const (
	wavFormatPCM   = 1
	wavFormatFloat = 3
)

// WAVConfig configures a RIFF/WAVE file source.
type WAVConfig struct {
	Path string
	// Params supplies the radio parameter snapshot. The file's sample
	// rate is authoritative: leave SampleRateHz zero to adopt it, or
	// set it to the same value; a mismatch is a configuration error.
	Params types.RadioParams
	// ChunkPairs is the pull size. Zero applies the default.
	ChunkPairs int
	// Start anchors the synthesized acquisition clock. Zero uses the
	// wall clock at construction.
	Start time.Time
}

// WAV reads two-channel RIFF/WAVE files as I/Q: channel 0 is I,
// channel 1 is Q. PCM16 maps to ci16 and IEEE float32 to cf32; samples
// are byte-swapped from the file's little-endian layout into wire
// order. The acquisition clock is synthesized from the running pair
// count at the file's sample rate.
type WAV struct {
	f          *os.File
	format     types.SampleFormat
	params     types.RadioParams
	chunkPairs int
	start      time.Time

	sampleBytes int
	remaining   int64
	produced    int64
}

var _ bridge.SampleSource = (*WAV)(nil)

// NewWAV opens and validates the file, leaving the reader positioned at
// the first sample.
func NewWAV(cfg WAVConfig) (*WAV, error) {
	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("wav: %w", err)
	}
	w, err := newWAV(f, cfg)
	if err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

func newWAV(f *os.File, cfg WAVConfig) (*WAV, error) {
	var riff [12]byte
	if _, err := io.ReadFull(f, riff[:]); err != nil {
		return nil, fmt.Errorf("wav: read RIFF header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, fmt.Errorf("wav: %s is not a RIFF/WAVE file", cfg.Path)
	}

	var (
		haveFmt     bool
		audioFormat uint16
		channels    uint16
		fileRate    uint32
		bits        uint16
		dataOffset  int64
		dataLen     int64
		haveData    bool
	)

	offset := int64(12)
	for !haveData || !haveFmt {
		var chunkHeader [8]byte
		if _, err := f.ReadAt(chunkHeader[:], offset); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return nil, fmt.Errorf("wav: read chunk header: %w", err)
		}
		id := string(chunkHeader[0:4])
		size := int64(binary.LittleEndian.Uint32(chunkHeader[4:8]))

		switch id {
		case "fmt ":
			var body [16]byte
			if _, err := f.ReadAt(body[:], offset+8); err != nil {
				return nil, fmt.Errorf("wav: read fmt chunk: %w", err)
			}
			audioFormat = binary.LittleEndian.Uint16(body[0:2])
			channels = binary.LittleEndian.Uint16(body[2:4])
			fileRate = binary.LittleEndian.Uint32(body[4:8])
			bits = binary.LittleEndian.Uint16(body[14:16])
			haveFmt = true
		case "data":
			dataOffset = offset + 8
			dataLen = size
			haveData = true
		}

		// Chunks are word aligned; odd sizes carry a pad byte.
		offset += 8 + size + size%2
	}

	if !haveFmt || !haveData {
		return nil, fmt.Errorf("wav: %s is missing fmt or data chunk", cfg.Path)
	}
	if channels != 2 {
		return nil, fmt.Errorf("wav: %d channels, need stereo I/Q", channels)
	}

	var format types.SampleFormat
	var sampleBytes int
	switch {
	case audioFormat == wavFormatPCM && bits == 16:
		format = types.FormatCI16
		sampleBytes = 2
	case audioFormat == wavFormatFloat && bits == 32:
		format = types.FormatCF32
		sampleBytes = 4
	default:
		return nil, fmt.Errorf("wav: unsupported encoding (format tag %d, %d bits)", audioFormat, bits)
	}

	if fileRate == 0 {
		return nil, fmt.Errorf("wav: sample rate missing from fmt chunk")
	}
	params := cfg.Params
	if params.SampleRateHz == 0 {
		params.SampleRateHz = float64(fileRate)
	} else if params.SampleRateHz != float64(fileRate) {
		return nil, fmt.Errorf("wav: configured sample rate %v conflicts with file rate %d",
			params.SampleRateHz, fileRate)
	}

	chunkPairs := cfg.ChunkPairs
	if chunkPairs == 0 {
		chunkPairs = DefaultWAVChunkPairs
	}
	if chunkPairs < 1 {
		return nil, fmt.Errorf("wav: chunk pairs %d must be positive", chunkPairs)
	}

	start := cfg.Start
	if start.IsZero() {
		start = time.Now()
	}

	if _, err := f.Seek(dataOffset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("wav: seek to data: %w", err)
	}

	frameBytes := int64(sampleBytes) * 2
	return &WAV{
		f:           f,
		format:      format,
		params:      params,
		chunkPairs:  chunkPairs,
		start:       start,
		sampleBytes: sampleBytes,
		remaining:   dataLen / frameBytes,
	}, nil
}

// Format reports the sample format the file decodes to.
func (w *WAV) Format() types.SampleFormat {
	return w.format
}

// Params reports the effective radio parameters, with the sample rate
// taken from the file.
func (w *WAV) Params() types.RadioParams {
	return w.params
}

// Pull reads the next run of pairs from the data section.
func (w *WAV) Pull(ctx context.Context) (types.SampleChunk, error) {
	if err := ctx.Err(); err != nil {
		return types.SampleChunk{}, err
	}
	if w.remaining <= 0 {
		return types.SampleChunk{}, bridge.ErrEndOfStream
	}

	pairs := w.chunkPairs
	if int64(pairs) > w.remaining {
		pairs = int(w.remaining)
	}
	raw := make([]byte, pairs*w.sampleBytes*2)
	if _, err := io.ReadFull(w.f, raw); err != nil {
		return types.SampleChunk{}, fmt.Errorf("wav: read samples: %w", err)
	}
	swapToWireOrder(raw, w.sampleBytes)

	chunk := types.SampleChunk{
		Data:   raw,
		Pairs:  pairs,
		Time:   timeAt(w.start, w.produced, w.params.SampleRateHz),
		Params: w.params,
	}
	w.remaining -= int64(pairs)
	w.produced += int64(pairs)
	return chunk, nil
}

// Close releases the file handle.
func (w *WAV) Close() error {
	return w.f.Close()
}

// swapToWireOrder reverses each width-byte sample in place, converting
// the file's little-endian samples to big-endian wire order.
func swapToWireOrder(buf []byte, width int) {
	for i := 0; i < len(buf); i += width {
		for a, b := i, i+width-1; a < b; a, b = a+1, b-1 {
			buf[a], buf[b] = buf[b], buf[a]
		}
	}
}
