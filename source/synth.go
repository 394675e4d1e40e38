package source

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/justapithecus/ingot/bridge"
	"github.com/justapithecus/ingot/types"
)

// Synth defaults.
const (
	DefaultSynthChunkPairs = 4096
	DefaultSynthAmplitude  = 0.5
)

// SynthConfig configures the tone generator.
type SynthConfig struct {
	// Params is the radio parameter snapshot attached to every chunk.
	// SampleRateHz must be positive.
	Params types.RadioParams
	// ToneHz is the tone offset from the center frequency. Zero
	// produces DC.
	ToneHz float64
	// Amplitude scales full scale, in (0, 1]. Zero applies the default.
	Amplitude float64
	// ChunkPairs is the pull size. Zero applies the default.
	ChunkPairs int
	// TotalPairs bounds the stream; zero streams forever.
	TotalPairs int64
	// Start anchors the synthesized acquisition clock. Zero uses the
	// wall clock at construction.
	Start time.Time
}

// Synth produces a deterministic complex tone in ci16. The phase is
// continuous across chunks, so downstream packet boundaries never
// affect the generated signal.
type Synth struct {
	params     types.RadioParams
	toneHz     float64
	amplitude  float64
	chunkPairs int
	totalPairs int64
	start      time.Time

	produced int64
}

var _ bridge.SampleSource = (*Synth)(nil)

// NewSynth validates cfg and returns a tone source.
func NewSynth(cfg SynthConfig) (*Synth, error) {
	if cfg.Params.SampleRateHz <= 0 {
		return nil, fmt.Errorf("synth: sample rate %v must be positive", cfg.Params.SampleRateHz)
	}
	amplitude := cfg.Amplitude
	if amplitude == 0 {
		amplitude = DefaultSynthAmplitude
	}
	if amplitude < 0 || amplitude > 1 {
		return nil, fmt.Errorf("synth: amplitude %v outside (0, 1]", amplitude)
	}
	chunkPairs := cfg.ChunkPairs
	if chunkPairs == 0 {
		chunkPairs = DefaultSynthChunkPairs
	}
	if chunkPairs < 1 {
		return nil, fmt.Errorf("synth: chunk pairs %d must be positive", chunkPairs)
	}
	if cfg.TotalPairs < 0 {
		return nil, fmt.Errorf("synth: total pairs %d must not be negative", cfg.TotalPairs)
	}
	start := cfg.Start
	if start.IsZero() {
		start = time.Now()
	}
	return &Synth{
		params:     cfg.Params,
		toneHz:     cfg.ToneHz,
		amplitude:  amplitude,
		chunkPairs: chunkPairs,
		totalPairs: cfg.TotalPairs,
		start:      start,
	}, nil
}

// Pull produces the next chunk of the tone.
func (s *Synth) Pull(ctx context.Context) (types.SampleChunk, error) {
	if err := ctx.Err(); err != nil {
		return types.SampleChunk{}, err
	}
	pairs := s.chunkPairs
	if s.totalPairs > 0 {
		remaining := s.totalPairs - s.produced
		if remaining <= 0 {
			return types.SampleChunk{}, bridge.ErrEndOfStream
		}
		if int64(pairs) > remaining {
			pairs = int(remaining)
		}
	}

	scale := s.amplitude * 32767
	step := 2 * math.Pi * s.toneHz / s.params.SampleRateHz
	data := make([]byte, pairs*4)
	for i := range pairs {
		phase := step * float64(s.produced+int64(i))
		re := int16(scale * math.Cos(phase))
		im := int16(scale * math.Sin(phase))
		binary.BigEndian.PutUint16(data[i*4:], uint16(re))
		binary.BigEndian.PutUint16(data[i*4+2:], uint16(im))
	}

	chunk := types.SampleChunk{
		Data:   data,
		Pairs:  pairs,
		Time:   timeAt(s.start, s.produced, s.params.SampleRateHz),
		Params: s.params,
	}
	s.produced += int64(pairs)
	return chunk, nil
}

// Close is a no-op; the synth holds no resources.
func (s *Synth) Close() error {
	return nil
}

// Produced returns the number of pairs generated so far.
func (s *Synth) Produced() int64 {
	return s.produced
}
