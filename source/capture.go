package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/justapithecus/ingot/bridge"
	"github.com/justapithecus/ingot/capture"
	"github.com/justapithecus/ingot/types"
)

// CaptureConfig configures an .iqc replay source.
type CaptureConfig struct {
	Path string
	// Pace replays chunks at their recorded cadence instead of as fast
	// as the pipeline pulls.
	Pace bool
	// Clock overrides time.Now for pacing decisions.
	Clock func() time.Time
}

// Capture replays a recorded .iqc container. Parameter frames update
// the snapshot attached to subsequent chunks, so recorded retunes
// replay faithfully. Corrupt frames are skipped and counted; truncated
// or oversized frames end the stream with an error.
type Capture struct {
	f      *os.File
	reader *capture.Reader
	format types.SampleFormat
	params types.RadioParams
	pace   bool
	pacer  pacer

	skipped int
}

var _ bridge.SampleSource = (*Capture)(nil)

// NewCapture opens the container and validates its header.
func NewCapture(cfg CaptureConfig) (*Capture, error) {
	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}
	reader := capture.NewReader(f)
	header, err := reader.Header()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("capture: %s: %w", cfg.Path, err)
	}
	format, err := types.ParseSampleFormat(header.Format)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("capture: %s: %w", cfg.Path, err)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Capture{
		f:      f,
		reader: reader,
		format: format,
		params: header.Params,
		pace:   cfg.Pace,
		pacer:  pacer{clock: clock},
	}, nil
}

// Format reports the sample format recorded in the header.
func (c *Capture) Format() types.SampleFormat {
	return c.format
}

// Skipped returns the number of corrupt frames passed over.
func (c *Capture) Skipped() int {
	return c.skipped
}

// Pull returns the next recorded chunk.
func (c *Capture) Pull(ctx context.Context) (types.SampleChunk, error) {
	if err := ctx.Err(); err != nil {
		return types.SampleChunk{}, err
	}
	for {
		frame, err := c.reader.Next()
		if err == io.EOF {
			return types.SampleChunk{}, bridge.ErrEndOfStream
		}
		if err != nil {
			if capture.IsFatalFrameError(err) {
				return types.SampleChunk{}, fmt.Errorf("capture: %w", err)
			}
			c.skipped++
			continue
		}

		switch v := frame.(type) {
		case *capture.ParamsFrame:
			c.params = v.Params
			continue
		case *capture.ChunkFrame:
			at := time.Unix(0, v.TimeNs)
			if c.pace {
				if err := c.pacer.wait(ctx, at); err != nil {
					return types.SampleChunk{}, err
				}
			}
			return types.SampleChunk{
				Data:   v.Data,
				Pairs:  v.Pairs,
				Time:   at,
				Params: c.params,
			}, nil
		default:
			c.skipped++
		}
	}
}

// Close releases the file handle.
func (c *Capture) Close() error {
	return c.f.Close()
}
