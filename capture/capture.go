// Package capture implements the .iqc recorded I/Q container: a stream
// of 4-byte big-endian length-prefixed msgpack frames holding a session
// header, radio parameter updates, and raw sample chunks.
package capture

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/justapithecus/ingot/types"
)

// FormatVersion is the container version written into every header.
const FormatVersion = 1

// Frame size constants.
const (
	// MaxFrameSize is the maximum frame size (16 MiB), including length prefix.
	MaxFrameSize = 16 * 1024 * 1024
	// MaxPayloadSize is the maximum payload size (MaxFrameSize - 4 bytes).
	MaxPayloadSize = MaxFrameSize - LengthPrefixSize
	// MaxChunkBytes is the maximum raw sample data per chunk frame (8 MiB).
	MaxChunkBytes = 8 * 1024 * 1024
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4
)

// Frame type discriminators.
const (
	HeaderFrameType = "capture_header"
	ParamsFrameType = "radio_params"
	ChunkFrameType  = "sample_chunk"
)

// HeaderFrame is the first frame of every container.
type HeaderFrame struct {
	// Type is always "capture_header".
	Type string `msgpack:"type"`
	// Version is the container format version.
	Version int `msgpack:"version"`
	// StreamID is the VRT stream identifier the capture was taken under.
	StreamID uint32 `msgpack:"stream_id"`
	// SessionID identifies the recording session, when known.
	SessionID string `msgpack:"session_id,omitempty"`
	// Format names the sample format of every chunk frame.
	Format string `msgpack:"format"`
	// CreatedAt is the recording start in RFC 3339 UTC.
	CreatedAt string `msgpack:"created_at"`
	// Params is the radio parameter snapshot at recording start.
	Params types.RadioParams `msgpack:"params"`
}

// ParamsFrame records a mid-capture parameter change.
type ParamsFrame struct {
	// Type is always "radio_params".
	Type string `msgpack:"type"`
	// Params is the new snapshot.
	Params types.RadioParams `msgpack:"params"`
	// EffectiveNs is when the change took effect, unix nanoseconds.
	EffectiveNs int64 `msgpack:"effective_ns"`
}

// ChunkFrame carries one contiguous run of raw I/Q pairs.
type ChunkFrame struct {
	// Type is always "sample_chunk".
	Type string `msgpack:"type"`
	// TimeNs is the acquisition time of the first pair, unix nanoseconds.
	TimeNs int64 `msgpack:"time_ns"`
	// Pairs is the number of complex pairs in Data.
	Pairs int `msgpack:"pairs"`
	// Data is the raw interleaved I/Q bytes in wire order.
	Data []byte `msgpack:"data"`
}

// FrameErrorKind classifies frame decoding errors.
type FrameErrorKind int

const (
	// FrameErrorPartial indicates a truncated or incomplete frame.
	FrameErrorPartial FrameErrorKind = iota
	// FrameErrorTooLarge indicates a frame exceeding MaxFrameSize.
	FrameErrorTooLarge
	// FrameErrorDecode indicates a msgpack decoding error.
	FrameErrorDecode
)

// FrameError represents a frame decoding error.
type FrameError struct {
	Kind FrameErrorKind
	Msg  string
	Err  error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether the error ends the read. Partial and
// oversized frames leave the stream position unknowable; a decode error
// is confined to one frame and the reader can continue past it.
func (e *FrameError) IsFatal() bool {
	return e.Kind == FrameErrorPartial || e.Kind == FrameErrorTooLarge
}

// IsFatalFrameError reports whether err is a fatal frame error.
func IsFatalFrameError(err error) bool {
	var frameErr *FrameError
	if errors.As(err, &frameErr) {
		return frameErr.IsFatal()
	}
	return false
}

// FrameDecoder decodes length-prefixed msgpack frames from a stream.
type FrameDecoder struct {
	reader io.Reader
}

// NewFrameDecoder creates a new frame decoder.
func NewFrameDecoder(r io.Reader) *FrameDecoder {
	return &FrameDecoder{reader: r}
}

// ReadFrame reads a single frame and returns the raw msgpack payload.
//
// Errors:
//   - io.EOF: stream ended cleanly between frames
//   - *FrameError with Kind=FrameErrorPartial: truncated frame (fatal)
//   - *FrameError with Kind=FrameErrorTooLarge: frame exceeds limit (fatal)
func (d *FrameDecoder) ReadFrame() ([]byte, error) {
	var lengthBuf [LengthPrefixSize]byte
	_, err := io.ReadFull(d.reader, lengthBuf[:])
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  "failed to read length prefix",
			Err:  err,
		}
	}

	payloadSize := binary.BigEndian.Uint32(lengthBuf[:])
	if payloadSize > MaxPayloadSize {
		return nil, &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", payloadSize, MaxPayloadSize),
		}
	}

	payload := make([]byte, payloadSize)
	if _, err := io.ReadFull(d.reader, payload); err != nil {
		return nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  "failed to read payload",
			Err:  err,
		}
	}
	return payload, nil
}

// frameTypeProbe peeks at the type field without a full decode.
type frameTypeProbe struct {
	Type string `msgpack:"type"`
}

// DecodeFrame decodes a payload into its typed frame: *HeaderFrame,
// *ParamsFrame, or *ChunkFrame.
func DecodeFrame(payload []byte) (any, error) {
	var probe frameTypeProbe
	if err := msgpack.Unmarshal(payload, &probe); err != nil {
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  "failed to decode frame type",
			Err:  err,
		}
	}

	switch probe.Type {
	case HeaderFrameType:
		return DecodeHeader(payload)
	case ParamsFrameType:
		return DecodeParams(payload)
	case ChunkFrameType:
		return DecodeChunk(payload)
	default:
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  fmt.Sprintf("unknown frame type %q", probe.Type),
		}
	}
}

// DecodeHeader decodes a payload as a HeaderFrame.
func DecodeHeader(payload []byte) (*HeaderFrame, error) {
	var header HeaderFrame
	if err := msgpack.Unmarshal(payload, &header); err != nil {
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  "failed to decode capture header",
			Err:  err,
		}
	}
	return &header, nil
}

// DecodeParams decodes a payload as a ParamsFrame.
func DecodeParams(payload []byte) (*ParamsFrame, error) {
	var frame ParamsFrame
	if err := msgpack.Unmarshal(payload, &frame); err != nil {
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  "failed to decode params frame",
			Err:  err,
		}
	}
	return &frame, nil
}

// DecodeChunk decodes a payload as a ChunkFrame.
func DecodeChunk(payload []byte) (*ChunkFrame, error) {
	var frame ChunkFrame
	if err := msgpack.Unmarshal(payload, &frame); err != nil {
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  "failed to decode chunk frame",
			Err:  err,
		}
	}
	return &frame, nil
}

// Reader yields typed frames from a container, enforcing the header
// contract on the first frame.
type Reader struct {
	dec    *FrameDecoder
	header *HeaderFrame
}

// NewReader creates a container reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: NewFrameDecoder(r)}
}

// Header reads and validates the container header. It is read once;
// subsequent calls return the cached value.
func (r *Reader) Header() (*HeaderFrame, error) {
	if r.header != nil {
		return r.header, nil
	}

	payload, err := r.dec.ReadFrame()
	if err != nil {
		if err == io.EOF {
			return nil, &FrameError{Kind: FrameErrorPartial, Msg: "container has no header frame"}
		}
		return nil, err
	}
	header, err := DecodeHeader(payload)
	if err != nil {
		return nil, err
	}
	if header.Type != HeaderFrameType {
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  fmt.Sprintf("first frame is %q, want %q", header.Type, HeaderFrameType),
		}
	}
	if header.Version != FormatVersion {
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  fmt.Sprintf("unsupported container version %d", header.Version),
		}
	}
	if _, err := types.ParseSampleFormat(header.Format); err != nil {
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  "capture header",
			Err:  err,
		}
	}

	r.header = header
	return header, nil
}

// Next returns the next typed frame (*ParamsFrame or *ChunkFrame). It
// reads the header first if the caller has not. Returns io.EOF at the
// clean end of the container.
func (r *Reader) Next() (any, error) {
	if r.header == nil {
		if _, err := r.Header(); err != nil {
			return nil, err
		}
	}

	payload, err := r.dec.ReadFrame()
	if err != nil {
		return nil, err
	}
	frame, err := DecodeFrame(payload)
	if err != nil {
		return nil, err
	}
	if _, ok := frame.(*HeaderFrame); ok {
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  "unexpected header frame mid-container",
		}
	}
	return frame, nil
}

// Writer emits container frames to a stream. The header must be
// written first; the zero-value ordering errors are programming errors
// and reported as FrameError decode kinds for symmetry with Reader.
type Writer struct {
	w           io.Writer
	wroteHeader bool
}

// NewWriter creates a container writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteHeader writes the container header. Type and Version are filled
// in; the caller provides identity, format, and the initial snapshot.
func (w *Writer) WriteHeader(header *HeaderFrame) error {
	if w.wroteHeader {
		return errors.New("capture: header already written")
	}
	if _, err := types.ParseSampleFormat(header.Format); err != nil {
		return fmt.Errorf("capture header: %w", err)
	}
	h := *header
	h.Type = HeaderFrameType
	h.Version = FormatVersion
	if h.CreatedAt == "" {
		h.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	if err := w.writeFrame(&h); err != nil {
		return err
	}
	w.wroteHeader = true
	return nil
}

// WriteParams records a parameter change effective at the given time.
func (w *Writer) WriteParams(params types.RadioParams, effective time.Time) error {
	if !w.wroteHeader {
		return errors.New("capture: params frame before header")
	}
	return w.writeFrame(&ParamsFrame{
		Type:        ParamsFrameType,
		Params:      params,
		EffectiveNs: effective.UnixNano(),
	})
}

// WriteChunk records one run of raw I/Q pairs.
func (w *Writer) WriteChunk(at time.Time, pairs int, data []byte) error {
	if !w.wroteHeader {
		return errors.New("capture: chunk frame before header")
	}
	if len(data) > MaxChunkBytes {
		return fmt.Errorf("capture: chunk of %d bytes exceeds maximum %d", len(data), MaxChunkBytes)
	}
	return w.writeFrame(&ChunkFrame{
		Type:   ChunkFrameType,
		TimeNs: at.UnixNano(),
		Pairs:  pairs,
		Data:   data,
	})
}

func (w *Writer) writeFrame(v any) error {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("capture: encode frame: %w", err)
	}
	if len(payload) > MaxPayloadSize {
		return fmt.Errorf("capture: frame of %d bytes exceeds maximum %d", len(payload), MaxPayloadSize)
	}
	var lengthBuf [LengthPrefixSize]byte
	binary.BigEndian.PutUint32(lengthBuf[:], uint32(len(payload)))
	if _, err := w.w.Write(lengthBuf[:]); err != nil {
		return fmt.Errorf("capture: write length prefix: %w", err)
	}
	if _, err := w.w.Write(payload); err != nil {
		return fmt.Errorf("capture: write payload: %w", err)
	}
	return nil
}
