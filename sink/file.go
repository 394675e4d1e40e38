package sink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/justapithecus/ingot/bridge"
)

// FileConfig configures a rotating segment file sink.
type FileConfig struct {
	// Dir is the directory segments are written into. Created if
	// missing.
	Dir string
	// SegmentBytes is the rotation threshold. A segment that would grow
	// past it is finished and the packet opens a new one. Zero means
	// DefaultSegmentBytes.
	SegmentBytes int64
}

// File writes packets back to back into zero-padded .vrt segment
// files, rotating on a size threshold. Finished segments are fsynced.
// Push is not safe for concurrent use; the pipeline delivers serially.
type File struct {
	dir     string
	limit   int64
	f       *os.File
	path    string
	written int64
	segment int
}

var _ bridge.PacketSink = (*File)(nil)

// NewFile creates the directory if needed and opens the first segment.
func NewFile(cfg FileConfig) (*File, error) {
	if cfg.Dir == "" {
		return nil, errors.New("file sink: directory is required")
	}
	if cfg.SegmentBytes < 0 {
		return nil, fmt.Errorf("file sink: segment bytes %d is negative", cfg.SegmentBytes)
	}
	limit := cfg.SegmentBytes
	if limit == 0 {
		limit = DefaultSegmentBytes
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("file sink: %w", err)
	}

	s := &File{dir: cfg.Dir, limit: limit}
	if err := s.openSegment(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *File) openSegment() error {
	s.path = filepath.Join(s.dir, segmentName(s.segment))
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("file sink: %w", err)
	}
	s.f = f
	s.written = 0
	return nil
}

// Push appends the packet to the current segment, rotating first when
// the segment would grow past the threshold. A packet larger than the
// threshold still lands whole in its own segment.
func (s *File) Push(_ context.Context, packet []byte) error {
	if s.f == nil {
		return errors.New("file sink: closed")
	}
	if s.written > 0 && s.written+int64(len(packet)) > s.limit {
		if err := s.rotate(); err != nil {
			return err
		}
	}
	n, err := s.f.Write(packet)
	s.written += int64(n)
	if err != nil {
		return fmt.Errorf("file sink: write %s: %w", s.path, err)
	}
	return nil
}

func (s *File) rotate() error {
	if err := s.finishSegment(); err != nil {
		return err
	}
	s.segment++
	return s.openSegment()
}

func (s *File) finishSegment() error {
	if err := s.f.Sync(); err != nil {
		s.f.Close()
		return fmt.Errorf("file sink: sync %s: %w", s.path, err)
	}
	if err := s.f.Close(); err != nil {
		return fmt.Errorf("file sink: close %s: %w", s.path, err)
	}
	return nil
}

// Segment returns the index of the segment currently being written.
func (s *File) Segment() int {
	return s.segment
}

// Close fsyncs and closes the current segment. A segment that never
// received a packet is removed.
func (s *File) Close() error {
	if s.f == nil {
		return nil
	}
	err := s.finishSegment()
	s.f = nil
	if err == nil && s.written == 0 {
		os.Remove(s.path)
	}
	return err
}
