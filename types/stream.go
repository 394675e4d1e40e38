package types

import "errors"

// StreamMeta identifies one bridge session.
// StreamID is the VRT stream identifier from configuration; SessionID is
// a fresh UUID assigned per run and threaded through logs, lifecycle
// events, and archive key paths.
type StreamMeta struct {
	StreamID  uint32
	SessionID string
}

// Validate checks that stream identity is usable.
func (m *StreamMeta) Validate() error {
	if m == nil {
		return errors.New("stream meta is required")
	}
	if m.SessionID == "" {
		return errors.New("session id is required")
	}
	return nil
}
