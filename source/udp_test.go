package source

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/justapithecus/ingot/bridge"
	"github.com/justapithecus/ingot/types"
)

func newTestUDP(t *testing.T, depth int) (*UDP, net.Conn) {
	t.Helper()
	u, err := NewUDP(UDPConfig{
		Listen:     "127.0.0.1:0",
		Format:     types.FormatCI16,
		Params:     synthParams(),
		QueueDepth: depth,
	})
	if err != nil {
		t.Fatalf("NewUDP failed: %v", err)
	}
	t.Cleanup(func() { u.Close() })

	sender, err := net.Dial("udp", u.LocalAddr().String())
	if err != nil {
		t.Fatalf("dial listener: %v", err)
	}
	t.Cleanup(func() { sender.Close() })
	return u, sender
}

// pullWithin polls until a chunk arrives or the deadline passes,
// absorbing ErrUnavailable while the datagram crosses the loopback.
func pullWithin(t *testing.T, u *UDP, d time.Duration) types.SampleChunk {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		chunk, err := u.Pull(t.Context())
		if err == nil {
			return chunk
		}
		if !errors.Is(err, bridge.ErrUnavailable) {
			t.Fatalf("Pull failed: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("no chunk arrived before the deadline")
	return types.SampleChunk{}
}

func TestUDP_DatagramBecomesChunk(t *testing.T) {
	u, sender := newTestUDP(t, 0)

	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if _, err := sender.Write(payload); err != nil {
		t.Fatalf("send datagram: %v", err)
	}

	chunk := pullWithin(t, u, time.Second)
	if chunk.Pairs != 2 {
		t.Errorf("Pairs = %d, want 2", chunk.Pairs)
	}
	if !chunk.WellFormed(types.FormatCI16) {
		t.Error("chunk is not well formed")
	}
	if chunk.Params != synthParams() {
		t.Errorf("Params = %+v, want the configured snapshot", chunk.Params)
	}
	if chunk.Time.IsZero() {
		t.Error("chunk should be stamped with its receive time")
	}
}

func TestUDP_UnavailableWhenIdle(t *testing.T) {
	u, _ := newTestUDP(t, 0)
	if _, err := u.Pull(t.Context()); !errors.Is(err, bridge.ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
}

func TestUDP_MisalignedDatagramFlowsThrough(t *testing.T) {
	u, sender := newTestUDP(t, 0)

	if _, err := sender.Write([]byte{1, 2, 3, 4, 5}); err != nil {
		t.Fatalf("send datagram: %v", err)
	}

	chunk := pullWithin(t, u, time.Second)
	// Alignment is the pipeline's input contract to enforce; the
	// listener only forwards.
	if chunk.WellFormed(types.FormatCI16) {
		t.Error("a 5-byte datagram should fail the input contract downstream")
	}
}

func TestUDP_OverflowIsCountedNeverSilent(t *testing.T) {
	u, sender := newTestUDP(t, 1)

	for range 50 {
		if _, err := sender.Write([]byte{1, 2, 3, 4}); err != nil {
			t.Fatalf("send datagram: %v", err)
		}
	}

	deadline := time.Now().Add(time.Second)
	for u.Dropped() == 0 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	if u.Dropped() == 0 {
		t.Error("queue overflow was not counted")
	}
}

func TestUDP_CloseStopsReader(t *testing.T) {
	u, _ := newTestUDP(t, 0)
	if err := u.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := u.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
}

func TestUDP_ConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  UDPConfig
	}{
		{"unknown format", UDPConfig{Listen: "127.0.0.1:0", Format: "ci64", Params: synthParams()}},
		{"zero sample rate", UDPConfig{Listen: "127.0.0.1:0", Format: types.FormatCI16}},
		{"negative queue", UDPConfig{Listen: "127.0.0.1:0", Format: types.FormatCI16, Params: synthParams(), QueueDepth: -1}},
		{"unresolvable listen", UDPConfig{Listen: "nope:nope:nope", Format: types.FormatCI16, Params: synthParams()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewUDP(tt.cfg); err == nil {
				t.Fatal("expected config error")
			}
		})
	}
}
