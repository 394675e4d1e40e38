package sink

import (
	"bytes"
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/justapithecus/ingot/bridge"
)

func newUDPReceiver(t *testing.T) (*net.UDPConn, string) {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn, conn.LocalAddr().String()
}

func TestUDP_SendsOneDatagramPerPacket(t *testing.T) {
	recv, addr := newUDPReceiver(t)
	s, err := NewUDP(UDPConfig{Target: addr})
	if err != nil {
		t.Fatalf("NewUDP failed: %v", err)
	}
	defer s.Close()

	packets := [][]byte{
		{0x1C, 0x65, 0x00, 0x0A, 1, 2, 3, 4},
		{0x1C, 0x66, 0x00, 0x0A, 5, 6},
	}
	for i, packet := range packets {
		if err := s.Push(t.Context(), packet); err != nil {
			t.Fatalf("Push %d failed: %v", i, err)
		}
	}

	buf := make([]byte, 2048)
	for i, want := range packets {
		if err := recv.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
			t.Fatalf("set deadline: %v", err)
		}
		n, _, err := recv.ReadFromUDP(buf)
		if err != nil {
			t.Fatalf("receive %d: %v", i, err)
		}
		if !bytes.Equal(buf[:n], want) {
			t.Errorf("datagram %d = %v, want %v", i, buf[:n], want)
		}
	}
}

func TestUDP_PacingReportsBackpressure(t *testing.T) {
	_, addr := newUDPReceiver(t)

	now := time.Unix(1700000000, 0)
	s, err := NewUDP(UDPConfig{
		Target:      addr,
		MinInterval: 10 * time.Millisecond,
		Clock:       func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewUDP failed: %v", err)
	}
	defer s.Close()

	packet := []byte{1, 2, 3, 4}
	if err := s.Push(t.Context(), packet); err != nil {
		t.Fatalf("first Push failed: %v", err)
	}
	if err := s.Push(t.Context(), packet); !errors.Is(err, bridge.ErrBackpressure) {
		t.Fatalf("Push inside interval = %v, want ErrBackpressure", err)
	}

	now = now.Add(10 * time.Millisecond)
	if err := s.Push(t.Context(), packet); err != nil {
		t.Errorf("Push after interval = %v, want accepted", err)
	}
}

func TestUDP_CanceledContextStopsPush(t *testing.T) {
	_, addr := newUDPReceiver(t)
	s, err := NewUDP(UDPConfig{Target: addr})
	if err != nil {
		t.Fatalf("NewUDP failed: %v", err)
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	if err := s.Push(ctx, []byte{1}); err == nil {
		t.Error("expected error pushing with canceled context")
	}
}

func TestUDP_ConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  UDPConfig
	}{
		{"missing target", UDPConfig{}},
		{"bad target", UDPConfig{Target: "127.0.0.1:notaport"}},
		{"ttl too large", UDPConfig{Target: "127.0.0.1:5004", MulticastTTL: 256}},
		{"ttl negative", UDPConfig{Target: "127.0.0.1:5004", MulticastTTL: -1}},
		{"negative interval", UDPConfig{Target: "127.0.0.1:5004", MinInterval: -time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewUDP(tt.cfg); err == nil {
				t.Fatal("expected config error")
			}
		})
	}
}
