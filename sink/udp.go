package sink

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"syscall"
	"time"

	"golang.org/x/net/ipv4"

	"github.com/justapithecus/ingot/bridge"
)

// UDPConfig configures a UDP packet sink.
type UDPConfig struct {
	// Target is the destination address in host:port form. Multicast
	// group addresses are accepted.
	Target string
	// MulticastTTL sets the IP multicast TTL when Target is a multicast
	// group. Zero keeps the kernel default.
	MulticastTTL int
	// MulticastInterface names the egress interface for multicast
	// sends. Empty keeps the kernel's routing choice.
	MulticastInterface string
	// MinInterval is the minimum spacing between sends. A push arriving
	// before the interval elapses is reported as backpressure so the
	// pipeline's bounded delivery owns the waiting. Zero disables
	// pacing.
	MinInterval time.Duration
	// Clock overrides time.Now for pacing decisions.
	Clock func() time.Time
}

// UDP sends each packet as one datagram over a connected socket.
type UDP struct {
	conn        *net.UDPConn
	clock       func() time.Time
	minInterval time.Duration

	mu       sync.Mutex
	nextSend time.Time
}

var _ bridge.PacketSink = (*UDP)(nil)

// NewUDP resolves the target and connects the socket. Multicast
// destinations get TTL and interface control applied up front.
func NewUDP(cfg UDPConfig) (*UDP, error) {
	if cfg.Target == "" {
		return nil, errors.New("udp sink: target address is required")
	}
	if cfg.MulticastTTL < 0 || cfg.MulticastTTL > 255 {
		return nil, fmt.Errorf("udp sink: multicast ttl %d out of range", cfg.MulticastTTL)
	}
	if cfg.MinInterval < 0 {
		return nil, fmt.Errorf("udp sink: min interval %v is negative", cfg.MinInterval)
	}

	raddr, err := net.ResolveUDPAddr("udp", cfg.Target)
	if err != nil {
		return nil, fmt.Errorf("udp sink: resolve %s: %w", cfg.Target, err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("udp sink: dial %s: %w", cfg.Target, err)
	}
	if raddr.IP.IsMulticast() {
		if err := configureMulticast(conn, cfg); err != nil {
			conn.Close()
			return nil, err
		}
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &UDP{conn: conn, clock: clock, minInterval: cfg.MinInterval}, nil
}

func configureMulticast(conn *net.UDPConn, cfg UDPConfig) error {
	p := ipv4.NewPacketConn(conn)
	if cfg.MulticastTTL > 0 {
		if err := p.SetMulticastTTL(cfg.MulticastTTL); err != nil {
			return fmt.Errorf("udp sink: set multicast ttl: %w", err)
		}
	}
	if cfg.MulticastInterface != "" {
		ifi, err := net.InterfaceByName(cfg.MulticastInterface)
		if err != nil {
			return fmt.Errorf("udp sink: interface %s: %w", cfg.MulticastInterface, err)
		}
		if err := p.SetMulticastInterface(ifi); err != nil {
			return fmt.Errorf("udp sink: set multicast interface: %w", err)
		}
	}
	return nil
}

// LocalAddr returns the bound local address.
func (s *UDP) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

// Push sends the packet as one datagram. A push inside the pacing
// interval or a send hitting kernel buffer exhaustion is reported as
// backpressure; everything else is fatal.
func (s *UDP) Push(ctx context.Context, packet []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.minInterval > 0 {
		now := s.clock()
		s.mu.Lock()
		if now.Before(s.nextSend) {
			s.mu.Unlock()
			return bridge.ErrBackpressure
		}
		s.nextSend = now.Add(s.minInterval)
		s.mu.Unlock()
	}

	if _, err := s.conn.Write(packet); err != nil {
		if errors.Is(err, syscall.ENOBUFS) || errors.Is(err, syscall.EAGAIN) {
			return bridge.ErrBackpressure
		}
		return fmt.Errorf("udp sink: send: %w", err)
	}
	return nil
}

// Close closes the socket.
func (s *UDP) Close() error {
	return s.conn.Close()
}
