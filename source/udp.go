package source

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/justapithecus/ingot/bridge"
	"github.com/justapithecus/ingot/types"
)

// UDP listener defaults.
const (
	DefaultUDPQueueDepth = 256

	// maxDatagramSize covers the largest possible UDP payload.
	maxDatagramSize = 65536
)

// UDPConfig configures a datagram listener source.
type UDPConfig struct {
	// Listen is the host:port to bind.
	Listen string
	// Format is the sample format senders are expected to use.
	Format types.SampleFormat
	// Params is the static radio parameter snapshot attached to every
	// chunk. SampleRateHz must be positive.
	Params types.RadioParams
	// QueueDepth bounds the receive queue. Zero applies the default.
	QueueDepth int
	// ReadBuffer sets the socket receive buffer in bytes when positive.
	ReadBuffer int
}

// UDP receives datagrams and queues each one as a chunk, stamped with
// its receive time. One reader goroutine feeds a bounded queue; when
// the queue is full the datagram is dropped and counted, so ingest
// pressure is always visible. Alignment is not checked here: a
// misaligned datagram flows through and is rejected by the pipeline's
// input validation.
type UDP struct {
	conn      *net.UDPConn
	params    types.RadioParams
	pairBytes int

	queue   chan types.SampleChunk
	dropped atomic.Int64

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

var _ bridge.SampleSource = (*UDP)(nil)

// NewUDP binds the listener and starts receiving.
func NewUDP(cfg UDPConfig) (*UDP, error) {
	if !cfg.Format.Valid() {
		return nil, fmt.Errorf("udp: unknown sample format %q", cfg.Format)
	}
	if cfg.Params.SampleRateHz <= 0 {
		return nil, fmt.Errorf("udp: sample rate %v must be positive", cfg.Params.SampleRateHz)
	}
	depth := cfg.QueueDepth
	if depth == 0 {
		depth = DefaultUDPQueueDepth
	}
	if depth < 1 {
		return nil, fmt.Errorf("udp: queue depth %d must be positive", depth)
	}

	addr, err := net.ResolveUDPAddr("udp", cfg.Listen)
	if err != nil {
		return nil, fmt.Errorf("udp: resolve %s: %w", cfg.Listen, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("udp: listen %s: %w", cfg.Listen, err)
	}
	if cfg.ReadBuffer > 0 {
		if err := conn.SetReadBuffer(cfg.ReadBuffer); err != nil {
			conn.Close()
			return nil, fmt.Errorf("udp: set read buffer: %w", err)
		}
	}

	u := &UDP{
		conn:      conn,
		params:    cfg.Params,
		pairBytes: cfg.Format.PairBytes(),
		queue:     make(chan types.SampleChunk, depth),
		done:      make(chan struct{}),
	}
	u.wg.Add(1)
	go u.readLoop()
	return u, nil
}

// LocalAddr returns the bound address, useful when listening on an
// ephemeral port.
func (u *UDP) LocalAddr() net.Addr {
	return u.conn.LocalAddr()
}

// Dropped returns the number of datagrams discarded to queue overflow.
func (u *UDP) Dropped() int64 {
	return u.dropped.Load()
}

func (u *UDP) readLoop() {
	defer u.wg.Done()
	buf := make([]byte, maxDatagramSize)
	for {
		n, _, err := u.conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			select {
			case <-u.done:
				return
			default:
				continue
			}
		}
		if n == 0 {
			continue
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		chunk := types.SampleChunk{
			Data:   data,
			Pairs:  n / u.pairBytes,
			Time:   time.Now(),
			Params: u.params,
		}
		select {
		case u.queue <- chunk:
		default:
			u.dropped.Add(1)
		}
	}
}

// Pull returns a queued chunk, or ErrUnavailable when none is ready.
func (u *UDP) Pull(ctx context.Context) (types.SampleChunk, error) {
	select {
	case chunk := <-u.queue:
		return chunk, nil
	case <-ctx.Done():
		return types.SampleChunk{}, ctx.Err()
	default:
		return types.SampleChunk{}, bridge.ErrUnavailable
	}
}

// Close stops the reader and releases the socket. Chunks already
// queued are discarded.
func (u *UDP) Close() error {
	var err error
	u.closeOnce.Do(func() {
		close(u.done)
		err = u.conn.Close()
		u.wg.Wait()
	})
	return err
}
