package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/justapithecus/ingot/bridge"
	"github.com/justapithecus/ingot/types"
)

// PcapConfig configures a pcap replay source.
type PcapConfig struct {
	Path string
	// Port filters on UDP destination port. Zero accepts any port.
	Port int
	// Format is the sample format the captured payloads carry.
	Format types.SampleFormat
	// Params is the static radio parameter snapshot attached to every
	// chunk. SampleRateHz must be positive.
	Params types.RadioParams
	// Pace replays at the recorded capture cadence.
	Pace bool
	// Clock overrides time.Now for pacing decisions.
	Clock func() time.Time
}

// Pcap replays UDP payloads from a pcap capture file. Each matching
// datagram payload becomes one chunk stamped with the recorded capture
// time. Non-UDP packets and non-matching ports are passed over.
type Pcap struct {
	f         *os.File
	reader    *pcapgo.Reader
	linkType  layers.LinkType
	port      int
	params    types.RadioParams
	pairBytes int
	pace      bool
	pacer     pacer
}

var _ bridge.SampleSource = (*Pcap)(nil)

// NewPcap opens the capture file and validates its header.
func NewPcap(cfg PcapConfig) (*Pcap, error) {
	if !cfg.Format.Valid() {
		return nil, fmt.Errorf("pcap: unknown sample format %q", cfg.Format)
	}
	if cfg.Params.SampleRateHz <= 0 {
		return nil, fmt.Errorf("pcap: sample rate %v must be positive", cfg.Params.SampleRateHz)
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("pcap: port %d out of range", cfg.Port)
	}

	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("pcap: %w", err)
	}
	reader, err := pcapgo.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("pcap: %s: %w", cfg.Path, err)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Pcap{
		f:         f,
		reader:    reader,
		linkType:  reader.LinkType(),
		port:      cfg.Port,
		params:    cfg.Params,
		pairBytes: cfg.Format.PairBytes(),
		pace:      cfg.Pace,
		pacer:     pacer{clock: clock},
	}, nil
}

// Pull returns the payload of the next matching datagram.
func (p *Pcap) Pull(ctx context.Context) (types.SampleChunk, error) {
	if err := ctx.Err(); err != nil {
		return types.SampleChunk{}, err
	}
	for {
		data, ci, err := p.reader.ReadPacketData()
		if err == io.EOF {
			return types.SampleChunk{}, bridge.ErrEndOfStream
		}
		if err != nil {
			return types.SampleChunk{}, fmt.Errorf("pcap: read packet: %w", err)
		}

		packet := gopacket.NewPacket(data, p.linkType, gopacket.Default)
		udpLayer := packet.Layer(layers.LayerTypeUDP)
		if udpLayer == nil {
			continue
		}
		udp := udpLayer.(*layers.UDP)
		if p.port != 0 && int(udp.DstPort) != p.port {
			continue
		}
		if len(udp.Payload) == 0 {
			continue
		}

		if p.pace {
			if err := p.pacer.wait(ctx, ci.Timestamp); err != nil {
				return types.SampleChunk{}, err
			}
		}

		return types.SampleChunk{
			Data:   udp.Payload,
			Pairs:  len(udp.Payload) / p.pairBytes,
			Time:   ci.Timestamp,
			Params: p.params,
		}, nil
	}
}

// Close releases the file handle.
func (p *Pcap) Close() error {
	return p.f.Close()
}
