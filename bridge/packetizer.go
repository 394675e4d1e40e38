package bridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/justapithecus/ingot/log"
	"github.com/justapithecus/ingot/metrics"
	"github.com/justapithecus/ingot/types"
	"github.com/justapithecus/ingot/vrt"
)

// State is the packetizer's position in its emission cycle.
type State int

const (
	// StateIdle means no sample data is buffered.
	StateIdle State = iota
	// StateAccumulating means a partial payload is buffered, below the
	// emission threshold.
	StateAccumulating
	// StateEmitting means a packet is being assembled and delivered.
	StateEmitting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAccumulating:
		return "accumulating"
	case StateEmitting:
		return "emitting"
	default:
		return "unknown"
	}
}

// Delivery defaults applied when the corresponding config field is zero.
const (
	// DefaultMaxPayloadWords keeps a full data packet with every
	// prologue option inside a 1500-byte datagram.
	DefaultMaxPayloadWords = 360

	defaultMaxPending   = 64
	defaultPushTimeout  = 5 * time.Second
	defaultRetryBackoff = 2 * time.Millisecond
	maxRetryBackoff     = 250 * time.Millisecond
)

// PacketizerConfig carries the stream shape and delivery policy for a
// Packetizer.
type PacketizerConfig struct {
	Stream  types.StreamMeta
	Format  types.SampleFormat
	ClassID *vrt.ClassID
	TSI     vrt.TSIMode
	TSF     vrt.TSFMode

	// MaxPayloadWords bounds the data payload per packet. Zero applies
	// DefaultMaxPayloadWords.
	MaxPayloadWords int
	TrailerEnabled  bool

	// HeartbeatPackets re-emits context after this many data packets.
	// Zero disables the trigger.
	HeartbeatPackets int
	// HeartbeatInterval re-emits context after this much wall time.
	// Zero disables the trigger.
	HeartbeatInterval time.Duration

	// MaxPending bounds the delivery queue. Zero applies the default.
	MaxPending int
	// PushTimeout bounds how long the head packet may sit unaccepted
	// before the sink is declared failed. Zero applies the default.
	PushTimeout time.Duration
	// RetryBackoff is the initial delay between push retries; it
	// doubles per retry up to an internal cap. Zero applies the default.
	RetryBackoff time.Duration

	Sink      PacketSink
	Logger    *log.Logger
	Collector *metrics.Collector

	// Clock overrides time.Now for heartbeat and timeout decisions.
	Clock func() time.Time

	// OnDiscontinuity is invoked once per backward timestamp step,
	// after the step has been counted and rebased. Optional.
	OnDiscontinuity func(err error)

	// OnContextChange is invoked after a parameter-change context
	// packet is committed. Heartbeats do not fire it. Optional.
	OnContextChange func(snapshot types.RadioParams)
}

// Packetizer turns well-formed sample chunks into VRT data packets,
// interleaves context packets per its tracker, and delivers serialized
// packets through a bounded pending queue.
//
// Sample bytes accumulate across chunk boundaries so every data packet
// except a final flush carries exactly the configured payload size.
// Not safe for concurrent use; the bridge drives it from one goroutine.
type Packetizer struct {
	stream         types.StreamMeta
	format         types.SampleFormat
	classID        *vrt.ClassID
	tsi            vrt.TSIMode
	tsf            vrt.TSFMode
	trailerEnabled bool

	pairBytes       int
	maxPayloadBytes int

	maxPending   int
	pushTimeout  time.Duration
	retryBackoff time.Duration

	sink            PacketSink
	logger          *log.Logger
	collector       *metrics.Collector
	now             func() time.Time
	onDiscontinuity func(error)
	onContextChange func(types.RadioParams)

	tracker *ContextTracker
	clock   *TimestampGenerator

	state State

	// payload accumulates sample bytes for the next data packet. The
	// head fields locate its first pair in acquisition time.
	payload    []byte
	headTime   time.Time
	headOffset int
	headRate   float64

	dataCount     uint8
	contextCount  uint8
	discontinuity bool

	pending [][]byte
}

// NewPacketizer validates cfg and returns a ready packetizer.
func NewPacketizer(cfg PacketizerConfig) (*Packetizer, error) {
	if !cfg.Format.Valid() {
		return nil, newError(ErrConfigInvalid, "packetizer", fmt.Errorf("unknown sample format %q", cfg.Format))
	}
	if cfg.Sink == nil {
		return nil, newError(ErrConfigInvalid, "packetizer", errors.New("sink is required"))
	}

	maxPayloadWords := cfg.MaxPayloadWords
	if maxPayloadWords == 0 {
		maxPayloadWords = DefaultMaxPayloadWords
	}
	if maxPayloadWords < 0 {
		return nil, newError(ErrConfigInvalid, "packetizer", fmt.Errorf("max payload words %d is negative", maxPayloadWords))
	}
	pairsPerPacket := maxPayloadWords / cfg.Format.PairWords()
	if pairsPerPacket < 1 {
		return nil, newError(ErrConfigInvalid, "packetizer",
			fmt.Errorf("max payload words %d cannot hold one %s pair", maxPayloadWords, cfg.Format))
	}
	overhead := vrt.DataOverheadWords(cfg.ClassID != nil, cfg.TrailerEnabled, cfg.TSI, cfg.TSF)
	if overhead+pairsPerPacket*cfg.Format.PairWords() > vrt.MaxPacketWords {
		return nil, newError(ErrConfigInvalid, "packetizer",
			fmt.Errorf("max payload words %d plus %d overhead words exceeds the packet size field", maxPayloadWords, overhead))
	}

	maxPending := cfg.MaxPending
	if maxPending == 0 {
		maxPending = defaultMaxPending
	}
	if maxPending < 1 {
		return nil, newError(ErrConfigInvalid, "packetizer", fmt.Errorf("max pending %d must be at least 1", maxPending))
	}
	pushTimeout := cfg.PushTimeout
	if pushTimeout <= 0 {
		pushTimeout = defaultPushTimeout
	}
	retryBackoff := cfg.RetryBackoff
	if retryBackoff <= 0 {
		retryBackoff = defaultRetryBackoff
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		meta := cfg.Stream
		logger = log.NewLogger(&meta)
	}

	return &Packetizer{
		stream:          cfg.Stream,
		format:          cfg.Format,
		classID:         cfg.ClassID,
		tsi:             cfg.TSI,
		tsf:             cfg.TSF,
		trailerEnabled:  cfg.TrailerEnabled,
		pairBytes:       cfg.Format.PairBytes(),
		maxPayloadBytes: pairsPerPacket * cfg.Format.PairBytes(),
		maxPending:      maxPending,
		pushTimeout:     pushTimeout,
		retryBackoff:    retryBackoff,
		sink:            cfg.Sink,
		logger:          logger,
		collector:       cfg.Collector,
		now:             now,
		onDiscontinuity: cfg.OnDiscontinuity,
		onContextChange: cfg.OnContextChange,
		tracker:         NewContextTracker(cfg.HeartbeatPackets, cfg.HeartbeatInterval),
		clock:           NewTimestampGenerator(cfg.TSI, cfg.TSF),
	}, nil
}

// State returns the current emission-cycle state.
func (p *Packetizer) State() State {
	return p.state
}

// Params returns the last announced radio parameter snapshot, if any.
func (p *Packetizer) Params() (types.RadioParams, bool) {
	return p.tracker.Current()
}

// ProcessChunk ingests one pulled chunk: it emits a context packet
// first when parameters changed or a heartbeat is due, then slices the
// chunk's samples into data packets. A malformed chunk is counted and
// skipped. The returned error, if any, is pipeline-fatal.
func (p *Packetizer) ProcessChunk(ctx context.Context, chunk types.SampleChunk) error {
	if !chunk.WellFormed(p.format) {
		p.collector.IncChunkSkipped()
		p.logger.Warn("skipping malformed chunk", map[string]any{
			"bytes":  len(chunk.Data),
			"pairs":  chunk.Pairs,
			"format": string(p.format),
		})
		return nil
	}
	p.collector.AddChunk(chunk.Pairs, len(chunk.Data))

	snapshot, decision := p.tracker.Observe(chunk.Params, p.now())
	if decision != ContextUnchanged {
		// Samples gathered under the previous parameters leave first,
		// so the context packet precedes only data it describes.
		if err := p.flushPartial(ctx); err != nil {
			return err
		}
		if err := p.emitContext(ctx, snapshot, decision, chunk.Time); err != nil {
			return err
		}
		p.tracker.Commit(snapshot, p.now())
		if decision == ContextChanged && p.onContextChange != nil {
			p.onContextChange(snapshot)
		}
	}

	data := chunk.Data
	consumedPairs := 0
	for len(data) > 0 {
		if len(p.payload) == 0 {
			p.headTime = chunk.Time
			p.headOffset = consumedPairs
			p.headRate = chunk.Params.SampleRateHz
			p.state = StateAccumulating
		}
		take := p.maxPayloadBytes - len(p.payload)
		if take > len(data) {
			take = len(data)
		}
		p.payload = append(p.payload, data[:take]...)
		data = data[take:]
		consumedPairs += take / p.pairBytes
		if len(p.payload) == p.maxPayloadBytes {
			if err := p.emitData(ctx); err != nil {
				return err
			}
		}
	}
	if len(p.payload) == 0 {
		p.state = StateIdle
	} else {
		p.state = StateAccumulating
	}
	return nil
}

// Flush emits any accumulated partial payload as a final short data
// packet, then drains the pending queue completely. Called at end of
// stream and on shutdown.
func (p *Packetizer) Flush(ctx context.Context) error {
	if err := p.flushPartial(ctx); err != nil {
		return err
	}
	if err := p.drainUntil(ctx, 0); err != nil {
		return err
	}
	p.state = StateIdle
	return nil
}

func (p *Packetizer) flushPartial(ctx context.Context) error {
	if len(p.payload) == 0 {
		return nil
	}
	return p.emitData(ctx)
}

func (p *Packetizer) emitData(ctx context.Context) error {
	p.state = StateEmitting
	pairs := len(p.payload) / p.pairBytes

	ts, tsErr := p.clock.Next(p.headTime, p.headOffset, p.headRate)
	if tsErr != nil {
		p.noteDiscontinuity(tsErr)
	}

	pkt := vrt.Packet{
		Type:     vrt.TypeIFDataWithID,
		StreamID: p.stream.StreamID,
		ClassID:  p.classID,
		TSI:      p.tsi,
		TSF:      p.tsf,
		Count:    p.dataCount,
		Time:     ts,
		Payload:  p.payload,
	}
	if p.trailerEnabled {
		pkt.Trailer = p.buildTrailer()
	}

	encoded, err := pkt.Encode()
	if err != nil {
		return fmt.Errorf("encode data packet: %w", err)
	}

	p.dataCount = (p.dataCount + 1) & 0xF
	p.discontinuity = false
	p.payload = p.payload[:0]
	p.tracker.NoteData()
	p.clock.Advance(pairs)
	p.collector.IncDataPacket()

	return p.deliver(ctx, encoded)
}

func (p *Packetizer) emitContext(ctx context.Context, snapshot types.RadioParams, decision ContextDecision, acq time.Time) error {
	p.state = StateEmitting

	ts, tsErr := p.clock.Next(acq, 0, snapshot.SampleRateHz)
	if tsErr != nil {
		// Context packets carry no trailer; the next data packet wears
		// the calibrated-time drop.
		p.noteDiscontinuity(tsErr)
	}

	body := vrt.ContextPayload{
		FieldChange:          decision == ContextChanged,
		BandwidthHz:          snapshot.BandwidthHz,
		RFFrequencyHz:        snapshot.CenterFrequencyHz,
		ReferenceLevelDBm:    snapshot.ReferenceLevelDBm,
		GainDB:               snapshot.GainDB,
		SampleRateHz:         snapshot.SampleRateHz,
		StateEventEnables:    vrt.EventValidData | vrt.EventReferenceLock,
		StateEventIndicators: vrt.EventValidData | vrt.EventReferenceLock,
	}

	pkt := vrt.Packet{
		Type:     vrt.TypeIFContext,
		StreamID: p.stream.StreamID,
		ClassID:  p.classID,
		TSI:      p.tsi,
		TSF:      p.tsf,
		Count:    p.contextCount,
		Time:     ts,
		Payload:  body.Encode(),
	}

	encoded, err := pkt.Encode()
	if err != nil {
		return fmt.Errorf("encode context packet: %w", err)
	}

	p.contextCount = (p.contextCount + 1) & 0xF
	p.collector.IncContextPacket(decision == ContextHeartbeat)
	p.logger.Debug("context packet emitted", map[string]any{
		"reason":         decision.String(),
		"center_freq_hz": snapshot.CenterFrequencyHz,
		"sample_rate_hz": snapshot.SampleRateHz,
	})

	return p.deliver(ctx, encoded)
}

func (p *Packetizer) noteDiscontinuity(err error) {
	p.collector.IncDiscontinuity()
	p.discontinuity = true
	p.logger.Warn("clock discontinuity", map[string]any{"error": err.Error()})
	if p.onDiscontinuity != nil {
		p.onDiscontinuity(err)
	}
}

func (p *Packetizer) buildTrailer() *vrt.Trailer {
	enables := vrt.EventCalibratedTime | vrt.EventValidData | vrt.EventReferenceLock
	indicators := vrt.EventValidData | vrt.EventReferenceLock
	if !p.discontinuity {
		indicators |= vrt.EventCalibratedTime
	}
	return &vrt.Trailer{Enables: enables, Indicators: indicators}
}

// deliver enqueues one serialized packet and drains opportunistically.
// Packets stay queued across backpressure; when the queue is full the
// drain turns blocking until the head moves or the push timeout
// expires.
func (p *Packetizer) deliver(ctx context.Context, encoded []byte) error {
	p.pending = append(p.pending, encoded)
	p.collector.ObservePending(len(p.pending))
	if err := p.drainAvailable(ctx); err != nil {
		return err
	}
	if len(p.pending) >= p.maxPending {
		return p.drainUntil(ctx, p.maxPending-1)
	}
	return nil
}

// drainAvailable pushes queued packets in order until the sink
// backpressures or the queue empties. Backpressure here is absorbed;
// only hard sink errors return.
func (p *Packetizer) drainAvailable(ctx context.Context) error {
	for len(p.pending) > 0 {
		head := p.pending[0]
		err := p.sink.Push(ctx, head)
		switch {
		case err == nil:
			p.collector.AddDelivered(len(head))
			p.pending = p.pending[1:]
		case errors.Is(err, ErrBackpressure):
			p.collector.IncBackpressureRetry()
			return nil
		default:
			return newError(ErrSinkFatal, "push", err)
		}
	}
	return nil
}

// drainUntil pushes with backoff retries until the queue depth reaches
// target. A head packet the sink refuses for longer than the push
// timeout is fatal: resource exhaustion when the queue is full, sink
// failure otherwise.
func (p *Packetizer) drainUntil(ctx context.Context, target int) error {
	deadline := p.now().Add(p.pushTimeout)
	backoff := p.retryBackoff
	for len(p.pending) > target {
		head := p.pending[0]
		err := p.sink.Push(ctx, head)
		switch {
		case err == nil:
			p.collector.AddDelivered(len(head))
			p.pending = p.pending[1:]
			deadline = p.now().Add(p.pushTimeout)
			backoff = p.retryBackoff
			continue
		case errors.Is(err, ErrBackpressure):
			p.collector.IncBackpressureRetry()
		default:
			return newError(ErrSinkFatal, "push", err)
		}

		if !p.now().Before(deadline) {
			kind := ErrSinkFatal
			if len(p.pending) >= p.maxPending {
				kind = ErrResourceExhausted
			}
			return newError(kind, "push",
				fmt.Errorf("sink refused head packet for %v with %d pending", p.pushTimeout, len(p.pending)))
		}
		if err := p.sleep(ctx, backoff); err != nil {
			return newError(ErrSinkFatal, "push", err)
		}
		backoff *= 2
		if backoff > maxRetryBackoff {
			backoff = maxRetryBackoff
		}
	}
	return nil
}

func (p *Packetizer) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
