package bridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/justapithecus/ingot/adapter"
	"github.com/justapithecus/ingot/log"
	"github.com/justapithecus/ingot/metrics"
	"github.com/justapithecus/ingot/types"
	"github.com/justapithecus/ingot/vrt"
)

const (
	defaultShutdownGrace    = 5 * time.Second
	defaultUnavailableDelay = 5 * time.Millisecond
)

// Config configures a single stream session.
type Config struct {
	// Stream is the session identity. SessionID must be set.
	Stream types.StreamMeta
	// Format is the sample format all pulled chunks must carry.
	Format types.SampleFormat
	// ClassID is the optional VRT class identifier for every packet.
	ClassID *vrt.ClassID
	// TSI and TSF are the announced timestamp modes.
	TSI vrt.TSIMode
	TSF vrt.TSFMode

	// MaxPayloadWords bounds data packet payloads. Zero applies
	// DefaultMaxPayloadWords.
	MaxPayloadWords int
	// TrailerEnabled adds a state trailer to every data packet.
	TrailerEnabled bool

	// HeartbeatPackets and HeartbeatInterval set the context refresh
	// cadence. Zero disables the respective trigger.
	HeartbeatPackets  int
	HeartbeatInterval time.Duration

	// Delivery policy. Zero values apply defaults.
	MaxPending   int
	PushTimeout  time.Duration
	RetryBackoff time.Duration
	// ShutdownGrace bounds the final flush after the run loop stops.
	ShutdownGrace time.Duration
	// UnavailableDelay is the pause before re-pulling when the source
	// reports no chunk ready.
	UnavailableDelay time.Duration

	// Source produces chunks; Sink accepts packets. The caller owns
	// both and closes them after Run returns.
	Source SampleSource
	Sink   PacketSink

	// Adapters receive lifecycle events. Optional. The caller closes
	// them after Run returns.
	Adapters []adapter.Adapter

	// Collector records stream metrics. Nil disables recording.
	Collector *metrics.Collector
	// Logger defaults to a stderr JSON logger with stream context.
	Logger *log.Logger
	// Clock overrides time.Now for tests.
	Clock func() time.Time
}

// Report is the terminal summary of a stream session.
type Report struct {
	Stream   types.StreamMeta
	Outcome  *types.StreamOutcome
	Duration time.Duration
	// Params is the last announced radio parameter snapshot.
	Params  types.RadioParams
	Metrics metrics.Snapshot
}

// Bridge orchestrates one stream session: it pulls chunks from the
// source, drives the packetizer, publishes lifecycle events, and
// produces the terminal report.
type Bridge struct {
	config    *Config
	logger    *log.Logger
	collector *metrics.Collector
	pktzr     *Packetizer
	notifier  *Notifier
	now       func() time.Time

	shutdownGrace    time.Duration
	unavailableDelay time.Duration

	startTime time.Time
}

// New validates the configuration and assembles a bridge.
func New(config *Config) (*Bridge, error) {
	if config == nil {
		return nil, newError(ErrConfigInvalid, "bridge", errors.New("config is required"))
	}
	if err := config.Stream.Validate(); err != nil {
		return nil, newError(ErrConfigInvalid, "bridge", err)
	}
	if config.Source == nil {
		return nil, newError(ErrConfigInvalid, "bridge", errors.New("source is required"))
	}

	logger := config.Logger
	if logger == nil {
		meta := config.Stream
		logger = log.NewLogger(&meta)
	}

	now := config.Clock
	if now == nil {
		now = time.Now
	}

	b := &Bridge{
		config:           config,
		logger:           logger,
		collector:        config.Collector,
		notifier:         NewNotifier(config.Adapters, logger, config.Collector),
		now:              now,
		shutdownGrace:    config.ShutdownGrace,
		unavailableDelay: config.UnavailableDelay,
	}
	if b.shutdownGrace <= 0 {
		b.shutdownGrace = defaultShutdownGrace
	}
	if b.unavailableDelay <= 0 {
		b.unavailableDelay = defaultUnavailableDelay
	}

	pktzr, err := NewPacketizer(PacketizerConfig{
		Stream:            config.Stream,
		Format:            config.Format,
		ClassID:           config.ClassID,
		TSI:               config.TSI,
		TSF:               config.TSF,
		MaxPayloadWords:   config.MaxPayloadWords,
		TrailerEnabled:    config.TrailerEnabled,
		HeartbeatPackets:  config.HeartbeatPackets,
		HeartbeatInterval: config.HeartbeatInterval,
		MaxPending:        config.MaxPending,
		PushTimeout:       config.PushTimeout,
		RetryBackoff:      config.RetryBackoff,
		Sink:              config.Sink,
		Logger:            logger,
		Collector:         config.Collector,
		Clock:             now,
		OnDiscontinuity:   b.onDiscontinuity,
		OnContextChange:   b.onContextChange,
	})
	if err != nil {
		return nil, err
	}
	b.pktzr = pktzr

	return b, nil
}

// Run executes the stream session end-to-end and returns the report.
//
// Flow:
//  1. Publish stream_started
//  2. Pull chunks and drive the packetizer until end of stream, fatal
//     error, or cancellation
//  3. Flush the partial payload and drain pending packets under the
//     shutdown grace
//  4. Publish the terminal event and build the report
//
// Pipeline failures are encoded in the report outcome; the returned
// error is reserved for conditions that prevent the session from
// producing a report at all.
func (b *Bridge) Run(ctx context.Context) (*Report, error) {
	b.startTime = b.now()

	b.logger.Info("starting stream", map[string]any{
		"format":            string(b.config.Format),
		"tsi":               b.config.TSI.String(),
		"tsf":               b.config.TSF.String(),
		"max_payload_words": b.config.MaxPayloadWords,
		"trailer":           b.config.TrailerEnabled,
	})
	b.notifier.Publish(ctx, b.event(adapter.EventStreamStarted, ""))

	outcome := b.runLoop(ctx)

	// Flush is best effort on every termination path: the partial
	// payload and pending queue drain under a grace timeout detached
	// from the canceled parent.
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.shutdownGrace)
	flushErr := b.pktzr.Flush(flushCtx)
	cancel()
	if flushErr != nil {
		b.logger.Error("final flush failed", map[string]any{
			"error": flushErr.Error(),
		})
		if outcome.Status != types.OutcomeHalted {
			outcome = &types.StreamOutcome{
				Status:  types.OutcomeHalted,
				Message: fmt.Sprintf("final flush failed: %v", flushErr),
			}
		}
	}

	terminalType := adapter.EventStreamCompleted
	if outcome.Status == types.OutcomeHalted {
		terminalType = adapter.EventStreamHalted
	}
	eventCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.shutdownGrace)
	b.notifier.Publish(eventCtx, b.event(terminalType, outcome.Message))
	cancel()

	report := b.buildReport(outcome)

	b.logger.Info("stream finished", map[string]any{
		"outcome":         string(outcome.Status),
		"duration":        report.Duration.String(),
		"data_packets":    report.Metrics.DataPackets,
		"context_packets": report.Metrics.ContextPackets,
		"bytes_delivered": report.Metrics.BytesDelivered,
	})

	return report, nil
}

// runLoop pulls until a terminal condition and classifies it.
func (b *Bridge) runLoop(ctx context.Context) *types.StreamOutcome {
	for {
		if ctx.Err() != nil {
			return &types.StreamOutcome{Status: types.OutcomeCanceled, Message: "shutdown requested"}
		}

		chunk, err := b.config.Source.Pull(ctx)
		switch {
		case err == nil:
			if perr := b.pktzr.ProcessChunk(ctx, chunk); perr != nil {
				b.logger.Error("packetization failed", map[string]any{
					"error": perr.Error(),
				})
				return &types.StreamOutcome{Status: types.OutcomeHalted, Message: perr.Error()}
			}

		case errors.Is(err, ErrEndOfStream):
			return &types.StreamOutcome{Status: types.OutcomeCompleted}

		case errors.Is(err, ErrUnavailable):
			if werr := b.wait(ctx, b.unavailableDelay); werr != nil {
				return &types.StreamOutcome{Status: types.OutcomeCanceled, Message: "shutdown requested"}
			}

		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return &types.StreamOutcome{Status: types.OutcomeCanceled, Message: "shutdown requested"}

		default:
			perr := newError(ErrSourceFailed, "pull", err)
			b.logger.Error("source failed", map[string]any{
				"error": err.Error(),
			})
			return &types.StreamOutcome{Status: types.OutcomeHalted, Message: perr.Error()}
		}
	}
}

func (b *Bridge) wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (b *Bridge) onDiscontinuity(err error) {
	// Event publishing must not block the sample path longer than one
	// adapter round; adapters carry their own timeouts.
	b.notifier.Publish(context.Background(), b.event(adapter.EventClockDiscontinuity, err.Error()))
}

func (b *Bridge) onContextChange(snapshot types.RadioParams) {
	ev := b.event(adapter.EventContextChanged, "")
	ev.CenterFrequencyHz = snapshot.CenterFrequencyHz
	ev.SampleRateHz = snapshot.SampleRateHz
	b.notifier.Publish(context.Background(), ev)
}

func (b *Bridge) event(eventType, reason string) *adapter.StreamEvent {
	snap := b.collector.Snapshot()
	ev := &adapter.StreamEvent{
		SchemaVersion:  types.EventSchemaVersion,
		EventType:      eventType,
		StreamID:       b.config.Stream.StreamID,
		SessionID:      b.config.Stream.SessionID,
		Timestamp:      b.now().UTC().Format(time.RFC3339),
		DataPackets:    snap.DataPackets,
		ContextPackets: snap.ContextPackets,
		BytesDelivered: snap.BytesDelivered,
		Reason:         reason,
	}
	if params, ok := b.pktzr.Params(); ok {
		ev.CenterFrequencyHz = params.CenterFrequencyHz
		ev.SampleRateHz = params.SampleRateHz
	}
	return ev
}

// buildReport constructs the final session report.
func (b *Bridge) buildReport(outcome *types.StreamOutcome) *Report {
	report := &Report{
		Stream:   b.config.Stream,
		Outcome:  outcome,
		Duration: b.now().Sub(b.startTime),
		Metrics:  b.collector.Snapshot(),
	}
	if params, ok := b.pktzr.Params(); ok {
		report.Params = params
	}
	return report
}
