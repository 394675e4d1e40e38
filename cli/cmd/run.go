package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/ingot/adapter"
	"github.com/justapithecus/ingot/adapter/redis"
	"github.com/justapithecus/ingot/adapter/webhook"
	"github.com/justapithecus/ingot/bridge"
	"github.com/justapithecus/ingot/cli/config"
	"github.com/justapithecus/ingot/iox"
	"github.com/justapithecus/ingot/log"
	"github.com/justapithecus/ingot/metrics"
	"github.com/justapithecus/ingot/sink"
	"github.com/justapithecus/ingot/source"
	"github.com/justapithecus/ingot/types"
	"github.com/justapithecus/ingot/vrt"
)

// Exit codes for the run command.
const (
	// exitSuccess covers completed and canceled sessions: a clean
	// shutdown on signal is not a failure.
	exitSuccess = 0
	// exitConfigError means the session never started.
	exitConfigError = 1
	// exitPipelineFatal means the stream halted mid-session.
	exitPipelineFatal = 2
)

// RunCommand returns the run command, the only command that executes a
// stream session.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Run one stream session from a config file",
		ArgsUsage: " ",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "Path to the session config file",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "Suppress the report printout",
			},
		},
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	if err := cfg.Validate(); err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	meta := streamMeta(cfg)
	logger := log.NewLogger(&meta).WithLevel(cfg.Log.Level)

	bridgeConfig, err := toBridgeConfig(cfg, meta)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	src, err := buildSource(cfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("source: %v", err), exitConfigError)
	}
	defer iox.DiscardClose(src)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snk, err := buildSink(ctx, cfg, meta)
	if err != nil {
		return cli.Exit(fmt.Sprintf("sink: %v", err), exitConfigError)
	}
	defer iox.DiscardClose(snk)

	adapters, err := buildAdapters(cfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("adapters: %v", err), exitConfigError)
	}
	defer func() {
		for _, a := range adapters {
			iox.DiscardClose(a)
		}
	}()

	bridgeConfig.Source = src
	bridgeConfig.Sink = snk
	bridgeConfig.Adapters = adapters
	bridgeConfig.Collector = metrics.NewCollector(cfg.Source.Kind, cfg.Sink.Kind, meta.StreamID, meta.SessionID)
	bridgeConfig.Logger = logger

	b, err := bridge.New(bridgeConfig)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancel()
	}()

	report, err := b.Run(ctx)
	if err != nil {
		return cli.Exit(fmt.Sprintf("run: %v", err), exitPipelineFatal)
	}

	if !c.Bool("quiet") {
		printReport(report)
	}
	return cli.Exit("", outcomeToExitCode(report.Outcome.Status))
}

// streamMeta builds the session identity. An omitted session name gets
// a fresh UUID so every run is distinguishable in logs, events, and
// archive paths.
func streamMeta(cfg *config.Config) types.StreamMeta {
	session := cfg.Stream.Session
	if session == "" {
		session = uuid.NewString()
	}
	return types.StreamMeta{StreamID: cfg.Stream.ID, SessionID: session}
}

// toBridgeConfig maps the validated file config onto the pipeline
// config, leaving the injected ports (source, sink, adapters,
// collector, logger) for the caller.
func toBridgeConfig(cfg *config.Config, meta types.StreamMeta) (*bridge.Config, error) {
	format, err := types.ParseSampleFormat(cfg.Stream.Format)
	if err != nil {
		return nil, err
	}
	tsi := vrt.TSINone
	if cfg.Stream.TSI != "" {
		if tsi, err = vrt.ParseTSI(cfg.Stream.TSI); err != nil {
			return nil, err
		}
	}
	tsf, err := vrt.ParseTSF(cfg.Stream.TSF)
	if err != nil {
		return nil, err
	}

	var classID *vrt.ClassID
	if cc := cfg.Stream.ClassID; cc != nil {
		classID = &vrt.ClassID{
			OUI:         cc.OUI,
			InfoClass:   cc.InfoClass,
			PacketClass: cc.PacketClass,
		}
	}

	return &bridge.Config{
		Stream:            meta,
		Format:            format,
		ClassID:           classID,
		TSI:               tsi,
		TSF:               tsf,
		MaxPayloadWords:   cfg.Stream.MaxPayloadWords,
		TrailerEnabled:    cfg.Stream.TrailerEnabled(),
		HeartbeatPackets:  cfg.Stream.Heartbeat.Packets,
		HeartbeatInterval: cfg.Stream.Heartbeat.Interval.Duration,
		MaxPending:        cfg.Delivery.MaxPending,
		PushTimeout:       cfg.Delivery.PushTimeout.Duration,
		RetryBackoff:      cfg.Delivery.RetryBackoff.Duration,
		ShutdownGrace:     cfg.Delivery.ShutdownGrace.Duration,
	}, nil
}

func buildSource(cfg *config.Config) (bridge.SampleSource, error) {
	switch cfg.Source.Kind {
	case "synth":
		return source.NewSynth(source.SynthConfig{
			Params:     cfg.Params,
			ToneHz:     cfg.Source.Synth.ToneHz,
			Amplitude:  cfg.Source.Synth.Amplitude,
			ChunkPairs: cfg.Source.Synth.ChunkPairs,
			TotalPairs: cfg.Source.Synth.Pairs,
		})
	case "wav":
		return source.NewWAV(source.WAVConfig{
			Path:       cfg.Source.WAV.Path,
			Params:     cfg.Params,
			ChunkPairs: cfg.Source.WAV.ChunkPairs,
		})
	case "capture":
		return source.NewCapture(source.CaptureConfig{
			Path: cfg.Source.Capture.Path,
			Pace: cfg.Source.Capture.Pace,
		})
	case "udp":
		format, err := types.ParseSampleFormat(cfg.Stream.Format)
		if err != nil {
			return nil, err
		}
		return source.NewUDP(source.UDPConfig{
			Listen:     cfg.Source.UDP.Listen,
			Format:     format,
			Params:     cfg.Params,
			QueueDepth: cfg.Source.UDP.QueueDepth,
			ReadBuffer: cfg.Source.UDP.ReadBuffer,
		})
	case "pcap":
		format, err := types.ParseSampleFormat(cfg.Stream.Format)
		if err != nil {
			return nil, err
		}
		return source.NewPcap(source.PcapConfig{
			Path:   cfg.Source.Pcap.Path,
			Port:   cfg.Source.Pcap.Port,
			Format: format,
			Params: cfg.Params,
			Pace:   cfg.Source.Pcap.Pace,
		})
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
	}
}

func buildSink(ctx context.Context, cfg *config.Config, meta types.StreamMeta) (bridge.PacketSink, error) {
	switch cfg.Sink.Kind {
	case "udp":
		return sink.NewUDP(sink.UDPConfig{
			Target:             cfg.Sink.UDP.Address,
			MulticastTTL:       cfg.Sink.UDP.TTL,
			MulticastInterface: cfg.Sink.UDP.Interface,
			MinInterval:        cfg.Sink.UDP.PaceInterval.Duration,
		})
	case "file":
		return sink.NewFile(sink.FileConfig{
			Dir:          cfg.Sink.File.Dir,
			SegmentBytes: cfg.Sink.File.SegmentBytes,
		})
	case "s3":
		return sink.NewS3(ctx, sink.S3Config{
			Bucket:       cfg.Sink.S3.Bucket,
			Prefix:       cfg.Sink.S3.Prefix,
			Region:       cfg.Sink.S3.Region,
			Endpoint:     cfg.Sink.S3.Endpoint,
			UsePathStyle: cfg.Sink.S3.PathStyle,
			Stream:       meta,
			SegmentBytes: cfg.Sink.S3.SegmentBytes,
		})
	case "noop":
		return sink.NewNoop(), nil
	default:
		return nil, fmt.Errorf("unknown sink kind %q", cfg.Sink.Kind)
	}
}

func buildAdapters(cfg *config.Config) ([]adapter.Adapter, error) {
	var adapters []adapter.Adapter
	if rc := cfg.Adapters.Redis; rc != nil {
		retries := redis.DefaultRetries
		if rc.Retries != nil {
			retries = *rc.Retries
		}
		a, err := redis.New(redis.Config{
			URL:     rc.URL,
			Channel: rc.Channel,
			Timeout: rc.Timeout.Duration,
			Retries: retries,
		})
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}
	if wc := cfg.Adapters.Webhook; wc != nil {
		retries := webhook.DefaultRetries
		if wc.Retries != nil {
			retries = *wc.Retries
		}
		a, err := webhook.New(webhook.Config{
			URL:     wc.URL,
			Headers: wc.Headers,
			Timeout: wc.Timeout.Duration,
			Retries: retries,
		})
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}
	return adapters, nil
}

func outcomeToExitCode(status types.OutcomeStatus) int {
	switch status {
	case types.OutcomeCompleted, types.OutcomeCanceled:
		return exitSuccess
	default:
		return exitPipelineFatal
	}
}

func printReport(report *bridge.Report) {
	fmt.Printf("\nstream=%d session=%s outcome=%s duration=%s\n",
		report.Stream.StreamID,
		report.Stream.SessionID,
		report.Outcome.Status,
		report.Duration.Round(time.Millisecond),
	)
	if report.Outcome.Message != "" {
		fmt.Printf("message: %s\n", report.Outcome.Message)
	}

	m := report.Metrics
	fmt.Printf("\n=== Input ===\n")
	fmt.Printf("Chunks:       %d\n", m.ChunksIn)
	fmt.Printf("Skipped:      %d\n", m.ChunksSkipped)
	fmt.Printf("Pairs:        %d\n", m.PairsIn)
	fmt.Printf("Bytes:        %d\n", m.BytesIn)

	fmt.Printf("\n=== Packets ===\n")
	fmt.Printf("Data:         %d\n", m.DataPackets)
	fmt.Printf("Context:      %d\n", m.ContextPackets)
	fmt.Printf("Heartbeats:   %d\n", m.HeartbeatCtx)

	fmt.Printf("\n=== Delivery ===\n")
	fmt.Printf("Packets:      %d\n", m.PacketsDelivered)
	fmt.Printf("Bytes:        %d\n", m.BytesDelivered)
	fmt.Printf("Retries:      %d\n", m.BackpressureRetries)
	fmt.Printf("Max Pending:  %d\n", m.MaxPendingObserved)

	if m.Discontinuities > 0 || m.AdapterPublishErrors > 0 {
		fmt.Printf("\n=== Anomalies ===\n")
		fmt.Printf("Discontinuities: %d\n", m.Discontinuities)
		fmt.Printf("Adapter Errors:  %d\n", m.AdapterPublishErrors)
	}

	fmt.Printf("\n=== Last Params ===\n")
	fmt.Printf("Center Freq:  %.0f Hz\n", report.Params.CenterFrequencyHz)
	fmt.Printf("Sample Rate:  %.0f Hz\n", report.Params.SampleRateHz)
	fmt.Printf("Bandwidth:    %.0f Hz\n", report.Params.BandwidthHz)
	fmt.Printf("Gain:         %.1f dB\n", report.Params.GainDB)
	fmt.Printf("Ref Level:    %.1f dBm\n", report.Params.ReferenceLevelDBm)
}
