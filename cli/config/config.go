package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/justapithecus/ingot/log"
	"github.com/justapithecus/ingot/types"
	"github.com/justapithecus/ingot/vrt"
)

// Config represents an ingot.yaml configuration file. One file
// describes one stream session end to end: identity and packet shape,
// initial radio parameters, source and sink, delivery policy, and
// lifecycle notification targets.
type Config struct {
	Stream   StreamConfig      `yaml:"stream"`
	Params   types.RadioParams `yaml:"params"`
	Source   SourceConfig      `yaml:"source"`
	Sink     SinkConfig        `yaml:"sink"`
	Delivery DeliveryConfig    `yaml:"delivery"`
	Adapters AdaptersConfig    `yaml:"adapters"`
	Log      LogConfig         `yaml:"log"`
}

// StreamConfig holds stream identity and packet shape.
type StreamConfig struct {
	// ID is the VRT stream identifier (required, non-zero).
	ID uint32 `yaml:"id"`
	// Session names this run. Empty generates a random session ID.
	Session string `yaml:"session"`
	// Format is the sample format: ci16, ci32, or cf32 (required).
	Format string `yaml:"format"`
	// TSI is the integer-seconds timestamp mode: none, utc, gps, or
	// other. Empty means none.
	TSI string `yaml:"tsi"`
	// TSF is the fractional-seconds timestamp mode: none, count, real,
	// or free. Must be set explicitly.
	TSF string `yaml:"tsf"`
	// MaxPayloadWords bounds data packet payloads. Zero applies the
	// pipeline default.
	MaxPayloadWords int `yaml:"max_payload_words"`
	// Trailer adds a state trailer to every data packet. Omitted means
	// enabled.
	Trailer *bool `yaml:"trailer"`
	// ClassID optionally attaches a class identifier to every packet.
	ClassID *ClassIDConfig `yaml:"class_id"`
	// Heartbeat sets the context refresh cadence. Zero values disable
	// the respective trigger.
	Heartbeat HeartbeatConfig `yaml:"heartbeat"`
}

// TrailerEnabled reports the effective trailer setting.
func (s StreamConfig) TrailerEnabled() bool {
	return s.Trailer == nil || *s.Trailer
}

// ClassIDConfig is the optional VRT class identifier.
type ClassIDConfig struct {
	OUI         uint32 `yaml:"oui"`
	InfoClass   uint16 `yaml:"info_class"`
	PacketClass uint16 `yaml:"packet_class"`
}

// HeartbeatConfig sets how often an unchanged context is re-announced.
type HeartbeatConfig struct {
	// Packets re-emits context every N data packets.
	Packets int `yaml:"packets"`
	// Interval re-emits context after this long, whichever comes first.
	Interval Duration `yaml:"interval"`
}

// SourceConfig selects and configures the sample source.
type SourceConfig struct {
	// Kind is one of synth, wav, capture, udp, or pcap (required).
	Kind    string              `yaml:"kind"`
	Synth   SynthSourceConfig   `yaml:"synth"`
	WAV     WAVSourceConfig     `yaml:"wav"`
	Capture CaptureSourceConfig `yaml:"capture"`
	UDP     UDPSourceConfig     `yaml:"udp"`
	Pcap    PcapSourceConfig    `yaml:"pcap"`
}

// SynthSourceConfig configures the synthetic tone generator.
type SynthSourceConfig struct {
	ToneHz     float64 `yaml:"tone_hz"`
	Amplitude  float64 `yaml:"amplitude"`
	Pairs      int64   `yaml:"pairs"`
	ChunkPairs int     `yaml:"chunk_pairs"`
}

// WAVSourceConfig configures stereo WAV file replay.
type WAVSourceConfig struct {
	Path       string `yaml:"path"`
	ChunkPairs int    `yaml:"chunk_pairs"`
}

// CaptureSourceConfig configures .iqc capture container replay.
type CaptureSourceConfig struct {
	Path string `yaml:"path"`
	Pace bool   `yaml:"pace"`
}

// UDPSourceConfig configures the live UDP listener.
type UDPSourceConfig struct {
	Listen     string `yaml:"listen"`
	QueueDepth int    `yaml:"queue"`
	ReadBuffer int    `yaml:"read_buffer"`
}

// PcapSourceConfig configures pcap file replay.
type PcapSourceConfig struct {
	Path string `yaml:"path"`
	Port int    `yaml:"port"`
	Pace bool   `yaml:"pace"`
}

// SinkConfig selects and configures the packet sink.
type SinkConfig struct {
	// Kind is one of udp, file, s3, or noop (required).
	Kind string         `yaml:"kind"`
	UDP  UDPSinkConfig  `yaml:"udp"`
	File FileSinkConfig `yaml:"file"`
	S3   S3SinkConfig   `yaml:"s3"`
}

// UDPSinkConfig configures the UDP sender.
type UDPSinkConfig struct {
	Address      string   `yaml:"address"`
	TTL          int      `yaml:"ttl"`
	Interface    string   `yaml:"interface"`
	PaceInterval Duration `yaml:"pace_interval"`
}

// FileSinkConfig configures the rotating segment writer.
type FileSinkConfig struct {
	Dir          string `yaml:"dir"`
	SegmentBytes int64  `yaml:"segment_bytes"`
}

// S3SinkConfig configures the S3 segment archiver.
type S3SinkConfig struct {
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	PathStyle    bool   `yaml:"path_style"`
	SegmentBytes int64  `yaml:"segment_bytes"`
}

// DeliveryConfig bounds packet delivery. Zero values apply pipeline
// defaults.
type DeliveryConfig struct {
	MaxPending    int      `yaml:"max_pending"`
	PushTimeout   Duration `yaml:"push_timeout"`
	RetryBackoff  Duration `yaml:"retry_backoff"`
	ShutdownGrace Duration `yaml:"shutdown_grace"`
}

// AdaptersConfig lists lifecycle notification targets. Both are
// optional.
type AdaptersConfig struct {
	Redis   *RedisAdapterConfig   `yaml:"redis"`
	Webhook *WebhookAdapterConfig `yaml:"webhook"`
}

// RedisAdapterConfig configures the Redis pub/sub adapter.
type RedisAdapterConfig struct {
	URL     string   `yaml:"url"`
	Channel string   `yaml:"channel"`
	Timeout Duration `yaml:"timeout"`
	Retries *int     `yaml:"retries"`
}

// WebhookAdapterConfig configures the webhook adapter.
type WebhookAdapterConfig struct {
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`
	Timeout Duration          `yaml:"timeout"`
	Retries *int              `yaml:"retries"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is one of debug, info, warn, or error. Empty means info.
	Level string `yaml:"level"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Validate checks the configuration the way the pipeline will consume
// it, so everything wrong with a file surfaces before any adapter is
// constructed.
func (c *Config) Validate() error {
	if err := c.Stream.validate(); err != nil {
		return err
	}
	if err := c.Source.validate(c.Params); err != nil {
		return err
	}
	if err := c.Sink.validate(); err != nil {
		return err
	}
	if err := c.Delivery.validate(); err != nil {
		return err
	}
	if err := c.Adapters.validate(); err != nil {
		return err
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}

func (s StreamConfig) validate() error {
	if s.ID == 0 {
		return errors.New("stream: id is required")
	}
	if _, err := types.ParseSampleFormat(s.Format); err != nil {
		return fmt.Errorf("stream: %w", err)
	}
	if s.TSI != "" {
		if _, err := vrt.ParseTSI(s.TSI); err != nil {
			return fmt.Errorf("stream: %w", err)
		}
	}
	if s.TSF == "" {
		return errors.New("stream: tsf must be set explicitly")
	}
	if _, err := vrt.ParseTSF(s.TSF); err != nil {
		return fmt.Errorf("stream: %w", err)
	}
	if s.MaxPayloadWords < 0 {
		return fmt.Errorf("stream: max_payload_words %d is negative", s.MaxPayloadWords)
	}
	if s.Heartbeat.Packets < 0 {
		return fmt.Errorf("stream: heartbeat packets %d is negative", s.Heartbeat.Packets)
	}
	if s.Heartbeat.Interval.Duration < 0 {
		return fmt.Errorf("stream: heartbeat interval %v is negative", s.Heartbeat.Interval.Duration)
	}
	return nil
}

func (s SourceConfig) validate(params types.RadioParams) error {
	switch s.Kind {
	case "synth":
		if params.SampleRateHz <= 0 {
			return errors.New("source: synth requires params.sample_rate_hz > 0")
		}
	case "wav":
		if s.WAV.Path == "" {
			return errors.New("source: wav requires a path")
		}
	case "capture":
		if s.Capture.Path == "" {
			return errors.New("source: capture requires a path")
		}
	case "udp":
		if s.UDP.Listen == "" {
			return errors.New("source: udp requires a listen address")
		}
		if params.SampleRateHz <= 0 {
			return errors.New("source: udp requires params.sample_rate_hz > 0")
		}
	case "pcap":
		if s.Pcap.Path == "" {
			return errors.New("source: pcap requires a path")
		}
		if params.SampleRateHz <= 0 {
			return errors.New("source: pcap requires params.sample_rate_hz > 0")
		}
	case "":
		return errors.New("source: kind is required")
	default:
		return fmt.Errorf("source: unknown kind %q (want synth, wav, capture, udp, or pcap)", s.Kind)
	}
	return nil
}

func (s SinkConfig) validate() error {
	switch s.Kind {
	case "udp":
		if s.UDP.Address == "" {
			return errors.New("sink: udp requires an address")
		}
	case "file":
		if s.File.Dir == "" {
			return errors.New("sink: file requires a dir")
		}
	case "s3":
		if s.S3.Bucket == "" {
			return errors.New("sink: s3 requires a bucket")
		}
	case "noop":
	case "":
		return errors.New("sink: kind is required")
	default:
		return fmt.Errorf("sink: unknown kind %q (want udp, file, s3, or noop)", s.Kind)
	}
	return nil
}

func (d DeliveryConfig) validate() error {
	if d.MaxPending < 0 {
		return fmt.Errorf("delivery: max_pending %d is negative", d.MaxPending)
	}
	if d.PushTimeout.Duration < 0 {
		return fmt.Errorf("delivery: push_timeout %v is negative", d.PushTimeout.Duration)
	}
	if d.RetryBackoff.Duration < 0 {
		return fmt.Errorf("delivery: retry_backoff %v is negative", d.RetryBackoff.Duration)
	}
	if d.ShutdownGrace.Duration < 0 {
		return fmt.Errorf("delivery: shutdown_grace %v is negative", d.ShutdownGrace.Duration)
	}
	return nil
}

func (a AdaptersConfig) validate() error {
	if a.Redis != nil && a.Redis.URL == "" {
		return errors.New("adapters: redis requires a url")
	}
	if a.Webhook != nil && a.Webhook.URL == "" {
		return errors.New("adapters: webhook requires a url")
	}
	return nil
}
