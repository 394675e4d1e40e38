package sink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/justapithecus/ingot/bridge"
	"github.com/justapithecus/ingot/types"
)

const defaultUploadTimeout = 30 * time.Second

// S3Client is the subset of the AWS S3 API the sink uses.
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config configures an S3 segment archiver.
type S3Config struct {
	// Bucket is the destination bucket (required).
	Bucket string
	// Prefix is the key prefix within the bucket (optional).
	Prefix string
	// Region is the AWS region. Empty uses the default chain.
	Region string
	// Endpoint is a custom S3 endpoint URL for S3-compatible providers
	// (e.g. Cloudflare R2, MinIO). Empty uses the default AWS endpoint.
	Endpoint string
	// UsePathStyle forces path-style addressing (bucket in path, not
	// subdomain). Required by most S3-compatible providers.
	UsePathStyle bool
	// Stream identifies the stream; its fields appear in object keys.
	Stream types.StreamMeta
	// SegmentBytes is the upload threshold. Zero means
	// DefaultSegmentBytes.
	SegmentBytes int64
	// UploadTimeout bounds the final upload during Close, which has no
	// caller context. Zero means 30s.
	UploadTimeout time.Duration
}

func (c S3Config) validate() error {
	if c.Bucket == "" {
		return errors.New("s3 sink: bucket is required")
	}
	if c.SegmentBytes < 0 {
		return fmt.Errorf("s3 sink: segment bytes %d is negative", c.SegmentBytes)
	}
	return nil
}

// S3 accumulates packets into an in-memory segment and uploads each
// finished segment with a single PutObject. Objects land at
// <prefix>/<stream_id>/<session_id>/segment-NNNNNN.vrt.
// Push is not safe for concurrent use; the pipeline delivers serially.
type S3 struct {
	client        S3Client
	bucket        string
	prefix        string
	stream        types.StreamMeta
	limit         int64
	uploadTimeout time.Duration

	buf     bytes.Buffer
	segment int
	closed  bool
}

var _ bridge.PacketSink = (*S3)(nil)

// NewS3 builds the sink over a real S3 client. Credential resolution
// follows the SDK default chain (env vars, shared config, IAM role).
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3 sink: load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	return NewS3WithClient(s3.NewFromConfig(awsConfig, s3Opts...), cfg)
}

// NewS3WithClient builds the sink over an existing client.
func NewS3WithClient(client S3Client, cfg S3Config) (*S3, error) {
	if client == nil {
		return nil, errors.New("s3 sink: client is required")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	limit := cfg.SegmentBytes
	if limit == 0 {
		limit = DefaultSegmentBytes
	}
	timeout := cfg.UploadTimeout
	if timeout == 0 {
		timeout = defaultUploadTimeout
	}
	return &S3{
		client:        client,
		bucket:        cfg.Bucket,
		prefix:        strings.Trim(cfg.Prefix, "/"),
		stream:        cfg.Stream,
		limit:         limit,
		uploadTimeout: timeout,
	}, nil
}

// Push appends the packet to the open segment, uploading first when
// the segment would grow past the threshold. Upload failures are
// fatal.
func (s *S3) Push(ctx context.Context, packet []byte) error {
	if s.closed {
		return errors.New("s3 sink: closed")
	}
	if s.buf.Len() > 0 && int64(s.buf.Len()+len(packet)) > s.limit {
		if err := s.upload(ctx); err != nil {
			return err
		}
	}
	s.buf.Write(packet)
	return nil
}

func (s *S3) upload(ctx context.Context) error {
	key := s.key(s.segment)
	contentType := "application/octet-stream"
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        bytes.NewReader(s.buf.Bytes()),
		ContentType: &contentType,
	})
	if err != nil {
		return fmt.Errorf("s3 sink: put s3://%s/%s: %w", s.bucket, key, err)
	}
	s.segment++
	s.buf.Reset()
	return nil
}

func (s *S3) key(segment int) string {
	parts := make([]string, 0, 4)
	if s.prefix != "" {
		parts = append(parts, s.prefix)
	}
	parts = append(parts, strconv.FormatUint(uint64(s.stream.StreamID), 10))
	if s.stream.SessionID != "" {
		parts = append(parts, s.stream.SessionID)
	}
	parts = append(parts, segmentName(segment))
	return strings.Join(parts, "/")
}

// Close uploads whatever remains in the open segment.
func (s *S3) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.buf.Len() == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.uploadTimeout)
	defer cancel()
	return s.upload(ctx)
}
