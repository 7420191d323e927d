// Package storage keeps product images and archived exchange documents in
// S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/erp/exchange/internal/domain/exchange"
	infraconfig "github.com/erp/exchange/internal/infrastructure/config"
)

var (
	_ exchange.MediaStore      = (*S3Storage)(nil)
	_ exchange.DocumentArchive = (*S3Storage)(nil)
)

// objectAPI is the part of *s3.Client the storage uses.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, opts ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, opts ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// presignAPI is the part of *s3.PresignClient the storage uses.
type presignAPI interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Storage stores media under MediaPrefix and archived documents under
// ArchivePrefix of one bucket.
type S3Storage struct {
	client            objectAPI
	presign           presignAPI
	bucket            string
	publicURL         string
	mediaPrefix       string
	archivePrefix     string
	presignExpiration time.Duration
	logger            *zap.Logger
	now               func() time.Time
}

// S3StorageOption configures an S3Storage.
type S3StorageOption func(*S3Storage)

// WithLogger sets a custom logger for S3Storage
func WithLogger(logger *zap.Logger) S3StorageOption {
	return func(s *S3Storage) {
		s.logger = logger
	}
}

// WithPresignExpiration sets how long generated media links stay valid.
func WithPresignExpiration(d time.Duration) S3StorageOption {
	return func(s *S3Storage) {
		s.presignExpiration = d
	}
}

// WithClock overrides the time source used for archive keys.
func WithClock(now func() time.Time) S3StorageOption {
	return func(s *S3Storage) {
		s.now = now
	}
}

// NewS3Storage builds an S3Storage from configuration. It works with any
// S3-compatible backend (AWS S3, MinIO, RustFS).
func NewS3Storage(cfg *infraconfig.StorageConfig, opts ...S3StorageOption) (*S3Storage, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKey == "" {
		return nil, errors.New("storage access key is required")
	}
	if cfg.SecretKey == "" {
		return nil, errors.New("storage secret key is required")
	}

	endpoint, err := normalizeEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		o.BaseEndpoint = aws.String(endpoint)
	})

	s := newS3Storage(client, s3.NewPresignClient(client), cfg)
	for _, opt := range opts {
		opt(s)
	}
	if s.presignExpiration <= 0 {
		s.presignExpiration = 24 * time.Hour
	}
	return s, nil
}

func newS3Storage(client objectAPI, presign presignAPI, cfg *infraconfig.StorageConfig) *S3Storage {
	return &S3Storage{
		client:            client,
		presign:           presign,
		bucket:            cfg.Bucket,
		publicURL:         strings.TrimRight(cfg.PublicURL, "/"),
		mediaPrefix:       strings.Trim(cfg.MediaPrefix, "/"),
		archivePrefix:     strings.Trim(cfg.ArchivePrefix, "/"),
		presignExpiration: cfg.PresignExpiration,
		logger:            zap.NewNop(),
		now:               time.Now,
	}
}

func normalizeEndpoint(endpoint string, useSSL bool) (string, error) {
	if endpoint == "" {
		endpoint = "localhost:9000"
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if useSSL {
			endpoint = "https://" + endpoint
		} else {
			endpoint = "http://" + endpoint
		}
	}
	if _, err := url.Parse(endpoint); err != nil {
		return "", fmt.Errorf("invalid storage endpoint: %w", err)
	}
	return endpoint, nil
}

// EnsureBucket creates the bucket if it does not exist yet.
func (s *S3Storage) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}
	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("Creating storage bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Put uploads a product image and returns where it can be fetched. With a
// public URL configured the link is permanent, otherwise it is presigned.
func (s *S3Storage) Put(ctx context.Context, key string, body io.Reader, contentType string) (exchange.MediaRef, error) {
	if key == "" {
		return exchange.MediaRef{}, errors.New("storage key is required")
	}
	fullKey := joinKey(s.mediaPrefix, key)
	if err := s.upload(ctx, fullKey, body, contentType); err != nil {
		return exchange.MediaRef{}, err
	}

	link, err := s.mediaURL(ctx, fullKey)
	if err != nil {
		return exchange.MediaRef{}, err
	}
	s.logger.Debug("Stored media object", zap.String("key", fullKey))
	return exchange.MediaRef{Key: fullKey, URL: link}, nil
}

// Archive stores a copy of an imported document under a date-partitioned
// key so repeated uploads of the same name never overwrite each other.
func (s *S3Storage) Archive(ctx context.Context, name string, body []byte) error {
	now := s.now().UTC()
	key := joinKey(s.archivePrefix, now.Format("2006/01/02"),
		now.Format("150405.000")+"_"+path.Base(name))
	if err := s.upload(ctx, key, bytes.NewReader(body), "application/xml"); err != nil {
		return err
	}
	s.logger.Info("Archived exchange document",
		zap.String("name", name),
		zap.String("key", key),
		zap.Int("bytes", len(body)),
	)
	return nil
}

// Bucket returns the bucket name
func (s *S3Storage) Bucket() string {
	return s.bucket
}

func (s *S3Storage) upload(ctx context.Context, key string, body io.Reader, contentType string) error {
	// request signing needs a seekable body
	rs, ok := body.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(body)
		if err != nil {
			return fmt.Errorf("failed to read object %s: %w", key, err)
		}
		rs = bytes.NewReader(data)
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        rs,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %s: %w", key, err)
	}
	return nil
}

func (s *S3Storage) mediaURL(ctx context.Context, key string) (string, error) {
	if s.publicURL != "" {
		return s.publicURL + "/" + key, nil
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.presignExpiration))
	if err != nil {
		return "", fmt.Errorf("failed to generate download URL: %w", err)
	}
	return req.URL, nil
}

func joinKey(parts ...string) string {
	nonEmpty := parts[:0:0]
	for _, p := range parts {
		if p = strings.Trim(p, "/"); p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "/")
}
