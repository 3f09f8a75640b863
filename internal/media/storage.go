// Package media stores profile photos in an S3-compatible bucket.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/xid"
)

var (
	ErrValidation = errors.New("media: invalid upload")
	ErrTooLarge   = errors.New("media: upload too large")
)

// publicReadPolicy lets anyone GET objects of the bucket so photo URLs can be
// embedded directly.
const publicReadPolicy = `{
  "Version": "2012-10-17",
  "Statement": [{
    "Effect": "Allow",
    "Principal": {"AWS": ["*"]},
    "Action": ["s3:GetObject"],
    "Resource": ["arn:aws:s3:::%s/*"]
  }]
}`

// objectClient is the subset of *minio.Client used here.
type objectClient interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	SetBucketPolicy(ctx context.Context, bucket, policy string) error
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type ClientConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// NewClient builds a MinIO client for the endpoint.
func NewClient(cfg ClientConfig) (*minio.Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return client, nil
}

// Storage is the photo bucket.
type Storage struct {
	client     objectClient
	bucket     string
	publicBase string
	maxBytes   int64

	mu    sync.Mutex
	ready bool
}

// Options configure a Storage.
type Options struct {
	Bucket string
	// PublicBaseURL is the scheme://host prefix of public URLs.
	PublicBaseURL string
	MaxBytes      int64
}

func NewStorage(client objectClient, opts Options) *Storage {
	return &Storage{
		client:     client,
		bucket:     strings.TrimSpace(opts.Bucket),
		publicBase: strings.TrimRight(opts.PublicBaseURL, "/"),
		maxBytes:   opts.MaxBytes,
	}
}

// PublicBaseURL derives the default public prefix from the endpoint.
func PublicBaseURL(endpoint string, useSSL bool) string {
	if useSSL {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}

// EnsureBucket creates the bucket with a public-read policy on first use.
// A failed check is retried by the next call.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	if s.bucket == "" {
		return fmt.Errorf("s3 bucket is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure s3 bucket %q: %w", s.bucket, err)
	}
	s.ready = true
	return nil
}

func (s *Storage) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return err
	}
	return s.client.SetBucketPolicy(ctx, s.bucket, fmt.Sprintf(publicReadPolicy, s.bucket))
}

// ObjectName is a random id followed by the lower-cased extension of filename.
func ObjectName(filename string) string {
	return xid.New().String() + strings.ToLower(filepath.Ext(filename))
}

// PublicURL returns the public address of an object in the bucket.
func (s *Storage) PublicURL(name string) string {
	return s.publicBase + "/" + s.bucket + "/" + name
}

// Upload stores a photo under a fresh object name and returns its public URL.
func (s *Storage) Upload(ctx context.Context, filename string, body io.Reader, size int64, contentType string) (string, error) {
	if body == nil || size <= 0 {
		return "", ErrValidation
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("%w: content type %q", ErrValidation, contentType)
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		return "", ErrTooLarge
	}
	if err := s.EnsureBucket(ctx); err != nil {
		return "", err
	}

	name := ObjectName(filename)
	_, err := s.client.PutObject(ctx, s.bucket, name, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object to s3: %w", err)
	}
	return s.PublicURL(name), nil
}
