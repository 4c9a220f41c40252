// Package objectstore archives documents to an S3 compatible bucket
// (MinIO, AWS S3, R2) with minio-go.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/papercomputeco/kbase/pkg/archive"
)

// Config holds configuration for the object store.
type Config struct {
	// Endpoint is host:port of the storage service; a scheme prefix is ignored.
	Endpoint string

	AccessKey string
	SecretKey string
	UseSSL    bool

	// Bucket receives the archived documents. It is created when missing.
	Bucket string

	// Region is the location of the bucket (e.g., us-east-1).
	Region string

	// Timeout bounds connection setup and the wait for response headers.
	// Defaults to 30s.
	Timeout time.Duration
}

// Client is the subset of *minio.Client the archiver needs.
type Client interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Archiver implements archive.Archiver over a bucket.
type Archiver struct {
	client Client
	bucket string
	logger *slog.Logger
}

// NewClient creates a minio client for cfg.
func NewClient(cfg Config) (*minio.Client, error) {
	// Minio expects endpoint without scheme
	endpoint := strings.TrimPrefix(cfg.Endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   timeout,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: timeout,
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return client, nil
}

// New connects to the object store and makes sure the bucket exists.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Archiver, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("archive endpoint is required")
	}

	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithClient(ctx, client, cfg.Bucket, cfg.Region, logger)
}

// NewWithClient builds an archiver over an existing client, creating
// bucket in region when it does not exist yet.
func NewWithClient(ctx context.Context, client Client, bucket, region string, logger *slog.Logger) (*Archiver, error) {
	if bucket == "" {
		return nil, errors.New("archive bucket is required")
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("checking bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, fmt.Errorf("creating bucket %s: %w", bucket, err)
		}
		logger.Info("created archive bucket", "bucket", bucket)
	}

	return &Archiver{client: client, bucket: bucket, logger: logger}, nil
}

// Put uploads r to the bucket under key.
func (a *Archiver) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	info, err := a.client.PutObject(ctx, a.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("archiving %s: %w", key, err)
	}

	a.logger.Debug("archived document",
		"bucket", a.bucket,
		"key", key,
		"size", info.Size,
	)
	return nil
}

// Close is a no-op; minio clients hold no resources beyond idle connections.
func (a *Archiver) Close() error {
	return nil
}

var _ archive.Archiver = (*Archiver)(nil)
