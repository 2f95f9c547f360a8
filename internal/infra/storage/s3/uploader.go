package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var ErrNotConfigured = errors.New("s3: uploader is not configured")

// Uploader stores binary content and returns the URL clients fetch it from.
type Uploader interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (publicURL string, err error)
}

type Config struct {
	Endpoint       string
	PublicEndpoint string
	AccessKey      string
	SecretKey      string
	Bucket         string
	UseSSL         bool
}

// Client uploads avatars to a MinIO or S3 bucket that it creates on first use.
type Client struct {
	api     *minio.Client
	bucket  string
	baseURL string
	logger  *slog.Logger

	mu    sync.Mutex
	ready bool
}

func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	bucket := strings.TrimSpace(cfg.Bucket)
	switch {
	case endpoint == "":
		return nil, errors.New("s3: endpoint is required")
	case bucket == "":
		return nil, errors.New("s3: bucket is required")
	}
	api, err := minio.New(hostOf(endpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(cfg.AccessKey), strings.TrimSpace(cfg.SecretKey), ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: create client: %w", err)
	}
	public := strings.TrimSpace(cfg.PublicEndpoint)
	if public == "" {
		public = endpoint
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{api: api, bucket: bucket, baseURL: strings.TrimRight(public, "/"), logger: logger}, nil
}

func (c *Client) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	key = strings.Trim(strings.TrimSpace(key), "/")
	switch {
	case reader == nil:
		return "", errors.New("s3: reader is required")
	case key == "":
		return "", errors.New("s3: object key is required")
	}
	if err := c.prepareBucket(ctx); err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if size <= 0 {
		size = -1
	}
	info, err := c.api.PutObject(ctx, c.bucket, key, reader, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("s3: put %s: %w", key, err)
	}
	link := objectURL(c.baseURL, c.bucket, key)
	c.logger.Info("avatar stored", "bucket", c.bucket, "key", key, "size", info.Size)
	return link, nil
}

// Ping reports whether the bucket is reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.api.BucketExists(ctx, c.bucket)
	return err
}

// NoopUploader is used when no object storage is configured.
type NoopUploader struct{}

func (NoopUploader) Upload(context.Context, string, io.Reader, int64, string) (string, error) {
	return "", ErrNotConfigured
}

func hostOf(endpoint string) string {
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		return u.Host
	}
	return endpoint
}

func objectURL(base, bucket, key string) string {
	return base + "/" + bucket + "/" + key
}

var (
	_ Uploader = (*Client)(nil)
	_ Uploader = NoopUploader{}
)
