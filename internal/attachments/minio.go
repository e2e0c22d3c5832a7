package attachments

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"example.com/tripplanner/internal/domain"
)

// Config describes the object storage connection.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// ExternalEndpoint, when set, is the host used in presigned URLs handed to browsers.
	ExternalEndpoint string
	URLExpiry        time.Duration
}

// Store keeps attachment bytes in a MinIO or S3 bucket.
type Store struct {
	client *minio.Client
	signer *minio.Client
	bucket string
	urlTTL time.Duration
}

var _ domain.ObjectStore = (*Store)(nil)

// NewStore connects to the bucket, creating it when missing.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("object storage endpoint and bucket are required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	signer := client
	if host, secure, ok := externalHost(cfg.ExternalEndpoint, cfg.UseSSL); ok && host != cfg.Endpoint {
		signer, err = minio.New(host, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: secure,
			// Presigning must not probe the bucket region through the external host.
			Region: "us-east-1",
		})
		if err != nil {
			return nil, err
		}
	}

	ttl := cfg.URLExpiry
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Store{client: client, signer: signer, bucket: cfg.Bucket, urlTTL: ttl}, nil
}

func externalHost(raw string, fallbackSecure bool) (string, bool, bool) {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return "", false, false
	case strings.HasPrefix(raw, "https://"):
		return strings.TrimPrefix(raw, "https://"), true, true
	case strings.HasPrefix(raw, "http://"):
		return strings.TrimPrefix(raw, "http://"), false, true
	default:
		return raw, fallbackSecure, true
	}
}

// Put uploads body under key.
func (s *Store) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Remove deletes the object stored under key.
func (s *Store) Remove(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

// URL returns a presigned download URL that serves the object inline under filename.
func (s *Store) URL(ctx context.Context, key, filename string) (string, error) {
	params := make(url.Values)
	params.Set("response-content-disposition", contentDisposition(filename))
	u, err := s.signer.PresignedGetObject(ctx, s.bucket, key, s.urlTTL, params)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return u.String(), nil
}

func contentDisposition(filename string) string {
	return fmt.Sprintf("inline; filename=%q", domain.SanitizeFilename(filename))
}
