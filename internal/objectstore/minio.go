package objectstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig configures a MinioStore.
type MinioConfig struct {
	// Endpoint is the host[:port] of the S3-compatible service.
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	// Secure selects https for both API calls and signed URLs.
	Secure bool
	// Transport overrides the HTTP transport used by the client.
	Transport http.RoundTripper
}

// MinioStore is a Store backed by any S3-compatible service reachable
// through minio-go. Buckets are always addressed path-style so that the
// public URL of an object is <scheme>://<endpoint>/<bucket>/<key>.
type MinioStore struct {
	client *minio.Client
	cfg    MinioConfig
}

// NewMinioStore creates a client for the configured endpoint. No network
// calls are made.
func NewMinioStore(cfg MinioConfig) (*MinioStore, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("minio: endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("minio: bucket is required")
	}

	// A known region keeps presigning local: without it minio-go looks up
	// the bucket location over the network.
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	if cfg.Transport == nil {
		cfg.Transport = defaultTransport()
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure:       cfg.Secure,
		Region:       cfg.Region,
		Transport:    cfg.Transport,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("minio: create client: %w", err)
	}

	return &MinioStore{client: client, cfg: cfg}, nil
}

func defaultTransport() http.RoundTripper {
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return http.DefaultTransport
	}
	clone := base.Clone()
	clone.MaxIdleConnsPerHost = 32
	clone.IdleConnTimeout = 90 * time.Second
	return clone
}

// Client exposes the underlying minio client.
func (s *MinioStore) Client() *minio.Client {
	return s.client
}

// Bucket returns the configured bucket name.
func (s *MinioStore) Bucket() string {
	return s.cfg.Bucket
}

// BaseURL returns the public-style URL prefix under which object keys live.
func (s *MinioStore) BaseURL() string {
	u := s.client.EndpointURL()
	return strings.TrimSuffix(u.String(), "/") + "/" + s.cfg.Bucket
}

// EnsureBucket checks if the bucket exists, and creates it if it does not.
// It returns true when the bucket was created.
func (s *MinioStore) EnsureBucket(ctx context.Context) (bool, error) {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return false, fmt.Errorf("check bucket %q: %w", s.cfg.Bucket, err)
	}
	if exists {
		return false, nil
	}

	if err := s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
		return false, fmt.Errorf("create bucket %q: %w", s.cfg.Bucket, err)
	}
	return true, nil
}

func (s *MinioStore) SignUpload(ctx context.Context, key string, contentType string, ttl time.Duration) (string, error) {
	headers := http.Header{}
	if contentType != "" {
		headers.Set("Content-Type", contentType)
	}

	u, err := s.client.PresignHeader(ctx, http.MethodPut, s.cfg.Bucket, key, ttl, url.Values{}, headers)
	if err != nil {
		return "", fmt.Errorf("presign put %q: %w", key, err)
	}
	return u.String(), nil
}

func (s *MinioStore) SignRead(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.cfg.Bucket, key, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign get %q: %w", key, err)
	}
	return u.String(), nil
}

func (s *MinioStore) HeadObject(ctx context.Context, key string) (ObjectInfo, error) {
	info, err := s.client.StatObject(ctx, s.cfg.Bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return ObjectInfo{}, fmt.Errorf("stat %q: %w", key, ErrNotExist)
		}
		return ObjectInfo{}, fmt.Errorf("stat %q: %w", key, err)
	}

	return ObjectInfo{
		Key:          info.Key,
		Size:         info.Size,
		ContentType:  info.ContentType,
		ETag:         info.ETag,
		LastModified: info.LastModified,
	}, nil
}

func (s *MinioStore) DeleteObject(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.cfg.Bucket, key, minio.RemoveObjectOptions{}); err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("remove %q: %w", key, err)
	}
	return nil
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	if resp.StatusCode == http.StatusNotFound {
		return true
	}
	switch resp.Code {
	case "NoSuchKey", "NotFound":
		return true
	}
	return false
}
