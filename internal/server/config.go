package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"healthtrack/internal/attachment"
	"healthtrack/internal/auth"
)

type Config struct {
	Records       RecordStore
	Attachments   *attachment.Service
	Authenticator auth.AuthEngine

	// ObjectsPath and Objects mount an object store handler that is reached
	// through signed URLs rather than API credentials.
	ObjectsPath string
	Objects     http.Handler

	Metrics prometheus.Gatherer
}

type ConfigOption func(*Config)

func WithRecords(records RecordStore) ConfigOption {
	return func(cfg *Config) {
		cfg.Records = records
	}
}

func WithAttachments(svc *attachment.Service) ConfigOption {
	return func(cfg *Config) {
		cfg.Attachments = svc
	}
}

func WithAuthEngine(authenticator auth.AuthEngine) ConfigOption {
	return func(cfg *Config) {
		cfg.Authenticator = authenticator
	}
}

// WithObjectHandler mounts h at path, which must end in a slash.
func WithObjectHandler(path string, h http.Handler) ConfigOption {
	return func(cfg *Config) {
		cfg.ObjectsPath = path
		cfg.Objects = h
	}
}

// WithMetrics exposes g at /metrics.
func WithMetrics(g prometheus.Gatherer) ConfigOption {
	return func(cfg *Config) {
		cfg.Metrics = g
	}
}

func NewConfig(opts ...ConfigOption) Config {
	cfg := Config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
