package main

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	"healthtrack/internal/attachment"
	"healthtrack/internal/config"
	"healthtrack/internal/objectstore"
)

// objectBackend is the configured object store plus what the server needs
// to know about it.
type objectBackend struct {
	store   objectstore.Store
	baseURL string

	// mountPath and handler are set when the store is served in-process.
	mountPath string
	handler   http.Handler
}

func newMinioStore(cfg *config.Config) (*objectstore.MinioStore, error) {
	return objectstore.NewMinioStore(objectstore.MinioConfig{
		Endpoint:        cfg.Storage.Endpoint,
		Region:          cfg.Storage.Region,
		Bucket:          cfg.Storage.Bucket,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		Secure:          cfg.Storage.Secure,
	})
}

func openObjectBackend(cfg *config.Config) (*objectBackend, error) {
	switch cfg.Storage.Backend {
	case config.BackendS3:
		store, err := newMinioStore(cfg)
		if err != nil {
			return nil, err
		}
		baseURL := store.BaseURL()
		if cfg.Storage.PublicBaseURL != "" {
			baseURL = cfg.Storage.PublicBaseURL
		}
		return &objectBackend{store: store, baseURL: baseURL}, nil

	case config.BackendLocal:
		baseURL := cfg.Storage.PublicBaseURL
		if baseURL == "" {
			baseURL = "http://" + advertisedHost(cfg.Listen) + "/objects"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("parse local base url: %w", err)
		}
		mountPath := strings.TrimSuffix(u.Path, "/")
		if mountPath == "" {
			return nil, fmt.Errorf("local backend base url %q needs a path such as /objects", baseURL)
		}

		secret := []byte(cfg.Storage.LocalSecret)
		if len(secret) == 0 {
			secret = make([]byte, 32)
			if _, err := rand.Read(secret); err != nil {
				return nil, fmt.Errorf("generate signing secret: %w", err)
			}
			slog.Warn("No storage.local_secret configured, signed URLs will not survive a restart")
		}

		store, err := objectstore.NewLocalStore(objectstore.LocalConfig{
			Root:           cfg.ObjectsDir(),
			BaseURL:        baseURL,
			Secret:         secret,
			MaxObjectBytes: attachment.MaxFileSize,
		})
		if err != nil {
			return nil, err
		}
		return &objectBackend{
			store:     store,
			baseURL:   store.BaseURL(),
			mountPath: mountPath + "/",
			handler:   store.Handler(),
		}, nil
	}

	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

// advertisedHost turns a listen address into something a browser can reach.
func advertisedHost(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return listen
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return net.JoinHostPort(host, port)
}
