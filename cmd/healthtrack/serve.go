package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"healthtrack/internal/attachment"
	"healthtrack/internal/auth"
	"healthtrack/internal/config"
	"healthtrack/internal/objectstore"
	"healthtrack/internal/records"
	"healthtrack/internal/server"
)

const metricsNamespace = "healthtrack"

func newServeCmd(a *app) *cobra.Command {
	var listen, dataDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the healthtrack API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen != "" {
				a.cfg.Listen = listen
			}
			if dataDir != "" {
				a.cfg.DataDir = dataDir
			}
			return runServer(cmd.Context(), a.cfg)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config)")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "directory for the database and local objects (overrides config)")
	return cmd
}

func newAuthEngine(cfg *config.Config) (auth.AuthEngine, error) {
	var engines []auth.AuthEngine
	if len(cfg.Auth.Users) > 0 {
		users, err := auth.ParseUsers(cfg.Auth.Users)
		if err != nil {
			return nil, err
		}
		engines = append(engines, auth.NewBasicAuthEngine(users))
	}
	if cfg.Auth.TrustedHeader != "" {
		engines = append(engines, auth.NewHeaderAuthEngine(cfg.Auth.TrustedHeader))
	}
	return auth.NewCompoundAuthEngine(engines...), nil
}

func runServer(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	backend, err := openObjectBackend(cfg)
	if err != nil {
		return err
	}

	observer, err := objectstore.NewPrometheusObserver(metricsNamespace+"_objectstore", reg)
	if err != nil {
		return err
	}
	swallowed, err := attachment.NewSwallowedFailures(metricsNamespace, reg)
	if err != nil {
		return err
	}

	codec, err := attachment.NewKeyCodec(backend.baseURL)
	if err != nil {
		return err
	}

	slog.Info("Opening database", "path", cfg.DatabasePath())
	rec, err := records.Open(ctx, cfg.DatabasePath())
	if err != nil {
		return err
	}
	defer rec.Close()

	svc := attachment.NewService(
		objectstore.Instrument(backend.store, observer),
		codec,
		rec,
		attachment.WithLogger(slog.Default().With("component", "attachment")),
		attachment.WithUploadTTL(cfg.Attachments.UploadTTL),
		attachment.WithReadTTL(cfg.Attachments.ReadTTL),
		attachment.WithSwallowedFailures(swallowed),
	)

	authn, err := newAuthEngine(cfg)
	if err != nil {
		return err
	}

	opts := []server.ConfigOption{
		server.WithRecords(rec),
		server.WithAttachments(svc),
		server.WithAuthEngine(authn),
		server.WithMetrics(reg),
	}
	if backend.handler != nil {
		opts = append(opts, server.WithObjectHandler(backend.mountPath, backend.handler))
	}

	srv, err := server.NewServer(server.NewConfig(opts...))
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 20 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	eg.Go(func() error {
		slog.Info("Starting healthtrack HTTP server",
			"listen", cfg.Listen,
			"storage", cfg.Storage.Backend,
			"files", codec.BaseURL(),
		)
		err := httpServer.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	return eg.Wait()
}
