// rtprobe connects to a realtime endpoint, logs every event it receives,
// and exposes connection metrics. It is the operational smoke test for the
// client library.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/helixdesk/realtime-go/internal/config"
	"github.com/helixdesk/realtime-go/internal/version"
	"github.com/helixdesk/realtime-go/metrics"
	"github.com/helixdesk/realtime-go/protocol"
	"github.com/helixdesk/realtime-go/queue/pgstore"
	"github.com/helixdesk/realtime-go/realtime"
)

func main() {
	configPath := flag.String("config", "configs/rtprobe.local.yaml", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Set up structured logging
	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting rtprobe",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"url", cfg.Client.URL,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	clientCfg := cfg.ClientOptions()
	clientCfg.Logger = logger

	// Optional durable outbox
	if cfg.Outbox.PostgresURL != "" {
		pool, err := pgstore.Connect(ctx, cfg.Outbox.PostgresURL)
		if err != nil {
			logger.Error("failed to connect outbox store", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		store := pgstore.New(pool, logger)
		if err := store.Ensure(ctx); err != nil {
			logger.Error("failed to prepare outbox schema", "error", err)
			os.Exit(1)
		}
		clientCfg.QueueStore = store
		logger.Info("durable outbox enabled")
	}

	// Metrics
	var registry *prometheus.Registry
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		clientCfg.Metrics = metrics.New(registry)
	}

	client, err := realtime.New(clientCfg)
	if err != nil {
		logger.Error("failed to create client", "error", err)
		os.Exit(1)
	}
	defer client.Disconnect()

	// Log every event that arrives, lifecycle included.
	client.On(protocol.Wildcard, func(env protocol.Envelope) {
		logger.Info("event",
			"type", env.Type,
			"messageId", env.MessageID,
			"bytes", len(env.Data),
		)
	})

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		server := &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler: mux,
		}

		g.Go(func() error {
			logger.Info("starting metrics server", "port", cfg.Metrics.Port, "path", cfg.Metrics.Path)
			if err := server.ListenAndServe(); err != http.ErrServerClosed {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		if err := client.Connect(ctx); err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		<-ctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logger.Error("rtprobe failed", "error", err)
		os.Exit(1)
	}

	logger.Info("rtprobe stopped")
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
