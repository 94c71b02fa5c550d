// Command ingest streams LTP ticks from a WebSocket feed into the configured store.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"straddle-lab/internal/config"
	"straddle-lab/internal/ingestion"
	"straddle-lab/internal/logger"
	"straddle-lab/internal/observability"
	"straddle-lab/internal/storage/backends"
)

func main() {
	cmd := &cli.Command{
		Name:  "ingest",
		Usage: "Subscribe to an LTP WebSocket feed and persist ticks",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML run file",
				Sources: cli.EnvVars("STRADDLE_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "endpoint",
				Usage: "Feed WebSocket URL (overrides the run file)",
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "Tick store: memory, postgres, clickhouse (overrides the run file)",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Address serving /metrics and /health; empty disables it (overrides the run file)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn, error (overrides the run file)",
			},
		},
		Action: ingestAction,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "ingest: %v\n", err)
		os.Exit(1)
	}
}

func ingestAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Ingest.Endpoint == "" {
		return fmt.Errorf("ingest.endpoint is required")
	}
	if len(cfg.Ingest.Subscriptions) == 0 {
		return fmt.Errorf("ingest.subscriptions is empty")
	}
	if cfg.Storage.Backend == config.BackendDuckDB {
		return fmt.Errorf("the duckdb backend is read-only; ingest into memory, postgres or clickhouse")
	}

	log, err := logger.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	log = log.Named("ingest")
	defer log.Sync()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg, "")

	stores, err := backends.Open(ctx, cfg.Storage, nil, loc, log)
	if err != nil {
		return err
	}
	defer stores.Close()

	feedCfg := ingestion.DefaultFeedConfig()
	feed, err := ingestion.NewFeedClient(cfg.Ingest.Endpoint, cfg.Ingest.Subscriptions, &feedCfg, metrics, log)
	if err != nil {
		return err
	}
	defer feed.Close()

	runner, err := ingestion.NewRunner(ingestion.RunnerOptions{
		Source:        feed,
		Writer:        stores.Ltp,
		BatchSize:     cfg.Ingest.BatchSize,
		FlushInterval: cfg.Ingest.FlushInterval,
		MaxPending:    cfg.Ingest.MaxPending,
		Metrics:       metrics,
		Logger:        log,
	})
	if err != nil {
		return err
	}

	if cfg.Ingest.MetricsAddr != "" {
		srv := newMetricsServer(cfg.Ingest.MetricsAddr, reg)
		go func() {
			log.Info("metrics server listening", zap.String("addr", cfg.Ingest.MetricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	log.Info("ingestion started",
		zap.String("endpoint", cfg.Ingest.Endpoint),
		zap.String("backend", stores.Backend),
		zap.Int("subscriptions", len(cfg.Ingest.Subscriptions)),
	)

	err = runner.Run(ctx)
	stats := runner.Stats()
	log.Info("ingestion stopped",
		zap.Int64("received", stats.Received),
		zap.Int64("stored", stats.Stored),
		zap.Int64("dropped", stats.Dropped),
	)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg := config.Default()
	if path := cmd.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if cmd.IsSet("endpoint") {
		cfg.Ingest.Endpoint = cmd.String("endpoint")
	}
	if cmd.IsSet("backend") {
		cfg.Storage.Backend = cmd.String("backend")
	}
	if cmd.IsSet("metrics-addr") {
		cfg.Ingest.MetricsAddr = cmd.String("metrics-addr")
	}
	if cmd.IsSet("log-level") {
		cfg.LogLevel = cmd.String("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newMetricsServer serves /metrics from g and a plain /health probe.
func newMetricsServer(addr string, g prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler(g))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
