// Package main runs the indexer: it consumes ledger events, applies them to
// the entity registry and serves the query API and Prometheus metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"pool-analytics-lab/internal/api"
	"pool-analytics-lab/internal/app"
	"pool-analytics-lab/internal/config"
	"pool-analytics-lab/internal/ingestion"
	"pool-analytics-lab/internal/logging"
	"pool-analytics-lab/internal/observability"
	"pool-analytics-lab/internal/replay"
)

const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("indexer failed", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	metrics := observability.NewMetrics(cfg.Metrics.Namespace, nil)

	stores, err := app.OpenStores(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	sources, err := app.OpenSources(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer sources.Close()

	engine, err := app.NewEngine(cfg, stores.Entities, stores.Backend, sources, logger, metrics)
	if err != nil {
		return err
	}

	// Events stored by a previous run but never applied are replayed first.
	// Already applied ones are dropped by the checkpoint.
	n, err := replay.NewRunner(stores.Events).RunAll(ctx, engine.Processor)
	if err != nil {
		return fmt.Errorf("resume from event log: %w", err)
	}
	if n > 0 {
		logger.Info("replayed stored events", zap.Int("events", n))
	}

	source, closeSource, err := openSource(cfg.Source, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	runner := ingestion.NewRunner(ingestion.RunnerOptions{
		Source:        source,
		Events:        stores.Events,
		Engine:        engine.Processor,
		BlockLag:      cfg.Source.BlockLag,
		FlushInterval: cfg.Source.FlushInterval,
		FailOnLate:    cfg.Source.FailOnLate,
		Logger:        logger,
		Metrics:       metrics,
	})

	apiServer := api.NewServer(api.Options{
		Addr:     cfg.API.Addr,
		Registry: engine.Registry,
		Resolver: engine.Resolver,
		Metrics:  metrics,
		Logger:   logger,
	})
	metricsServer := newMetricsServer(cfg.Metrics.Addr)

	errCh := make(chan error, 3)
	go func() {
		if err := apiServer.Start(); err != nil {
			errCh <- fmt.Errorf("query api: %w", err)
		}
	}()
	go func() {
		logger.Info("starting metrics server", zap.String("addr", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()
	stopIngestion := runIngestion(ctx, runner.Run, errCh, logger)
	defer stopIngestion()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		err = nil
	case err = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if serr := apiServer.Shutdown(shutdownCtx); serr != nil {
		logger.Warn("query api shutdown", zap.Error(serr))
	}
	if serr := metricsServer.Shutdown(shutdownCtx); serr != nil {
		logger.Warn("metrics server shutdown", zap.Error(serr))
	}
	stopIngestion()
	return err
}

// runIngestion starts run in the background. The returned stop cancels it and
// blocks until run has returned, so the stores it writes to can be closed
// afterwards. stop may be called more than once.
func runIngestion(ctx context.Context, run func(context.Context) error, errCh chan<- error, logger *zap.Logger) (stop func()) {
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		err := run(runCtx)
		switch {
		case err == nil:
			logger.Info("event source exhausted, serving queries until shutdown")
		case !errors.Is(err, context.Canceled):
			select {
			case errCh <- fmt.Errorf("ingestion: %w", err):
			default:
				logger.Error("ingestion stopped", zap.Error(err))
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func openSource(cfg config.SourceConfig, logger *zap.Logger) (ingestion.StreamSource, func(), error) {
	switch cfg.Kind {
	case "file":
		return ingestion.NewFileSource(cfg.Path, logger), func() {}, nil
	case "kafka":
		src := ingestion.NewKafkaSource(ingestion.KafkaConfig{
			Brokers: cfg.Brokers,
			Topic:   cfg.Topic,
			GroupID: cfg.Group,
		}, logger)
		return src, func() {
			if err := src.Close(); err != nil {
				logger.Warn("close kafka source", zap.Error(err))
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
	}
}

func newMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
