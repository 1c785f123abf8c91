package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"bilancio/internal/amqp"
	"bilancio/internal/backend"
	"bilancio/internal/cli"
	"bilancio/internal/config"
	"bilancio/internal/ledger"
	applog "bilancio/internal/log"
	"bilancio/internal/metrics"
	"bilancio/internal/worker"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig((*config.Config).ValidateWorker)
	logger = logger.WithComponent(applog.ComponentWorker)
	logger.Info("Starting bilancio-worker",
		"mirror", cfg.MirrorBackend,
		"queue", cfg.AMQPQueue,
		"resync", cfg.MirrorResyncOnStart,
	)

	ctx, stop := cli.GracefulShutdown(logger)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("bilancio-worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("bilancio-worker stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *applog.Logger) error {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	factory := backend.NewFactory(logger.Slog())

	mirror, err := factory.CreateMirror(ctx, backendCfg)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	mirrorWorker := worker.NewMirrorWorker(mirror, metrics.New(registry))

	if cfg.MirrorResyncOnStart {
		if err := resync(ctx, factory, backendCfg, mirrorWorker, logger); err != nil {
			// Live events still flow; the next resync can repair the mirror.
			logger.Error("Startup resync failed", applog.FieldOperation, applog.OpResync, applog.FieldError, err)
		}
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return err
	}
	defer client.Close()

	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return cli.ServeHTTP(gctx, logger, srv, cfg.ShutdownTimeout)
	})
	g.Go(func() error {
		err := client.ConsumeWithRetry(gctx, mirrorWorker.HandleEvent)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	return g.Wait()
}

// resync rebuilds the mirror from the persisted ledger. The memory backend
// holds nothing across processes, so there is nothing to read.
func resync(ctx context.Context, factory backend.Factory, cfg backend.Config, w *worker.MirrorWorker, logger *applog.Logger) error {
	if cfg.Type == backend.MemoryBackend {
		logger.Warn("Skipping resync, memory backend has no shared ledger")
		return nil
	}
	storeResult, err := factory.CreateStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer storeResult.Cleanup()

	store := ledger.New(storeResult.Store, ledger.WithLogger(logger.Slog()))
	if err := store.Load(ctx); err != nil {
		return err
	}
	return w.Resync(ctx, store.All())
}
