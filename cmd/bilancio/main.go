package main

import (
	"context"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"bilancio/internal/advisor"
	"bilancio/internal/amqp"
	"bilancio/internal/app"
	"bilancio/internal/backend"
	"bilancio/internal/cache"
	"bilancio/internal/cli"
	"bilancio/internal/config"
	apphttp "bilancio/internal/http"
	"bilancio/internal/ledger"
	applog "bilancio/internal/log"
	"bilancio/internal/metrics"
	"bilancio/internal/middleware/ratelimit"
	"bilancio/internal/middleware/security"
	"bilancio/internal/services"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig((*config.Config).Validate)
	logger.Info("Starting bilancio",
		applog.FieldComponent, applog.ComponentApp,
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"advisor", cfg.AdvisorProvider,
	)

	ctx, stop := cli.GracefulShutdown(logger)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("bilancio stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("bilancio stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *applog.Logger) error {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	storeResult, err := backend.NewFactory(logger.Slog()).CreateStore(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := storeResult.Cleanup(); err != nil {
			logger.Error("Failed to close store", applog.FieldError, err)
		}
	}()

	// A ledger that cannot be decoded must not be overwritten by the next
	// write, so startup stops here.
	store := ledger.New(storeResult.Store, ledger.WithLogger(logger.WithComponent(applog.ComponentLedger).Slog()))
	if err := store.Load(ctx); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// Events are best effort; the ledger works without a broker.
			logger.Warn("AMQP unavailable, ledger events disabled",
				applog.FieldComponent, applog.ComponentAMQP, applog.FieldError, err)
		} else {
			publisher = client
			logger.Info("AMQP publisher connected",
				applog.FieldComponent, applog.ComponentAMQP, "exchange", cfg.AMQPExchange)
		}
	}

	adv, err := advisor.New(advisor.Config{
		Provider: cfg.AdvisorProvider,
		Endpoint: cfg.AdvisorEndpoint,
		Model:    cfg.AdvisorModel,
	})
	if err != nil {
		return err
	}

	ledgerSvc := services.NewLedgerService(store, publisher, m, cfg.BackupDir)
	defer ledgerSvc.Close()
	settings := services.NewSettingsService(storeResult.Store, cfg.AdvisorAPIKey, adv.Provider())
	session := app.NewSession()
	session.Dispatch(app.LedgerLoaded{})

	limiter := ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute: cfg.RateLimitPerMinute,
		MaxClients:        ratelimit.DefaultConfig().MaxClients,
	})
	caches := cache.NewManager(limiter.Cache())

	clientIP := security.NewClientIP()
	for _, cidr := range cfg.TrustedProxies {
		if err := clientIP.AddTrustedProxy(cidr); err != nil {
			return err
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Ledger:   ledgerSvc,
		Advice:   services.NewAdviceService(ledgerSvc, adv, settings, m),
		Settings: settings,
		Session:  session,
		Registry: registry,
		Ready:    storeResult.Ping,
		Logger:   logger.WithComponent(applog.ComponentHTTP),
		Limiter:  limiter,
		ClientIP: clientIP,
		Now:      time.Now,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return cli.ServeHTTP(gctx, logger, &srv.Server, cfg.ShutdownTimeout)
	})
	g.Go(func() error {
		return caches.Run(gctx, time.Minute)
	})
	return g.Wait()
}
