// Package cli provides the bootstrap steps shared by cmd/bilancio and
// cmd/bilancio-worker.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"bilancio/internal/config"
	applog "bilancio/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger for level and installs it as the
// slog default. An unknown level falls back to info with a warning.
func SetupLogger(level string) *applog.Logger {
	lvl, err := applog.ParseLevel(level)
	cfg := applog.DefaultConfig()
	cfg.Level = lvl
	logger := applog.New(cfg)
	applog.SetDefault(logger)
	if err != nil {
		logger.Warn("Falling back to info logging", "error", err)
	}
	return logger
}

// LoadAndValidateConfig loads the environment, sets up logging and checks
// the configuration with validate. It exits the process when validation
// fails.
func LoadAndValidateConfig(validate func(*config.Config) error) (*config.Config, *applog.Logger) {
	LoadEnvFile()
	cfg := config.Load()
	logger := SetupLogger(cfg.LogLevel)
	if err := validate(cfg); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg, logger
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. The
// returned stop function releases the signal handler.
func GracefulShutdown(logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

// ServeHTTP runs srv until ctx is cancelled, then shuts it down within
// timeout.
func ServeHTTP(ctx context.Context, logger *applog.Logger, srv *http.Server, timeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	logger.Info("Shutting down HTTP server", "timeout", timeout.String())
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
