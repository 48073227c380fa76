package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"gagyebu/internal/backend"
	"gagyebu/internal/cli"
	apphttp "gagyebu/internal/http"
	"gagyebu/internal/log"
	"gagyebu/internal/metrics/prometheus"
	"gagyebu/internal/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := cli.LoadEnvFile(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
	}
	cfg := cli.MustLoadConfig(nil)
	logger := cli.SetupLogger(cfg, log.ComponentApp, nil)

	ctx, stop := cli.GracefulShutdown(logger)
	defer stop()

	collector, err := prometheus.NewCollector("gagyebu")
	if err != nil {
		logger.Error("Failed to create metrics collector", log.FieldError, err)
		os.Exit(1)
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	opts := []services.Option{
		services.WithMetrics(collector),
		services.WithDuplicateOptions(cfg.DuplicateOptions()),
		services.WithLookbackDays(cfg.DuplicateLookbackDays),
	}
	readyChecks := map[string]func(context.Context) error{}
	if res.Publisher != nil {
		opts = append(opts, services.WithPublisher(res.Publisher))
		readyChecks["amqp"] = func(context.Context) error {
			if !res.Publisher.Healthy() {
				return errors.New("amqp channel closed")
			}
			return nil
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Store:              res.Store,
		Transactions:       services.NewTransactionService(res.Store, opts...),
		Logger:             logger,
		Metrics:            collector,
		MetricsHandler:     collector.Handler(),
		ReadyChecks:        readyChecks,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting gagyebu server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"amqp_enabled", res.Publisher != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", log.FieldError, err)
	}
	logger.Info("Server stopped gracefully", log.FieldOperation, log.OpShutdown)
}
