package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"roadreport/internal/backend"
	"roadreport/internal/cli"
	apphttp "roadreport/internal/http"
	applog "roadreport/internal/log"
	"roadreport/internal/services"
)

func main() {
	cli.LoadEnvFile()

	bootLogger := cli.SetupLogger(nil)
	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := cli.SetupLogger(cfg)

	rates, defaultRate, err := cfg.RateTable()
	if err != nil {
		logger.Error("Failed to load rate table",
			applog.FieldErrorType, applog.ErrorTypeConfiguration,
			applog.FieldError, err,
			"rates_file", cfg.RatesFile)
		os.Exit(1)
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	factory := backend.NewFactory(logger)

	res, err := factory.CreateBackend(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	// A broker outage must not keep the API down; jobs stay pending until
	// the worker's periodic scan.
	var publisher services.ExportPublisher
	amqpClient, err := factory.CreatePublisher(bcfg)
	if err != nil {
		logger.Warn("Failed to initialize AMQP client, continuing without publishing", applog.FieldError, err)
	} else if amqpClient != nil {
		publisher = amqpClient
	}

	reports := services.NewReportService(res.Store, res.Store, res.Store, services.ReportConfig{
		Rates:          rates,
		DefaultRateKey: defaultRate,
		Strict:         cfg.StrictMode,
		Location:       cfg.Location(),
	})
	records := services.NewRecordService(res.Store)
	exports := services.NewExportService(res.Store, publisher)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Reports:            reports,
		Records:            records,
		Exports:            exports,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Ready:              res.Ready,
	})
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", applog.FieldError, err)
			}
		}
		if err := res.Cleanup(); err != nil {
			logger.Warn("Backend cleanup error", applog.FieldError, err)
		}
	})

	logger.Info("Starting roadreport server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"default_rate", defaultRate,
		"strict", cfg.StrictMode,
		"timezone", cfg.ReportTimezone,
		"amqp_enabled", publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
