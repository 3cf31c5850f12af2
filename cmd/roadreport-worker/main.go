package main

import (
	"context"
	"errors"
	"os"
	"time"

	"roadreport/internal/backend"
	"roadreport/internal/cli"
	applog "roadreport/internal/log"
	"roadreport/internal/services"
	"roadreport/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	bootLogger := cli.SetupLogger(nil)
	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := cli.SetupLogger(cfg).WithComponent(applog.ComponentWorker)

	logger.Info("Starting roadreport-worker")

	// The worker reads jobs written by the API process, so it needs the
	// shared database.
	if cfg.DataBackend != string(backend.SQLiteBackend) {
		logger.Error("The export worker requires DATA_BACKEND=sqlite", "backend", cfg.DataBackend)
		os.Exit(1)
	}

	rates, defaultRate, err := cfg.RateTable()
	if err != nil {
		logger.Error("Failed to load rate table", applog.FieldError, err, "rates_file", cfg.RatesFile)
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
		logger.Error("Failed to initialize backend", applog.FieldError, err)
		os.Exit(1)
	}
	defer res.Cleanup()

	writer, err := factory.CreateReportWriter(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to initialize export target", applog.FieldError, err)
		os.Exit(1)
	}

	reports := services.NewReportService(res.Store, res.Store, res.Store, services.ReportConfig{
		Rates:          rates,
		DefaultRateKey: defaultRate,
		Strict:         cfg.StrictMode,
		Location:       cfg.Location(),
	})
	exportWorker := worker.NewExportWorker(res.Store, reports, writer, worker.ExportWorkerConfig{
		BatchSize:   cfg.SyncBatchSize,
		MaxAttempts: cfg.ExportMaxTries,
	})

	poller := worker.NewPoller("export", cfg.SyncInterval, exportWorker.ProcessPendingExports)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		logger.Info("Shutting down worker...")
		if err := poller.Stop(shutdownCtx); err != nil {
			logger.Warn("Poller stop error", applog.FieldError, err)
		}
	})

	logger.Info("Performing startup export check...")
	if err := exportWorker.StartupCheck(ctx); err != nil {
		logger.Error("Failed startup export check", applog.FieldError, err)
	}

	amqpClient, err := factory.CreatePublisher(bcfg)
	switch {
	case err != nil:
		logger.Warn("Failed to initialize AMQP client, relying on periodic scan", applog.FieldError, err)
	case amqpClient != nil:
		defer amqpClient.Close()
		go func() {
			err := amqpClient.ConsumeReportExports(ctx, exportWorker.HandleExportMessage)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", applog.FieldError, err)
			}
		}()
	default:
		logger.Info("Skipping AMQP message consumption - no AMQP_URL provided")
	}

	if err := poller.Start(ctx); err != nil {
		logger.Error("Failed to start export poller", applog.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
