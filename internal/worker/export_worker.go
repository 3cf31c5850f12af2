package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"roadreport/internal/amqp"
	"roadreport/internal/core"
	"roadreport/internal/deduction"
	"roadreport/internal/services"
	"roadreport/internal/sheets"
	"roadreport/internal/store"
)

// ReportGenerator builds the report for an export job.
type ReportGenerator interface {
	Generate(ctx context.Context, q services.ReportQuery) (services.ReportResult, error)
}

// ExportWorkerConfig holds configuration for the export worker
type ExportWorkerConfig struct {
	// BatchSize is the max number of jobs handled per scan (default: 10)
	BatchSize int

	// MaxAttempts is how many failed writes a job gets before it is
	// marked failed (default: 3)
	MaxAttempts int
}

func DefaultExportWorkerConfig() ExportWorkerConfig {
	return ExportWorkerConfig{BatchSize: 10, MaxAttempts: 3}
}

// ExportWorker generates reports for export jobs and writes them to the
// spreadsheet.
type ExportWorker struct {
	jobs    store.ExportJobStore
	reports ReportGenerator
	writer  sheets.ReportWriter
	config  ExportWorkerConfig

	// mu serializes exports so the AMQP consumer and the poller never
	// write the same job twice.
	mu sync.Mutex
}

func NewExportWorker(jobs store.ExportJobStore, reports ReportGenerator, writer sheets.ReportWriter, config ExportWorkerConfig) *ExportWorker {
	def := DefaultExportWorkerConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = def.MaxAttempts
	}
	return &ExportWorker{
		jobs:    jobs,
		reports: reports,
		writer:  writer,
		config:  config,
	}
}

// HandleExportMessage processes a single export message from AMQP. A
// returned error asks the broker to redeliver.
func (w *ExportWorker) HandleExportMessage(ctx context.Context, msg *amqp.ReportExportMessage) error {
	slog.InfoContext(ctx, "Processing export message",
		"job_id", msg.JobID,
		"timestamp", msg.Timestamp)
	return w.process(ctx, msg.JobID)
}

// ProcessPendingExports handles jobs whose message was lost or whose last
// write failed. This is the backup path when AMQP is unavailable.
func (w *ExportWorker) ProcessPendingExports(ctx context.Context) error {
	_, _, err := w.processPending(ctx, w.config.BatchSize)
	return err
}

// StartupCheck drains a larger batch of pending jobs at worker startup to
// recover from downtime.
func (w *ExportWorker) StartupCheck(ctx context.Context) error {
	done, failed, err := w.processPending(ctx, w.config.BatchSize*5)
	if err != nil {
		return fmt.Errorf("get pending export jobs for startup check: %w", err)
	}
	if done+failed == 0 {
		slog.InfoContext(ctx, "No pending export jobs found on startup")
		return nil
	}
	slog.InfoContext(ctx, "Startup export check completed",
		"handled", done,
		"errors", failed)
	return nil
}

func (w *ExportWorker) processPending(ctx context.Context, limit int) (done, failed int, err error) {
	jobs, err := w.jobs.PendingExportJobs(ctx, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("get pending export jobs: %w", err)
	}
	if len(jobs) == 0 {
		return 0, 0, nil
	}

	slog.DebugContext(ctx, "Processing pending export jobs", "count", len(jobs))
	for _, job := range jobs {
		if ctx.Err() != nil {
			return done, failed, ctx.Err()
		}
		if err := w.process(ctx, job.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to export report", "job_id", job.ID, "error", err)
			failed++
			continue
		}
		done++
	}
	return done, failed, nil
}

// process re-reads the job under the export lock, so a job finished by
// the other path in the meantime is skipped.
func (w *ExportWorker) process(ctx context.Context, id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	job, err := w.jobs.GetExportJob(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		slog.WarnContext(ctx, "Export job not found, dropping message", "job_id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get export job: %w", err)
	}
	if job.Status != core.ExportPending {
		slog.InfoContext(ctx, "Export job already finished, skipping",
			"job_id", id, "status", job.Status)
		return nil
	}
	return w.export(ctx, job)
}

func (w *ExportWorker) export(ctx context.Context, job core.ExportJob) error {
	res, err := w.reports.Generate(ctx, services.ReportQuery{
		Range:   job.Range,
		RateKey: job.RateKey,
		Scope:   job.Scope,
	})
	if err != nil {
		var verr *deduction.ValidationError
		if errors.As(err, &verr) {
			// Bad records will not fix themselves on retry.
			return w.fail(ctx, job, verr.Error())
		}
		return w.retry(ctx, job, fmt.Errorf("generate report: %w", err))
	}

	ref, err := w.writer.WriteReport(ctx, job, res.Report)
	if err != nil {
		return w.retry(ctx, job, fmt.Errorf("write report: %w", err))
	}

	if err := w.jobs.MarkExportDone(ctx, job.ID, ref); err != nil {
		// The report is written; a retry would duplicate it.
		slog.ErrorContext(ctx, "Failed to mark export as done", "job_id", job.ID, "error", err)
		return nil
	}

	slog.InfoContext(ctx, "Report exported",
		"job_id", job.ID,
		"sheets_ref", ref,
		"scope", job.Scope,
		"trips", res.TripCount,
		"deduction", res.Report.Mileage.Deduction)
	return nil
}

// retry records the failed attempt and returns cause, or marks the job
// failed once it has used all its attempts.
func (w *ExportWorker) retry(ctx context.Context, job core.ExportJob, cause error) error {
	if job.Attempts+1 >= w.config.MaxAttempts {
		slog.ErrorContext(ctx, "Export job exceeded max attempts",
			"job_id", job.ID,
			"attempts", job.Attempts+1,
			"error", cause)
		return w.fail(ctx, job, cause.Error())
	}
	if err := w.jobs.RecordExportAttempt(ctx, job.ID, cause.Error()); err != nil {
		slog.ErrorContext(ctx, "Failed to record export attempt", "job_id", job.ID, "error", err)
	}
	return cause
}

func (w *ExportWorker) fail(ctx context.Context, job core.ExportJob, reason string) error {
	if err := w.jobs.MarkExportFailed(ctx, job.ID, reason); err != nil {
		return fmt.Errorf("mark export failed: %w", err)
	}
	return nil
}
