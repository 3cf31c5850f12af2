package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"roadreport/internal/core"
	"roadreport/internal/store"
)

// ExportPublisher notifies the worker that a job is waiting.
type ExportPublisher interface {
	PublishReportExport(ctx context.Context, jobID string) error
}

// ExportService records export jobs and hands them to the worker.
type ExportService struct {
	jobs      store.ExportJobStore
	publisher ExportPublisher
	now       func() time.Time
}

// NewExportService creates an export service. publisher may be nil; jobs
// are then picked up by the worker's periodic scan.
func NewExportService(jobs store.ExportJobStore, publisher ExportPublisher) *ExportService {
	return &ExportService{
		jobs:      jobs,
		publisher: publisher,
		now:       time.Now,
	}
}

// RequestExport persists a pending job and publishes it.
func (s *ExportService) RequestExport(ctx context.Context, q ReportQuery) (core.ExportJob, error) {
	if err := q.Range.Validate(); err != nil {
		return core.ExportJob{}, err
	}
	if q.Scope == "" {
		q.Scope = core.ScopeBusiness
	}
	now := s.now().UTC()
	job := core.ExportJob{
		ID:        uuid.NewString(),
		Range:     q.Range,
		RateKey:   q.RateKey,
		Scope:     q.Scope,
		Status:    core.ExportPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.jobs.CreateExportJob(ctx, job); err != nil {
		return core.ExportJob{}, fmt.Errorf("create export job: %w", err)
	}

	// The job is stored, so a failed publish only delays it until the
	// next periodic scan.
	if err := s.publish(ctx, job.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish export message", "job_id", job.ID, "error", err)
	}
	return job, nil
}

// Job returns the current state of an export job.
func (s *ExportService) Job(ctx context.Context, id string) (core.ExportJob, error) {
	return s.jobs.GetExportJob(ctx, id)
}

func (s *ExportService) publish(ctx context.Context, id string) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, export left for periodic pickup", "job_id", id)
		return nil
	}
	return s.publisher.PublishReportExport(ctx, id)
}
