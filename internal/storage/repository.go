package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"roadreport/internal/core"
	"roadreport/internal/store"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

var _ store.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) ListTrips(ctx context.Context, rng core.DateRange) ([]core.Trip, error) {
	from, to := rangeBounds(rng)
	rows, err := r.queries.ListTrips(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	trips := make([]core.Trip, len(rows))
	for i, row := range rows {
		trips[i] = tripFromRow(row)
	}
	return trips, nil
}

func (r *SQLiteRepository) GetTrip(ctx context.Context, id string) (core.Trip, error) {
	row, err := r.queries.GetTrip(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Trip{}, fmt.Errorf("trip %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return core.Trip{}, fmt.Errorf("get trip: %w", err)
	}
	return tripFromRow(row), nil
}

func (r *SQLiteRepository) SaveTrip(ctx context.Context, t core.Trip) error {
	if t.ID == "" {
		return core.ErrEmptyID
	}
	err := r.queries.UpsertTrip(ctx, UpsertTripParams{
		ID:             t.ID,
		Distance:       nullFloat(t.Distance),
		Purpose:        t.Purpose,
		Classification: t.Classification,
		StartMs:        nullMillis(t.Start),
		EndMs:          nullMillis(t.End),
		Status:         t.Status,
		Notes:          t.Notes,
		Now:            r.now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("save trip: %w", err)
	}
	slog.DebugContext(ctx, "Trip saved to SQLite", "id", t.ID, "purpose", t.Purpose)
	return nil
}

func (r *SQLiteRepository) DeleteTrip(ctx context.Context, id string) error {
	n, err := r.queries.DeleteTrip(ctx, id)
	if err != nil {
		return fmt.Errorf("delete trip: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("trip %s: %w", id, store.ErrNotFound)
	}
	slog.InfoContext(ctx, "Trip deleted", "id", id)
	return nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, rng core.DateRange) ([]core.Expense, error) {
	from, to := rangeBounds(rng)
	rows, err := r.queries.ListExpenses(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	expenses := make([]core.Expense, len(rows))
	for i, row := range rows {
		expenses[i] = expenseFromRow(row)
	}
	return expenses, nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	row, err := r.queries.GetExpense(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("expense %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return expenseFromRow(row), nil
}

func (r *SQLiteRepository) SaveExpense(ctx context.Context, e core.Expense) error {
	if e.ID == "" {
		return core.ErrEmptyID
	}
	err := r.queries.UpsertExpense(ctx, UpsertExpenseParams{
		ID:             e.ID,
		Amount:         nullFloat(e.Amount),
		Category:       e.Category,
		Classification: e.Classification,
		Description:    e.Description,
		DateMs:         nullMillis(e.Date),
		Now:            r.now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("save expense: %w", err)
	}
	slog.DebugContext(ctx, "Expense saved to SQLite", "id", e.ID, "category", e.Category)
	return nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id string) error {
	n, err := r.queries.DeleteExpense(ctx, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("expense %s: %w", id, store.ErrNotFound)
	}
	slog.InfoContext(ctx, "Expense deleted", "id", id)
	return nil
}

func (r *SQLiteRepository) RateOverrides(ctx context.Context) (map[string]float64, error) {
	rows, err := r.queries.ListRateOverrides(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rate overrides: %w", err)
	}
	out := make(map[string]float64, len(rows))
	for _, row := range rows {
		out[row.RateKey] = row.Rate
	}
	return out, nil
}

func (r *SQLiteRepository) SetRateOverride(ctx context.Context, key string, rate float64) error {
	if err := r.queries.UpsertRateOverride(ctx, key, rate, r.now().UnixMilli()); err != nil {
		return fmt.Errorf("set rate override: %w", err)
	}
	slog.InfoContext(ctx, "Rate override saved", "rate_key", key, "rate", rate)
	return nil
}

func (r *SQLiteRepository) DeleteRateOverride(ctx context.Context, key string) error {
	if err := r.queries.DeleteRateOverride(ctx, key); err != nil {
		return fmt.Errorf("delete rate override: %w", err)
	}
	slog.InfoContext(ctx, "Rate override cleared", "rate_key", key)
	return nil
}

func (r *SQLiteRepository) CreateExportJob(ctx context.Context, job core.ExportJob) error {
	if job.ID == "" {
		return core.ErrEmptyID
	}
	now := r.now()
	created := job.CreatedAt
	if created.IsZero() {
		created = now
	}
	status := job.Status
	if status == "" {
		status = core.ExportPending
	}
	scope := job.Scope
	if scope == "" {
		scope = core.ScopeBusiness
	}
	err := r.queries.CreateExportJob(ctx, CreateExportJobParams{
		ID:        job.ID,
		RangeFrom: nullMillis(job.Range.From),
		RangeTo:   nullMillis(job.Range.To),
		RateKey:   job.RateKey,
		Scope:     string(scope),
		Status:    string(status),
		CreatedAt: created.UnixMilli(),
		Now:       now.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("create export job: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetExportJob(ctx context.Context, id string) (core.ExportJob, error) {
	row, err := r.queries.GetExportJob(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ExportJob{}, fmt.Errorf("export job %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return core.ExportJob{}, fmt.Errorf("get export job: %w", err)
	}
	return exportJobFromRow(row), nil
}

// PendingExportJobs returns pending jobs for the worker's periodic pickup.
func (r *SQLiteRepository) PendingExportJobs(ctx context.Context, limit int) ([]core.ExportJob, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.queries.GetPendingExportJobs(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending export jobs: %w", err)
	}
	jobs := make([]core.ExportJob, len(rows))
	for i, row := range rows {
		jobs[i] = exportJobFromRow(row)
	}
	return jobs, nil
}

func (r *SQLiteRepository) MarkExportDone(ctx context.Context, id, target string) error {
	if err := r.finishJob(ctx, id, core.ExportDone, target, ""); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Export job marked as done", "id", id, "target", target)
	return nil
}

func (r *SQLiteRepository) MarkExportFailed(ctx context.Context, id, reason string) error {
	if err := r.finishJob(ctx, id, core.ExportFailed, "", reason); err != nil {
		return err
	}
	slog.WarnContext(ctx, "Export job marked as failed", "id", id, "reason", reason)
	return nil
}

// RecordExportAttempt counts a failed attempt without leaving pending.
func (r *SQLiteRepository) RecordExportAttempt(ctx context.Context, id, reason string) error {
	return r.finishJob(ctx, id, core.ExportPending, "", reason)
}

func (r *SQLiteRepository) finishJob(ctx context.Context, id string, status core.ExportStatus, target, reason string) error {
	n, err := r.queries.FinishExportJob(ctx, FinishExportJobParams{
		ID:        id,
		Status:    string(status),
		Target:    target,
		LastError: reason,
		Now:       r.now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("update export job: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("export job %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func tripFromRow(row Trip) core.Trip {
	return core.Trip{
		ID:             row.ID,
		Distance:       floatPtr(row.Distance),
		Purpose:        row.Purpose,
		Classification: row.Classification,
		Start:          fromMillis(row.StartMs),
		End:            fromMillis(row.EndMs),
		Status:         row.Status,
		Notes:          row.Notes,
	}
}

func expenseFromRow(row Expense) core.Expense {
	return core.Expense{
		ID:             row.ID,
		Amount:         floatPtr(row.Amount),
		Category:       row.Category,
		Classification: row.Classification,
		Description:    row.Description,
		Date:           fromMillis(row.DateMs),
	}
}

func exportJobFromRow(row ExportJob) core.ExportJob {
	return core.ExportJob{
		ID:        row.ID,
		Range:     core.DateRange{From: fromMillis(row.RangeFrom), To: fromMillis(row.RangeTo)},
		RateKey:   row.RateKey,
		Scope:     core.Scope(row.Scope),
		Status:    core.ExportStatus(row.Status),
		Attempts:  int(row.Attempts),
		Target:    row.Target,
		LastError: row.LastError,
		CreatedAt: time.UnixMilli(row.CreatedAt).UTC(),
		UpdatedAt: time.UnixMilli(row.UpdatedAt).UTC(),
	}
}

func rangeBounds(r core.DateRange) (from, to sql.NullInt64) {
	return nullMillis(r.From), nullMillis(r.To)
}

func nullMillis(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromMillis(v sql.NullInt64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return time.UnixMilli(v.Int64).UTC()
}

// NaN and infinities are stored as NULL.
func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	f := *v
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
