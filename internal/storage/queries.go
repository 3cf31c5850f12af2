package storage

import (
	"context"
	"database/sql"
)

const tripColumns = `id, distance, purpose, classification, start_ms, end_ms, status, notes, created_at, updated_at`

const upsertTrip = `
INSERT INTO trips (` + tripColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    distance = excluded.distance,
    purpose = excluded.purpose,
    classification = excluded.classification,
    start_ms = excluded.start_ms,
    end_ms = excluded.end_ms,
    status = excluded.status,
    notes = excluded.notes,
    updated_at = excluded.updated_at`

type UpsertTripParams struct {
	ID             string
	Distance       sql.NullFloat64
	Purpose        string
	Classification string
	StartMs        sql.NullInt64
	EndMs          sql.NullInt64
	Status         string
	Notes          string
	Now            int64
}

func (q *Queries) UpsertTrip(ctx context.Context, arg UpsertTripParams) error {
	_, err := q.db.ExecContext(ctx, upsertTrip,
		arg.ID, arg.Distance, arg.Purpose, arg.Classification,
		arg.StartMs, arg.EndMs, arg.Status, arg.Notes, arg.Now, arg.Now)
	return err
}

const getTrip = `SELECT ` + tripColumns + ` FROM trips WHERE id = ?`

func (q *Queries) GetTrip(ctx context.Context, id string) (Trip, error) {
	return scanTrip(q.db.QueryRowContext(ctx, getTrip, id))
}

// The bounds are optional; a NULL bound leaves that side open. Rows
// without a start only match when both bounds are NULL.
const listTrips = `SELECT ` + tripColumns + ` FROM trips
WHERE (?1 IS NULL AND ?2 IS NULL)
   OR (start_ms IS NOT NULL AND (?1 IS NULL OR start_ms >= ?1) AND (?2 IS NULL OR start_ms < ?2))
ORDER BY start_ms, id`

func (q *Queries) ListTrips(ctx context.Context, from, to sql.NullInt64) ([]Trip, error) {
	rows, err := q.db.QueryContext(ctx, listTrips, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Trip
	for rows.Next() {
		i, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteTrip = `DELETE FROM trips WHERE id = ?`

func (q *Queries) DeleteTrip(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTrip, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const expenseColumns = `id, amount, category, classification, description, date_ms, created_at, updated_at`

const upsertExpense = `
INSERT INTO expenses (` + expenseColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    amount = excluded.amount,
    category = excluded.category,
    classification = excluded.classification,
    description = excluded.description,
    date_ms = excluded.date_ms,
    updated_at = excluded.updated_at`

type UpsertExpenseParams struct {
	ID             string
	Amount         sql.NullFloat64
	Category       string
	Classification string
	Description    string
	DateMs         sql.NullInt64
	Now            int64
}

func (q *Queries) UpsertExpense(ctx context.Context, arg UpsertExpenseParams) error {
	_, err := q.db.ExecContext(ctx, upsertExpense,
		arg.ID, arg.Amount, arg.Category, arg.Classification,
		arg.Description, arg.DateMs, arg.Now, arg.Now)
	return err
}

const getExpense = `SELECT ` + expenseColumns + ` FROM expenses WHERE id = ?`

func (q *Queries) GetExpense(ctx context.Context, id string) (Expense, error) {
	return scanExpense(q.db.QueryRowContext(ctx, getExpense, id))
}

const listExpenses = `SELECT ` + expenseColumns + ` FROM expenses
WHERE (?1 IS NULL AND ?2 IS NULL)
   OR (date_ms IS NOT NULL AND (?1 IS NULL OR date_ms >= ?1) AND (?2 IS NULL OR date_ms < ?2))
ORDER BY date_ms, id`

func (q *Queries) ListExpenses(ctx context.Context, from, to sql.NullInt64) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, listExpenses, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Expense
	for rows.Next() {
		i, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteExpense = `DELETE FROM expenses WHERE id = ?`

func (q *Queries) DeleteExpense(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpense, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listRateOverrides = `SELECT rate_key, rate, updated_at FROM rate_overrides ORDER BY rate_key`

func (q *Queries) ListRateOverrides(ctx context.Context) ([]RateOverride, error) {
	rows, err := q.db.QueryContext(ctx, listRateOverrides)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RateOverride
	for rows.Next() {
		var i RateOverride
		if err := rows.Scan(&i.RateKey, &i.Rate, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertRateOverride = `
INSERT INTO rate_overrides (rate_key, rate, updated_at) VALUES (?, ?, ?)
ON CONFLICT(rate_key) DO UPDATE SET rate = excluded.rate, updated_at = excluded.updated_at`

func (q *Queries) UpsertRateOverride(ctx context.Context, key string, rate float64, now int64) error {
	_, err := q.db.ExecContext(ctx, upsertRateOverride, key, rate, now)
	return err
}

const deleteRateOverride = `DELETE FROM rate_overrides WHERE rate_key = ?`

func (q *Queries) DeleteRateOverride(ctx context.Context, key string) error {
	_, err := q.db.ExecContext(ctx, deleteRateOverride, key)
	return err
}

const exportJobColumns = `id, range_from, range_to, rate_key, scope, status, attempts, target, last_error, created_at, updated_at`

const createExportJob = `INSERT INTO export_jobs (` + exportJobColumns + `)
VALUES (?, ?, ?, ?, ?, ?, 0, '', '', ?, ?)`

type CreateExportJobParams struct {
	ID        string
	RangeFrom sql.NullInt64
	RangeTo   sql.NullInt64
	RateKey   string
	Scope     string
	Status    string
	CreatedAt int64
	Now       int64
}

func (q *Queries) CreateExportJob(ctx context.Context, arg CreateExportJobParams) error {
	_, err := q.db.ExecContext(ctx, createExportJob,
		arg.ID, arg.RangeFrom, arg.RangeTo, arg.RateKey, arg.Scope, arg.Status, arg.CreatedAt, arg.Now)
	return err
}

const getExportJob = `SELECT ` + exportJobColumns + ` FROM export_jobs WHERE id = ?`

func (q *Queries) GetExportJob(ctx context.Context, id string) (ExportJob, error) {
	return scanExportJob(q.db.QueryRowContext(ctx, getExportJob, id))
}

const getPendingExportJobs = `SELECT ` + exportJobColumns + ` FROM export_jobs
WHERE status = 'pending' ORDER BY created_at, id LIMIT ?`

func (q *Queries) GetPendingExportJobs(ctx context.Context, limit int64) ([]ExportJob, error) {
	rows, err := q.db.QueryContext(ctx, getPendingExportJobs, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ExportJob
	for rows.Next() {
		i, err := scanExportJob(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const finishExportJob = `UPDATE export_jobs
SET status = ?, target = ?, last_error = ?, attempts = attempts + 1, updated_at = ?
WHERE id = ?`

type FinishExportJobParams struct {
	ID        string
	Status    string
	Target    string
	LastError string
	Now       int64
}

func (q *Queries) FinishExportJob(ctx context.Context, arg FinishExportJobParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, finishExportJob, arg.Status, arg.Target, arg.LastError, arg.Now, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTrip(s scanner) (Trip, error) {
	var i Trip
	err := s.Scan(&i.ID, &i.Distance, &i.Purpose, &i.Classification,
		&i.StartMs, &i.EndMs, &i.Status, &i.Notes, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

func scanExpense(s scanner) (Expense, error) {
	var i Expense
	err := s.Scan(&i.ID, &i.Amount, &i.Category, &i.Classification,
		&i.Description, &i.DateMs, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

func scanExportJob(s scanner) (ExportJob, error) {
	var i ExportJob
	err := s.Scan(&i.ID, &i.RangeFrom, &i.RangeTo, &i.RateKey, &i.Scope, &i.Status,
		&i.Attempts, &i.Target, &i.LastError, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}
