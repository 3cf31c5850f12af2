package store

import (
	"context"
	"errors"

	"roadreport/internal/core"
)

var ErrNotFound = errors.New("not found")

// Ports for outbound adapters.
type (
	TripReader interface {
		// ListTrips returns trips whose start falls in the range, oldest
		// first. A zero range returns every trip.
		ListTrips(ctx context.Context, r core.DateRange) ([]core.Trip, error)
		GetTrip(ctx context.Context, id string) (core.Trip, error)
	}

	TripWriter interface {
		// SaveTrip inserts or replaces the trip with the same ID.
		SaveTrip(ctx context.Context, t core.Trip) error
		DeleteTrip(ctx context.Context, id string) error
	}

	ExpenseReader interface {
		ListExpenses(ctx context.Context, r core.DateRange) ([]core.Expense, error)
		GetExpense(ctx context.Context, id string) (core.Expense, error)
	}

	ExpenseWriter interface {
		SaveExpense(ctx context.Context, e core.Expense) error
		DeleteExpense(ctx context.Context, id string) error
	}

	// RateStore persists user-defined per-mile rates that override the
	// configured table.
	RateStore interface {
		RateOverrides(ctx context.Context) (map[string]float64, error)
		SetRateOverride(ctx context.Context, key string, rate float64) error
		DeleteRateOverride(ctx context.Context, key string) error
	}

	ExportJobStore interface {
		CreateExportJob(ctx context.Context, job core.ExportJob) error
		GetExportJob(ctx context.Context, id string) (core.ExportJob, error)
		// PendingExportJobs returns up to limit pending jobs, oldest first.
		PendingExportJobs(ctx context.Context, limit int) ([]core.ExportJob, error)
		MarkExportDone(ctx context.Context, id, target string) error
		MarkExportFailed(ctx context.Context, id, reason string) error
		// RecordExportAttempt counts a failed attempt and keeps the job
		// pending.
		RecordExportAttempt(ctx context.Context, id, reason string) error
	}

	// Store is everything a backend provides.
	Store interface {
		TripReader
		TripWriter
		ExpenseReader
		ExpenseWriter
		RateStore
		ExportJobStore
		Close() error
	}
)
