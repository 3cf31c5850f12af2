package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"roadreport/internal/core"
	"roadreport/internal/deduction"
	"roadreport/internal/store"
)

// ReportQuery selects the records and rate for a report.
type ReportQuery struct {
	Range   core.DateRange `json:"range"`
	RateKey string         `json:"rateKey,omitempty"`
	Scope   core.Scope     `json:"scope"`
}

// ReportResult is a generated report plus the query that produced it.
type ReportResult struct {
	Query        ReportQuery         `json:"query"`
	Report       deduction.TaxReport `json:"report"`
	TripCount    int                 `json:"tripCount"`
	ExpenseCount int                 `json:"expenseCount"`
}

// UnclassifiedRecords lists records still waiting for a classification.
type UnclassifiedRecords struct {
	Trips    []core.Trip    `json:"trips"`
	Expenses []core.Expense `json:"expenses"`
}

// ReportConfig configures a ReportService.
type ReportConfig struct {
	Rates          deduction.RateTable
	DefaultRateKey string
	Strict         bool
	Clock          deduction.Clock
	Location       *time.Location
}

// ReportService loads records from the store and runs the deduction
// calculator over them.
type ReportService struct {
	trips    store.TripReader
	expenses store.ExpenseReader
	rates    store.RateStore
	config   ReportConfig
}

// NewReportService creates a report service. rates may be nil, in which
// case only the configured table is used.
func NewReportService(trips store.TripReader, expenses store.ExpenseReader, rates store.RateStore, config ReportConfig) *ReportService {
	if config.Rates == nil {
		config.Rates = deduction.DefaultRates()
	}
	if config.Clock == nil {
		config.Clock = deduction.ClockFunc(time.Now)
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	return &ReportService{
		trips:    trips,
		expenses: expenses,
		rates:    rates,
		config:   config,
	}
}

// Normalize fills in the default scope and rate key.
func (s *ReportService) Normalize(q ReportQuery) ReportQuery {
	if q.Scope == "" {
		q.Scope = core.ScopeBusiness
	}
	if q.RateKey == "" {
		q.RateKey = s.config.DefaultRateKey
	}
	return q
}

// Generate builds a tax report for the query. In strict mode malformed
// records surface as a *deduction.ValidationError.
func (s *ReportService) Generate(ctx context.Context, q ReportQuery) (ReportResult, error) {
	q = s.Normalize(q)
	trips, expenses, err := s.loadAll(ctx, q.Range)
	if err != nil {
		return ReportResult{}, err
	}
	overrides, err := s.rateOverrides(ctx)
	if err != nil {
		return ReportResult{}, err
	}

	trips = FilterTrips(trips, q.Scope)
	expenses = FilterExpenses(expenses, q.Scope)

	calc := s.calculator(overrides)
	report, err := calc.Report(deduction.ReportInput{
		Trips:    trips,
		Expenses: expenses,
		RateKey:  q.RateKey,
	})
	if err != nil {
		slog.WarnContext(ctx, "Report rejected in strict mode",
			"scope", q.Scope, "rate_key", q.RateKey, "error", err)
		return ReportResult{}, err
	}

	if len(report.Issues) > 0 {
		slog.WarnContext(ctx, "Report generated with coalesced values",
			"issues", len(report.Issues), "scope", q.Scope)
	}
	slog.DebugContext(ctx, "Report generated",
		"scope", q.Scope,
		"rate_key", report.RateKey,
		"trips", len(trips),
		"expenses", len(expenses),
		"total_miles", report.Mileage.TotalMiles,
		"deduction", report.Mileage.Deduction)

	return ReportResult{
		Query:        q,
		Report:       report,
		TripCount:    len(trips),
		ExpenseCount: len(expenses),
	}, nil
}

// Records returns the trips and expenses a report for q would use.
func (s *ReportService) Records(ctx context.Context, q ReportQuery) ([]core.Trip, []core.Expense, error) {
	q = s.Normalize(q)
	trips, expenses, err := s.loadAll(ctx, q.Range)
	if err != nil {
		return nil, nil, err
	}
	return FilterTrips(trips, q.Scope), FilterExpenses(expenses, q.Scope), nil
}

// DefaultRateKey is the rate used when a query names none.
func (s *ReportService) DefaultRateKey() string {
	if s.config.DefaultRateKey == "" {
		return deduction.RateBusiness
	}
	return s.config.DefaultRateKey
}

// Summary returns the business/personal split for the range.
func (s *ReportService) Summary(ctx context.Context, r core.DateRange) (core.Summary, error) {
	trips, expenses, err := s.loadAll(ctx, r)
	if err != nil {
		return core.Summary{}, err
	}
	return Summarize(trips, expenses), nil
}

// Months returns per-month metrics, newest first.
func (s *ReportService) Months(ctx context.Context) ([]core.MonthMetrics, error) {
	trips, expenses, err := s.loadAll(ctx, core.DateRange{})
	if err != nil {
		return nil, err
	}
	return MonthlyMetrics(trips, expenses, s.config.Clock.Now(), s.config.Location), nil
}

// Unclassified returns trips without a purpose and expenses without a
// classification.
func (s *ReportService) Unclassified(ctx context.Context) (UnclassifiedRecords, error) {
	trips, expenses, err := s.loadAll(ctx, core.DateRange{})
	if err != nil {
		return UnclassifiedRecords{}, err
	}
	out := UnclassifiedRecords{Trips: []core.Trip{}, Expenses: []core.Expense{}}
	for _, t := range trips {
		if t.Unclassified() {
			out.Trips = append(out.Trips, t)
		}
	}
	for _, e := range expenses {
		if e.Unclassified() {
			out.Expenses = append(out.Expenses, e)
		}
	}
	return out, nil
}

// Rates returns the configured table with stored overrides applied.
func (s *ReportService) Rates(ctx context.Context) (deduction.RateTable, error) {
	overrides, err := s.rateOverrides(ctx)
	if err != nil {
		return nil, err
	}
	return s.config.Rates.Merge(overrides), nil
}

// Location is the zone used for month boundaries.
func (s *ReportService) Location() *time.Location {
	return s.config.Location
}

// Now reads the service clock.
func (s *ReportService) Now() time.Time {
	return s.config.Clock.Now()
}

func (s *ReportService) calculator(overrides map[string]float64) *deduction.Calculator {
	return deduction.New(
		deduction.WithRates(s.config.Rates.Merge(overrides)),
		deduction.WithClock(s.config.Clock),
		deduction.WithStrict(s.config.Strict),
	)
}

func (s *ReportService) rateOverrides(ctx context.Context) (map[string]float64, error) {
	if s.rates == nil {
		return nil, nil
	}
	overrides, err := s.rates.RateOverrides(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rate overrides: %w", err)
	}
	return overrides, nil
}

func (s *ReportService) loadAll(ctx context.Context, r core.DateRange) ([]core.Trip, []core.Expense, error) {
	if err := r.Validate(); err != nil {
		return nil, nil, err
	}
	var (
		trips    []core.Trip
		expenses []core.Expense
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		trips, err = s.trips.ListTrips(gctx, r)
		if err != nil {
			return fmt.Errorf("load trips: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		expenses, err = s.expenses.ListExpenses(gctx, r)
		if err != nil {
			return fmt.Errorf("load expenses: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return trips, expenses, nil
}
