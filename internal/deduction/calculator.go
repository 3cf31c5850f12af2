// Package deduction turns trips and expenses into mileage deduction
// estimates and per-category expense totals.
//
// Every calculation is a pure function of its inputs, the rate table and
// (for reports) the clock. A Calculator holds no mutable state and may be
// shared between goroutines.
package deduction

import (
	"math"
	"time"

	"roadreport/internal/core"
)

// Clock supplies the report timestamp.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// FixedClock always returns t.
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// DeductionResult is the mileage deduction for a set of trips.
type DeductionResult struct {
	TotalMiles float64 `json:"totalMiles"`
	Rate       float64 `json:"rate"`
	Deduction  float64 `json:"deduction"`
}

// ExpenseTotals maps an expense category to its summed amount. Totals are
// left unrounded; a missing category is grouped under "".
type ExpenseTotals map[string]float64

// ReportInput is the argument of Report. An empty RateKey means business.
type ReportInput struct {
	Trips    []core.Trip    `json:"trips"`
	Expenses []core.Expense `json:"expenses"`
	RateKey  string         `json:"rateKey,omitempty"`
}

// TaxReport combines mileage and expense totals.
type TaxReport struct {
	GeneratedAt   time.Time       `json:"generatedAt"`
	RateKey       string          `json:"rateKey"`
	Mileage       DeductionResult `json:"mileage"`
	ExpenseTotals ExpenseTotals   `json:"expenseTotals"`
	Issues        []Issue         `json:"issues,omitempty"`
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithRates replaces the default rate table.
func WithRates(rates RateTable) Option {
	return func(c *Calculator) {
		if rates != nil {
			c.rates = rates.Clone()
		}
	}
}

// WithClock injects the clock used for TaxReport.GeneratedAt.
func WithClock(clock Clock) Option {
	return func(c *Calculator) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithStrict makes the calculator fail with a *ValidationError instead of
// coalescing malformed values and unknown rate keys.
func WithStrict(strict bool) Option {
	return func(c *Calculator) {
		c.strict = strict
	}
}

// Calculator computes deductions against a fixed rate table.
type Calculator struct {
	rates  RateTable
	clock  Clock
	strict bool
}

// New returns a lenient calculator with the default rates and the system
// clock unless options say otherwise.
func New(opts ...Option) *Calculator {
	c := &Calculator{
		rates: DefaultRates(),
		clock: systemClock{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Rates returns a copy of the calculator's rate table.
func (c *Calculator) Rates() RateTable {
	return c.rates.Clone()
}

// Strict reports whether the calculator runs in strict mode.
func (c *Calculator) Strict() bool {
	return c.strict
}

// MileageDeduction sums trip distances and applies the rate for rateKey.
// Issues lists every coalesced distance and an unknown rate key. The
// error is non-nil only in strict mode.
func (c *Calculator) MileageDeduction(trips []core.Trip, rateKey string) (DeductionResult, []Issue, error) {
	var issues []Issue

	rate, _, known := c.rates.Resolve(rateKey)
	if !known {
		issues = append(issues, Issue{Kind: IssueUnknownRate, Field: "rateKey", Detail: rateKey})
	}

	var total float64
	for _, t := range trips {
		v, issue := checkValue(t.Distance, "distance")
		if issue != nil {
			issue.Record, issue.RecordID = "trip", t.ID
			issues = append(issues, *issue)
		}
		total += v
	}

	if c.strict && len(issues) > 0 {
		return DeductionResult{}, issues, &ValidationError{Issues: issues}
	}

	return DeductionResult{
		TotalMiles: total,
		Rate:       rate,
		Deduction:  core.RoundCents(total * rate),
	}, issues, nil
}

// ExpenseDeductions groups expenses by raw category and sums amounts.
// The error is non-nil only in strict mode.
func (c *Calculator) ExpenseDeductions(expenses []core.Expense) (ExpenseTotals, []Issue, error) {
	var issues []Issue
	totals := make(ExpenseTotals)
	for _, e := range expenses {
		v, issue := checkValue(e.Amount, "amount")
		if issue != nil {
			issue.Record, issue.RecordID = "expense", e.ID
			issues = append(issues, *issue)
		}
		totals[e.Category] += v
	}
	if c.strict && len(issues) > 0 {
		return nil, issues, &ValidationError{Issues: issues}
	}
	return totals, issues, nil
}

// Report composes MileageDeduction and ExpenseDeductions and stamps the
// current time from the injected clock.
func (c *Calculator) Report(in ReportInput) (TaxReport, error) {
	mileage, tripIssues, mErr := c.MileageDeduction(in.Trips, in.RateKey)
	totals, expenseIssues, eErr := c.ExpenseDeductions(in.Expenses)

	issues := append(tripIssues, expenseIssues...)
	if mErr != nil || eErr != nil {
		return TaxReport{}, &ValidationError{Issues: issues}
	}

	_, resolved, _ := c.rates.Resolve(in.RateKey)
	return TaxReport{
		GeneratedAt:   c.clock.Now().UTC(),
		RateKey:       resolved,
		Mileage:       mileage,
		ExpenseTotals: totals,
		Issues:        issues,
	}, nil
}

// checkValue coalesces a numeric field. Missing and non-finite values
// contribute 0; negative values are kept but reported.
func checkValue(v *float64, field string) (float64, *Issue) {
	switch {
	case v == nil:
		return 0, &Issue{Kind: IssueMissingValue, Field: field}
	case math.IsNaN(*v) || math.IsInf(*v, 0):
		return 0, &Issue{Kind: IssueInvalidValue, Field: field}
	case *v < 0:
		return *v, &Issue{Kind: IssueNegativeValue, Field: field}
	default:
		return *v, nil
	}
}

var defaultCalculator = New()

// CalculateMileageDeduction uses the default rates. It never fails.
func CalculateMileageDeduction(trips []core.Trip, rateKey string) DeductionResult {
	r, _, _ := defaultCalculator.MileageDeduction(trips, rateKey)
	return r
}

// CalculateExpenseDeductions groups expenses by category. It never fails.
func CalculateExpenseDeductions(expenses []core.Expense) ExpenseTotals {
	t, _, _ := defaultCalculator.ExpenseDeductions(expenses)
	return t
}

// GenerateTaxReport uses the default rates and the system clock.
func GenerateTaxReport(in ReportInput) TaxReport {
	r, _ := defaultCalculator.Report(in)
	return r
}
