package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roadreport/internal/core"
	"roadreport/internal/deduction"
	"roadreport/internal/store/memory"
)

var fixedNow = time.Date(2024, time.April, 2, 10, 0, 0, 0, time.UTC)

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	st := memory.New()
	for _, tr := range []core.Trip{
		{ID: "t1", Distance: core.Float(10), Purpose: "Business", Start: at(2024, time.March, 1)},
		{ID: "t2", Distance: core.Float(20.5), Purpose: "Business", Start: at(2024, time.March, 2)},
		{ID: "t3", Distance: core.Float(8), Purpose: "Personal", Start: at(2024, time.March, 3)},
		{ID: "t4", Distance: core.Float(50), Purpose: "Business", Start: at(2024, time.February, 10)},
		{ID: "t5", Distance: core.Float(2), Start: at(2024, time.March, 4)},
	} {
		require.NoError(t, st.SaveTrip(ctx, tr))
	}
	for _, e := range []core.Expense{
		{ID: "e1", Amount: core.Float(10), Category: "Gas", Classification: "Business", Date: at(2024, time.March, 1)},
		{ID: "e2", Amount: core.Float(5), Category: "Gas", Classification: "Business", Date: at(2024, time.March, 2)},
		{ID: "e3", Amount: core.Float(3), Category: "Tolls", Classification: "Business", Date: at(2024, time.March, 3)},
		{ID: "e4", Amount: core.Float(40), Category: "Food", Classification: "Personal", Date: at(2024, time.March, 4)},
	} {
		require.NoError(t, st.SaveExpense(ctx, e))
	}
	return st
}

func newReportService(st *memory.Store, cfg ReportConfig) *ReportService {
	if cfg.Clock == nil {
		cfg.Clock = deduction.FixedClock(fixedNow)
	}
	return NewReportService(st, st, st, cfg)
}

func TestReportService_GenerateBusinessScope(t *testing.T) {
	svc := newReportService(seededStore(t), ReportConfig{})
	march := core.MonthRange(2024, time.March, time.UTC)

	res, err := svc.Generate(context.Background(), ReportQuery{Range: march})
	require.NoError(t, err)

	assert.Equal(t, core.ScopeBusiness, res.Query.Scope)
	assert.Equal(t, 2, res.TripCount)
	assert.Equal(t, 3, res.ExpenseCount)
	assert.Equal(t, deduction.DeductionResult{TotalMiles: 30.5, Rate: 0.70, Deduction: 21.35}, res.Report.Mileage)
	assert.Equal(t, deduction.ExpenseTotals{"Gas": 15, "Tolls": 3}, res.Report.ExpenseTotals)
	assert.Equal(t, fixedNow, res.Report.GeneratedAt)
	assert.Equal(t, "business", res.Report.RateKey)
}

func TestReportService_GenerateScopes(t *testing.T) {
	svc := newReportService(seededStore(t), ReportConfig{})
	march := core.MonthRange(2024, time.March, time.UTC)

	personal, err := svc.Generate(context.Background(), ReportQuery{Range: march, Scope: core.ScopePersonal})
	require.NoError(t, err)
	assert.Equal(t, 10.0, personal.Report.Mileage.TotalMiles)
	assert.Equal(t, deduction.ExpenseTotals{"Food": 40}, personal.Report.ExpenseTotals)

	all, err := svc.Generate(context.Background(), ReportQuery{Range: march, Scope: core.ScopeAll})
	require.NoError(t, err)
	assert.Equal(t, 40.5, all.Report.Mileage.TotalMiles)
	assert.Equal(t, 4, all.TripCount)
}

func TestReportService_RateKeyAndOverrides(t *testing.T) {
	st := seededStore(t)
	ctx := context.Background()
	march := core.MonthRange(2024, time.March, time.UTC)

	svc := newReportService(st, ReportConfig{DefaultRateKey: deduction.RateCharitable})
	res, err := svc.Generate(ctx, ReportQuery{Range: march})
	require.NoError(t, err)
	assert.Equal(t, 0.14, res.Report.Mileage.Rate)
	assert.Equal(t, 4.27, res.Report.Mileage.Deduction)

	require.NoError(t, st.SetRateOverride(ctx, deduction.RateBusiness, 0.655))
	res, err = svc.Generate(ctx, ReportQuery{Range: march, RateKey: deduction.RateBusiness})
	require.NoError(t, err)
	assert.Equal(t, 0.655, res.Report.Mileage.Rate)
	assert.Equal(t, 19.98, res.Report.Mileage.Deduction)

	rates, err := svc.Rates(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.655, rates[deduction.RateBusiness])
	assert.Equal(t, 0.21, rates[deduction.RateMedicalMoving])
}

func TestReportService_UnknownRateFallsBack(t *testing.T) {
	svc := newReportService(seededStore(t), ReportConfig{})
	res, err := svc.Generate(context.Background(), ReportQuery{
		Range:   core.MonthRange(2024, time.March, time.UTC),
		RateKey: "space-travel",
	})
	require.NoError(t, err)
	assert.Equal(t, 0.70, res.Report.Mileage.Rate)
	require.Len(t, res.Report.Issues, 1)
	assert.Equal(t, deduction.IssueUnknownRate, res.Report.Issues[0].Kind)
}

func TestReportService_Strict(t *testing.T) {
	st := seededStore(t)
	require.NoError(t, st.SaveTrip(context.Background(), core.Trip{ID: "bad", Purpose: "Business", Start: at(2024, time.March, 9)}))
	svc := newReportService(st, ReportConfig{Strict: true})

	_, err := svc.Generate(context.Background(), ReportQuery{Range: core.MonthRange(2024, time.March, time.UTC)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, deduction.ErrInvalidRecord))
	var verr *deduction.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "bad", verr.Issues[0].RecordID)
}

func TestReportService_InvalidRange(t *testing.T) {
	svc := newReportService(seededStore(t), ReportConfig{})
	_, err := svc.Generate(context.Background(), ReportQuery{Range: core.DateRange{
		From: at(2024, time.April, 1),
		To:   at(2024, time.March, 1),
	}})
	assert.ErrorIs(t, err, core.ErrInvalidRange)
}

func TestReportService_Summary(t *testing.T) {
	svc := newReportService(seededStore(t), ReportConfig{})
	s, err := svc.Summary(context.Background(), core.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, core.ClassTotals{Business: 80.5, Personal: 10, Total: 90.5}, s.Mileage)
	assert.Equal(t, core.ClassTotals{Business: 18, Personal: 40, Total: 58}, s.Expenses)
}

func TestReportService_Months(t *testing.T) {
	svc := newReportService(seededStore(t), ReportConfig{})
	months, err := svc.Months(context.Background())
	require.NoError(t, err)
	require.Len(t, months, 3)
	assert.Equal(t, "2024-04", months[0].Key)
	assert.Equal(t, "2024-03", months[1].Key)
	assert.Equal(t, 4, months[1].DrivesCount)
	assert.Equal(t, "2024-02", months[2].Key)
}

func TestReportService_Unclassified(t *testing.T) {
	st := seededStore(t)
	ctx := context.Background()
	require.NoError(t, st.SaveTrip(ctx, core.Trip{ID: "t6", Distance: core.Float(1), Purpose: " Unclassified ", Start: at(2024, time.March, 5)}))
	require.NoError(t, st.SaveExpense(ctx, core.Expense{ID: "e5", Amount: core.Float(1), Category: "Gas", Date: at(2024, time.March, 5)}))

	got, err := newReportService(st, ReportConfig{}).Unclassified(ctx)
	require.NoError(t, err)
	require.Len(t, got.Trips, 2)
	assert.Equal(t, "t5", got.Trips[0].ID)
	assert.Equal(t, "t6", got.Trips[1].ID)
	require.Len(t, got.Expenses, 1)
	assert.Equal(t, "e5", got.Expenses[0].ID)
}

func TestReportService_Defaults(t *testing.T) {
	svc := NewReportService(memory.New(), memory.New(), nil, ReportConfig{})
	assert.Equal(t, time.UTC, svc.Location())
	rates, err := svc.Rates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, deduction.DefaultRates(), rates)
	assert.WithinDuration(t, time.Now(), svc.Now(), time.Minute)
}
