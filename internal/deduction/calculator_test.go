package deduction

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roadreport/internal/core"
)

func trip(id string, miles float64) core.Trip {
	return core.Trip{ID: id, Distance: core.Float(miles)}
}

func expense(category string, amount float64) core.Expense {
	return core.Expense{Category: category, Amount: core.Float(amount)}
}

func TestMileageDeduction_Scenario(t *testing.T) {
	got := CalculateMileageDeduction([]core.Trip{trip("t1", 10), trip("t2", 20.5)}, "business")
	assert.Equal(t, DeductionResult{TotalMiles: 30.5, Rate: 0.70, Deduction: 21.35}, got)
}

func TestMileageDeduction_Empty(t *testing.T) {
	for _, key := range []string{"", RateBusiness, RateMedicalMoving, RateCharitable, "bogus"} {
		got := CalculateMileageDeduction(nil, key)
		rate, _, _ := DefaultRates().Resolve(key)
		assert.Equal(t, DeductionResult{Rate: rate}, got, "rate key %q", key)
	}
}

func TestMileageDeduction_RateResolution(t *testing.T) {
	trips := []core.Trip{trip("t1", 100)}
	cases := []struct {
		key  string
		rate float64
	}{
		{"", 0.70},
		{"business", 0.70},
		{"medicalMoving", 0.21},
		{"charitable", 0.14},
		{"Business", 0.70}, // keys are case-sensitive, falls back
		{"unknown", 0.70},
	}
	for _, tc := range cases {
		got := CalculateMileageDeduction(trips, tc.key)
		assert.Equal(t, tc.rate, got.Rate, "key %q", tc.key)
		assert.Equal(t, core.RoundCents(100*tc.rate), got.Deduction, "key %q", tc.key)
	}
}

func TestMileageDeduction_SumProperty(t *testing.T) {
	lists := [][]float64{
		{},
		{0},
		{1.1, 2.2, 3.3},
		{12.34, 0.01, 99.99, 250},
		{0.333, 0.333, 0.334},
	}
	for _, miles := range lists {
		var trips []core.Trip
		var want float64
		for i, m := range miles {
			trips = append(trips, trip(string(rune('a'+i)), m))
			want += m
		}
		got := CalculateMileageDeduction(trips, RateBusiness)
		assert.Equal(t, want, got.TotalMiles)
		assert.Equal(t, core.RoundCents(want*0.70), got.Deduction)
	}
}

func TestMileageDeduction_MissingDistance(t *testing.T) {
	trips := []core.Trip{trip("t1", 10), {ID: "t3"}}
	c := New()
	got, issues, err := c.MileageDeduction(trips, RateBusiness)
	require.NoError(t, err)
	assert.Equal(t, 10.0, got.TotalMiles)
	assert.Equal(t, 7.0, got.Deduction)
	require.Len(t, issues, 1)
	assert.Equal(t, Issue{Kind: IssueMissingValue, Record: "trip", RecordID: "t3", Field: "distance"}, issues[0])
}

func TestMileageDeduction_NonFiniteAndNegative(t *testing.T) {
	trips := []core.Trip{
		{ID: "nan", Distance: core.Float(math.NaN())},
		{ID: "inf", Distance: core.Float(math.Inf(1))},
		trip("neg", -5),
		trip("ok", 15),
	}
	got, issues, err := New().MileageDeduction(trips, "")
	require.NoError(t, err)
	assert.Equal(t, 10.0, got.TotalMiles)
	assert.Equal(t, 7.0, got.Deduction)

	kinds := make(map[string]IssueKind)
	for _, i := range issues {
		kinds[i.RecordID] = i.Kind
	}
	assert.Equal(t, map[string]IssueKind{
		"nan": IssueInvalidValue,
		"inf": IssueInvalidValue,
		"neg": IssueNegativeValue,
	}, kinds)
}

func TestMileageDeduction_UnknownRateReported(t *testing.T) {
	got, issues, err := New().MileageDeduction([]core.Trip{trip("t1", 1)}, "commute")
	require.NoError(t, err)
	assert.Equal(t, 0.70, got.Rate)
	require.Len(t, issues, 1)
	assert.Equal(t, IssueUnknownRate, issues[0].Kind)
	assert.Equal(t, "commute", issues[0].Detail)
}

func TestExpenseDeductions(t *testing.T) {
	assert.Empty(t, CalculateExpenseDeductions(nil))
	assert.NotNil(t, CalculateExpenseDeductions(nil))

	got := CalculateExpenseDeductions([]core.Expense{
		expense("Gas", 10), expense("Gas", 5), expense("Tolls", 3),
	})
	assert.Equal(t, ExpenseTotals{"Gas": 15, "Tolls": 3}, got)

	got = CalculateExpenseDeductions([]core.Expense{expense("Gas", 42.5), expense("Tires", 120.0)})
	assert.Equal(t, ExpenseTotals{"Gas": 42.5, "Tires": 120.0}, got)
}

func TestExpenseDeductions_MissingAmountAndCategory(t *testing.T) {
	got, issues, err := New().ExpenseDeductions([]core.Expense{
		{ID: "e1", Category: "Gas"},
		{ID: "e2", Amount: core.Float(4)},
		{ID: "e3", Amount: core.Float(6)},
	})
	require.NoError(t, err)
	// Missing categories group under the raw empty key.
	assert.Equal(t, ExpenseTotals{"Gas": 0, "": 10}, got)
	require.Len(t, issues, 1)
	assert.Equal(t, "e1", issues[0].RecordID)
}

func TestExpenseDeductions_NotRounded(t *testing.T) {
	got := CalculateExpenseDeductions([]core.Expense{expense("Gas", 0.1), expense("Gas", 0.2)})
	// The float sum is returned as-is while the mileage deduction is rounded.
	assert.Equal(t, 0.1+0.2, got["Gas"])
	assert.NotEqual(t, 0.3, got["Gas"])

	m := CalculateMileageDeduction([]core.Trip{trip("a", 0.1), trip("b", 0.2)}, "")
	assert.Equal(t, 0.1+0.2, m.TotalMiles)
	assert.Equal(t, 0.21, m.Deduction)
}

func TestReport(t *testing.T) {
	at := time.Date(2025, 4, 15, 12, 0, 0, 0, time.FixedZone("EDT", -4*3600))
	c := New(WithClock(FixedClock(at)))
	in := ReportInput{
		Trips:    []core.Trip{trip("t1", 10), trip("t2", 20.5)},
		Expenses: []core.Expense{expense("Gas", 42.5), expense("Tires", 120)},
	}

	r1, err := c.Report(in)
	require.NoError(t, err)
	r2, err := c.Report(in)
	require.NoError(t, err)

	assert.Equal(t, r1, r2)
	assert.Equal(t, at.UTC(), r1.GeneratedAt)
	assert.Equal(t, RateBusiness, r1.RateKey)
	assert.Equal(t, DeductionResult{TotalMiles: 30.5, Rate: 0.70, Deduction: 21.35}, r1.Mileage)
	assert.Equal(t, ExpenseTotals{"Gas": 42.5, "Tires": 120}, r1.ExpenseTotals)
	assert.Empty(t, r1.Issues)
}

func TestGenerateTaxReport(t *testing.T) {
	before := time.Now().UTC()
	r := GenerateTaxReport(ReportInput{RateKey: RateCharitable, Trips: []core.Trip{trip("t", 100)}})
	assert.False(t, r.GeneratedAt.Before(before.Truncate(time.Second)))
	assert.Equal(t, 14.0, r.Mileage.Deduction)
	assert.Empty(t, r.ExpenseTotals)
}

func TestWithRates(t *testing.T) {
	rates := DefaultRates().Merge(map[string]float64{RateBusiness: 0.655, "volunteer": 0.5})
	c := New(WithRates(rates))

	got, _, err := c.MileageDeduction([]core.Trip{trip("t", 100)}, "")
	require.NoError(t, err)
	assert.Equal(t, 65.5, got.Deduction)

	got, issues, err := c.MileageDeduction([]core.Trip{trip("t", 10)}, "volunteer")
	require.NoError(t, err)
	assert.Empty(t, issues)
	assert.Equal(t, 5.0, got.Deduction)

	// The calculator keeps its own copy.
	rates[RateBusiness] = 99
	assert.Equal(t, 0.655, c.Rates()[RateBusiness])
}

func TestStrictMode(t *testing.T) {
	c := New(WithStrict(true))
	assert.True(t, c.Strict())

	_, _, err := c.MileageDeduction([]core.Trip{{ID: "t3"}}, "")
	require.Error(t, err)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Issues, 1)
	assert.ErrorIs(t, err, ErrInvalidRecord)
	assert.NotErrorIs(t, err, ErrUnknownRate)

	_, _, err = c.MileageDeduction(nil, "commute")
	assert.ErrorIs(t, err, ErrUnknownRate)
	assert.NotErrorIs(t, err, ErrInvalidRecord)

	_, _, err = c.ExpenseDeductions([]core.Expense{{ID: "e", Category: "Gas", Amount: core.Float(-1)}})
	assert.ErrorIs(t, err, ErrInvalidRecord)

	_, err = c.Report(ReportInput{
		Trips:    []core.Trip{trip("t1", 1)},
		Expenses: []core.Expense{{ID: "e1", Category: "Gas"}},
	})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, err.Error(), `expense "e1"`)

	// Clean input passes in strict mode too.
	r, err := c.Report(ReportInput{Trips: []core.Trip{trip("t1", 10), trip("t2", 20.5)}})
	require.NoError(t, err)
	assert.Equal(t, 21.35, r.Mileage.Deduction)
}

func TestCalculatorConcurrentUse(t *testing.T) {
	c := New(WithClock(FixedClock(time.Unix(0, 0))))
	in := ReportInput{Trips: []core.Trip{trip("t1", 10), trip("t2", 20.5)}, Expenses: []core.Expense{expense("Gas", 1)}}
	want, err := c.Report(in)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := c.Report(in)
			assert.NoError(t, err)
			assert.Equal(t, want, got)
		}()
	}
	wg.Wait()
}
