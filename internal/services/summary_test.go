package services

import (
	"testing"
	"time"

	"roadreport/internal/core"
)

func at(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 9, 0, 0, 0, time.UTC)
}

func TestSummarize(t *testing.T) {
	trips := []core.Trip{
		{ID: "1", Distance: core.Float(10), Purpose: "Business"},
		{ID: "2", Distance: core.Float(4), Purpose: "Errands"},
		{ID: "3", Distance: nil, Purpose: "Business"},
		{ID: "4", Distance: core.Float(6), Classification: "business trip"},
		{ID: "5", Distance: core.Float(1)},
	}
	expenses := []core.Expense{
		{ID: "a", Amount: core.Float(20), Classification: "Business"},
		{ID: "b", Amount: core.Float(5), Classification: "Personal"},
		{ID: "c", Amount: nil, Classification: "Business"},
		{ID: "d", Amount: core.Float(2.5)},
	}

	got := Summarize(trips, expenses)
	want := core.Summary{
		Mileage:  core.ClassTotals{Business: 16, Personal: 5, Total: 21},
		Expenses: core.ClassTotals{Business: 20, Personal: 7.5, Total: 27.5},
	}
	if got != want {
		t.Fatalf("Summarize = %+v, want %+v", got, want)
	}
}

func TestMonthlyMetrics(t *testing.T) {
	now := at(2024, time.May, 15)
	trips := []core.Trip{
		{ID: "1", Distance: core.Float(10), Purpose: "Business", Start: at(2024, time.March, 2)},
		{ID: "2", Distance: core.Float(5), Purpose: "Personal", Start: at(2024, time.March, 20)},
		{ID: "3", Distance: core.Float(7), Purpose: "Business", Start: at(2023, time.December, 31)},
		{ID: "4", Distance: core.Float(99), Purpose: "Business"}, // undated
	}
	expenses := []core.Expense{
		{ID: "a", Amount: core.Float(30), Classification: "Business", Date: at(2024, time.March, 5)},
		{ID: "b", Amount: core.Float(10), Classification: "", Date: at(2024, time.March, 6)},
		{ID: "c", Amount: core.Float(1), Classification: "Business"}, // undated
	}

	got := MonthlyMetrics(trips, expenses, now, time.UTC)
	if len(got) != 3 {
		t.Fatalf("expected 3 months, got %d: %+v", len(got), got)
	}
	keys := []string{got[0].Key, got[1].Key, got[2].Key}
	if keys[0] != "2024-05" || keys[1] != "2024-03" || keys[2] != "2023-12" {
		t.Fatalf("unexpected order: %v", keys)
	}

	current := got[0]
	if current.DrivesCount != 0 || current.Label != "May 2024" {
		t.Fatalf("current month should be empty: %+v", current)
	}

	mar := got[1]
	if mar.DrivesCount != 2 || mar.BusinessDrivesCount != 1 || mar.MiscDrivesCount != 1 {
		t.Fatalf("unexpected March counts: %+v", mar)
	}
	if mar.BusinessMiles != 10 || mar.MiscMiles != 5 {
		t.Fatalf("unexpected March miles: %+v", mar)
	}
	if mar.BusinessExpenses != 30 || mar.MiscExpenses != 10 {
		t.Fatalf("unexpected March expenses: %+v", mar)
	}
	if mar.BusinessMilesPercent() != 67 || mar.BusinessExpensesPercent() != 75 {
		t.Fatalf("unexpected percentages: %d %d", mar.BusinessMilesPercent(), mar.BusinessExpensesPercent())
	}
}

func TestMonthlyMetricsLocation(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	// 02:00 UTC on April 1st is still March 31st in New York.
	trips := []core.Trip{{ID: "1", Distance: core.Float(3), Purpose: "Business", Start: time.Date(2024, 4, 1, 2, 0, 0, 0, time.UTC)}}
	got := MonthlyMetrics(trips, nil, time.Date(2024, 3, 15, 12, 0, 0, 0, ny), ny)
	if len(got) != 1 || got[0].Key != "2024-03" || got[0].DrivesCount != 1 {
		t.Fatalf("unexpected buckets: %+v", got)
	}
}

func TestFilterByScope(t *testing.T) {
	trips := []core.Trip{
		{ID: "1", Purpose: "Business"},
		{ID: "2", Purpose: "Personal"},
		{ID: "3", Classification: "BUSINESS"},
		{ID: "4"},
	}
	expenses := []core.Expense{
		{ID: "a", Classification: "Business"},
		{ID: "b", Classification: "Unclassified"},
	}

	tests := []struct {
		scope     core.Scope
		wantTrips []string
		wantExp   []string
	}{
		{core.ScopeBusiness, []string{"1", "3"}, []string{"a"}},
		{core.ScopePersonal, []string{"2", "4"}, []string{"b"}},
		{core.ScopeAll, []string{"1", "2", "3", "4"}, []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.scope), func(t *testing.T) {
			gotT := FilterTrips(trips, tt.scope)
			gotE := FilterExpenses(expenses, tt.scope)
			if len(gotT) != len(tt.wantTrips) || len(gotE) != len(tt.wantExp) {
				t.Fatalf("got %d trips %d expenses", len(gotT), len(gotE))
			}
			for i, id := range tt.wantTrips {
				if gotT[i].ID != id {
					t.Errorf("trip[%d] = %s, want %s", i, gotT[i].ID, id)
				}
			}
			for i, id := range tt.wantExp {
				if gotE[i].ID != id {
					t.Errorf("expense[%d] = %s, want %s", i, gotE[i].ID, id)
				}
			}
		})
	}
}
