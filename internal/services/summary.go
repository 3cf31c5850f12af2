package services

import (
	"fmt"
	"sort"
	"time"

	"roadreport/internal/core"
)

// Summarize splits miles and expense amounts into business and personal.
// Unclassified records count as personal.
func Summarize(trips []core.Trip, expenses []core.Expense) core.Summary {
	var s core.Summary
	for _, t := range trips {
		miles := t.Miles()
		if t.IsBusiness() {
			s.Mileage.Business += miles
		} else {
			s.Mileage.Personal += miles
		}
		s.Mileage.Total += miles
	}
	for _, e := range expenses {
		amount := e.Dollars()
		if e.IsBusiness() {
			s.Expenses.Business += amount
		} else {
			s.Expenses.Personal += amount
		}
		s.Expenses.Total += amount
	}
	return s
}

// MonthlyMetrics buckets records by calendar month in loc, newest first.
// The month containing now is always present. Records without a date are
// skipped.
func MonthlyMetrics(trips []core.Trip, expenses []core.Expense, now time.Time, loc *time.Location) []core.MonthMetrics {
	if loc == nil {
		loc = time.UTC
	}
	buckets := make(map[string]*core.MonthMetrics)
	bucket := func(t time.Time) *core.MonthMetrics {
		t = t.In(loc)
		key := monthKey(t.Year(), t.Month())
		m, ok := buckets[key]
		if !ok {
			m = &core.MonthMetrics{
				Key:   key,
				Year:  t.Year(),
				Month: t.Month(),
				Label: time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc).Format("January 2006"),
			}
			buckets[key] = m
		}
		return m
	}

	bucket(now)
	for _, t := range trips {
		if t.Start.IsZero() {
			continue
		}
		m := bucket(t.Start)
		m.DrivesCount++
		if t.IsBusiness() {
			m.BusinessDrivesCount++
			m.BusinessMiles += t.Miles()
		} else {
			m.MiscDrivesCount++
			m.MiscMiles += t.Miles()
		}
	}
	for _, e := range expenses {
		if e.Date.IsZero() {
			continue
		}
		m := bucket(e.Date)
		if e.IsBusiness() {
			m.BusinessExpenses += e.Dollars()
		} else {
			m.MiscExpenses += e.Dollars()
		}
	}

	out := make([]core.MonthMetrics, 0, len(buckets))
	for _, m := range buckets {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key > out[j].Key })
	return out
}

// FilterTrips keeps the trips the scope selects.
func FilterTrips(trips []core.Trip, scope core.Scope) []core.Trip {
	out := make([]core.Trip, 0, len(trips))
	for _, t := range trips {
		if scope.Includes(t.Label()) {
			out = append(out, t)
		}
	}
	return out
}

// FilterExpenses keeps the expenses the scope selects.
func FilterExpenses(expenses []core.Expense, scope core.Scope) []core.Expense {
	out := make([]core.Expense, 0, len(expenses))
	for _, e := range expenses {
		if scope.Includes(e.Classification) {
			out = append(out, e)
		}
	}
	return out
}

func monthKey(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, int(month))
}
