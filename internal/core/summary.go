package core

import "time"

// ClassTotals splits a quantity (miles or dollars) by classification.
type ClassTotals struct {
	Business float64 `json:"business"`
	Personal float64 `json:"personal"`
	Total    float64 `json:"total"`
}

// Summary is the business/personal rollup of trips and expenses.
type Summary struct {
	Mileage  ClassTotals `json:"mileage"`
	Expenses ClassTotals `json:"expenses"`
}

// MonthMetrics is a compact summary for a specific year+month.
type MonthMetrics struct {
	Key                 string     `json:"key"` // YYYY-MM
	Year                int        `json:"year"`
	Month               time.Month `json:"month"`
	Label               string     `json:"label"`
	DrivesCount         int        `json:"drivesCount"`
	BusinessDrivesCount int        `json:"businessDrivesCount"`
	MiscDrivesCount     int        `json:"miscDrivesCount"`
	BusinessMiles       float64    `json:"businessMiles"`
	MiscMiles           float64    `json:"miscMiles"`
	BusinessExpenses    float64    `json:"businessExpenses"`
	MiscExpenses        float64    `json:"miscExpenses"`
}

// BusinessMilesPercent is the rounded share of business miles, 0-100.
func (m MonthMetrics) BusinessMilesPercent() int {
	return percent(m.BusinessMiles, m.BusinessMiles+m.MiscMiles)
}

// BusinessExpensesPercent is the rounded share of business expenses, 0-100.
func (m MonthMetrics) BusinessExpensesPercent() int {
	return percent(m.BusinessExpenses, m.BusinessExpenses+m.MiscExpenses)
}

// TotalExpenses returns business plus misc expenses.
func (m MonthMetrics) TotalExpenses() float64 {
	return m.BusinessExpenses + m.MiscExpenses
}

// percent divides by at least 1 so empty months read as 0%.
func percent(part, whole float64) int {
	if whole < 1 {
		whole = 1
	}
	p := int(part/whole*100 + 0.5)
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
