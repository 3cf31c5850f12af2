// Package export renders trips, expenses and reports as CSV.
//
// Every data field is quoted and embedded quotes are doubled, so the
// output opens the same way in spreadsheets regardless of content.
// Header rows are bare. Rows end with "\n".
package export

import (
	"bufio"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"roadreport/internal/core"
	"roadreport/internal/deduction"
)

var (
	TripHeader    = []string{"id", "start", "end", "distance", "purpose", "status", "notes"}
	ExpenseHeader = []string{"id", "date", "category", "classification", "amount", "description"}
	ReportHeader  = []string{"item", "key", "value"}
)

// WriteTrips writes one row per trip. A missing distance is left empty
// and line breaks in notes become spaces.
func WriteTrips(w io.Writer, trips []core.Trip) error {
	cw := newWriter(w)
	cw.header(TripHeader)
	for _, t := range trips {
		cw.row(
			t.ID,
			formatTime(t.Start),
			formatTime(t.End),
			formatFloat(t.Distance),
			t.Purpose,
			t.Status,
			flatten(t.Notes),
		)
	}
	return cw.flush()
}

func WriteExpenses(w io.Writer, expenses []core.Expense) error {
	cw := newWriter(w)
	cw.header(ExpenseHeader)
	for _, e := range expenses {
		date := ""
		if !e.Date.IsZero() {
			date = e.Date.Format("2006-01-02")
		}
		cw.row(
			e.ID,
			date,
			e.Category,
			e.Classification,
			formatFloat(e.Amount),
			flatten(e.Description),
		)
	}
	return cw.flush()
}

// WriteReport writes the report as item/key/value rows: the header
// figures first, then expense totals sorted by category.
func WriteReport(w io.Writer, r deduction.TaxReport) error {
	cw := newWriter(w)
	cw.header(ReportHeader)
	cw.row("generated_at", "", r.GeneratedAt.UTC().Format(time.RFC3339))
	cw.row("rate_key", "", r.RateKey)
	cw.row("total_miles", r.RateKey, num(r.Mileage.TotalMiles))
	cw.row("rate", r.RateKey, num(r.Mileage.Rate))
	cw.row("deduction", r.RateKey, num(r.Mileage.Deduction))

	cats := make([]string, 0, len(r.ExpenseTotals))
	for k := range r.ExpenseTotals {
		cats = append(cats, k)
	}
	sort.Strings(cats)
	for _, k := range cats {
		cw.row("expense", k, num(r.ExpenseTotals[k]))
	}
	for _, i := range r.Issues {
		cw.row("issue", string(i.Kind), i.String())
	}
	return cw.flush()
}

type writer struct {
	bw  *bufio.Writer
	err error
}

func newWriter(w io.Writer) *writer {
	return &writer{bw: bufio.NewWriter(w)}
}

func (w *writer) header(cols []string) {
	w.write(strings.Join(cols, ","))
}

func (w *writer) row(fields ...string) {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	w.write(strings.Join(quoted, ","))
}

func (w *writer) write(line string) {
	if w.err != nil {
		return
	}
	_, w.err = w.bw.WriteString(line + "\n")
}

func (w *writer) flush() error {
	if w.err != nil {
		return w.err
	}
	return w.bw.Flush()
}

func flatten(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	return strings.ReplaceAll(s, "\n", " ")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return num(*v)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
