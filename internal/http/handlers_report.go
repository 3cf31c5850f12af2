package http

import (
	"context"
	"net/http"
	"time"

	"roadreport/internal/core"
	"roadreport/internal/deduction"
	applog "roadreport/internal/log"
	"roadreport/internal/services"
)

type reportDisplay struct {
	TotalMiles string            `json:"totalMiles"`
	Rate       string            `json:"rate"`
	Deduction  string            `json:"deduction"`
	Expenses   map[string]string `json:"expenses"`
}

type reportResponse struct {
	services.ReportResult
	Display reportDisplay `json:"display"`
}

type monthView struct {
	core.MonthMetrics
	BusinessMilesPercent    int     `json:"businessMilesPercent"`
	BusinessExpensesPercent int     `json:"businessExpensesPercent"`
	TotalExpenses           float64 `json:"totalExpenses"`
}

type mileageResponse struct {
	Query   services.ReportQuery      `json:"query"`
	RateKey string                    `json:"rateKey"`
	Mileage deduction.DeductionResult `json:"mileage"`
	Issues  []deduction.Issue         `json:"issues,omitempty"`
}

type expenseTotalsResponse struct {
	Query  services.ReportQuery    `json:"query"`
	Totals deduction.ExpenseTotals `json:"totals"`
	Issues []deduction.Issue       `json:"issues,omitempty"`
}

type ratesResponse struct {
	Default string              `json:"default"`
	Rates   deduction.RateTable `json:"rates"`
}

// generate parses the query and runs the report; on failure the error
// response has already been written.
func (s *Server) generate(w http.ResponseWriter, r *http.Request, op string) (services.ReportResult, bool) {
	q, err := ParseReportQuery(r.URL.Query(), s.reports.Location())
	if err != nil {
		writeError(w, r, op, err)
		return services.ReportResult{}, false
	}
	res, err := s.reports.Generate(r.Context(), q)
	if err != nil {
		writeError(w, r, op, err)
		return services.ReportResult{}, false
	}
	rep := res.Report
	applog.NewStructuredLogger(applog.FromContext(r.Context())).LogReportGenerated(r.Context(),
		rep.RateKey, res.TripCount, res.ExpenseCount, rep.Mileage.TotalMiles, rep.Mileage.Deduction, len(rep.Issues))
	return res, true
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	res, ok := s.generate(w, r, "report")
	if !ok {
		return
	}
	rep := res.Report
	display := reportDisplay{
		TotalMiles: core.FormatMiles(rep.Mileage.TotalMiles),
		Rate:       core.FormatUSD(rep.Mileage.Rate),
		Deduction:  core.FormatUSD(rep.Mileage.Deduction),
		Expenses:   make(map[string]string, len(rep.ExpenseTotals)),
	}
	for k, v := range rep.ExpenseTotals {
		display.Expenses[k] = core.FormatUSD(v)
	}
	writeJSON(w, http.StatusOK, reportResponse{ReportResult: res, Display: display})
}

func (s *Server) handleMileage(w http.ResponseWriter, r *http.Request) {
	res, ok := s.generate(w, r, "mileage")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, mileageResponse{
		Query:   res.Query,
		RateKey: res.Report.RateKey,
		Mileage: res.Report.Mileage,
		Issues:  mileageIssues(res.Report.Issues),
	})
}

func (s *Server) handleExpenseTotals(w http.ResponseWriter, r *http.Request) {
	res, ok := s.generate(w, r, "expense_totals")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, expenseTotalsResponse{
		Query:  res.Query,
		Totals: res.Report.ExpenseTotals,
		Issues: expenseIssues(res.Report.Issues),
	})
}

func mileageIssues(all []deduction.Issue) []deduction.Issue {
	var out []deduction.Issue
	for _, i := range all {
		if i.Record != "expense" {
			out = append(out, i)
		}
	}
	return out
}

func expenseIssues(all []deduction.Issue) []deduction.Issue {
	var out []deduction.Issue
	for _, i := range all {
		if i.Record == "expense" {
			out = append(out, i)
		}
	}
	return out
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	rng, err := ParseRange(r.URL.Query(), s.reports.Location())
	if err != nil {
		writeError(w, r, "summary", err)
		return
	}
	key := rangeKey(rng)
	// Callers waiting on the same key share this load, so it must outlive
	// the request that started it.
	loadCtx := context.WithoutCancel(r.Context())
	sum, hit, err := s.summaryCache.Get(key, func() (core.Summary, error) {
		return s.reports.Summary(loadCtx, rng)
	})
	if err != nil {
		writeError(w, r, "summary", err)
		return
	}
	if hit {
		applog.FromContext(r.Context()).DebugContext(r.Context(), "Summary cache hit", "range", key)
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleMonths(w http.ResponseWriter, r *http.Request) {
	// Keyed by day so the current month rolls over without a write.
	key := s.reports.Now().In(s.reports.Location()).Format(dayLayout)
	loadCtx := context.WithoutCancel(r.Context())
	months, hit, err := s.monthsCache.Get(key, func() ([]core.MonthMetrics, error) {
		return s.reports.Months(loadCtx)
	})
	if err != nil {
		writeError(w, r, "months", err)
		return
	}
	if hit {
		applog.FromContext(r.Context()).DebugContext(r.Context(), "Months cache hit")
	}
	out := make([]monthView, 0, len(months))
	for _, m := range months {
		out = append(out, monthView{
			MonthMetrics:            m,
			BusinessMilesPercent:    m.BusinessMilesPercent(),
			BusinessExpensesPercent: m.BusinessExpensesPercent(),
			TotalExpenses:           m.TotalExpenses(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUnclassified(w http.ResponseWriter, r *http.Request) {
	recs, err := s.reports.Unclassified(r.Context())
	if err != nil {
		writeError(w, r, "unclassified", err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	table, err := s.reports.Rates(r.Context())
	if err != nil {
		writeError(w, r, "rates", err)
		return
	}
	writeJSON(w, http.StatusOK, ratesResponse{Default: s.reports.DefaultRateKey(), Rates: table})
}

func rangeKey(r core.DateRange) string {
	return formatBound(r.From) + "|" + formatBound(r.To)
}

func formatBound(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
