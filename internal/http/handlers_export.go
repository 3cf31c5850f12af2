package http

import (
	"bytes"
	"fmt"
	"net/http"

	"roadreport/internal/export"
	applog "roadreport/internal/log"
)

func (s *Server) handleTripsCSV(w http.ResponseWriter, r *http.Request) {
	q, err := ParseReportQuery(r.URL.Query(), s.reports.Location())
	if err != nil {
		writeError(w, r, applog.OpExport, err)
		return
	}
	trips, _, err := s.reports.Records(r.Context(), q)
	if err != nil {
		writeError(w, r, applog.OpExport, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteTrips(&buf, trips); err != nil {
		writeError(w, r, applog.OpExport, err)
		return
	}
	writeCSV(w, "trips.csv", buf.Bytes())
}

func (s *Server) handleExpensesCSV(w http.ResponseWriter, r *http.Request) {
	q, err := ParseReportQuery(r.URL.Query(), s.reports.Location())
	if err != nil {
		writeError(w, r, applog.OpExport, err)
		return
	}
	_, expenses, err := s.reports.Records(r.Context(), q)
	if err != nil {
		writeError(w, r, applog.OpExport, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteExpenses(&buf, expenses); err != nil {
		writeError(w, r, applog.OpExport, err)
		return
	}
	writeCSV(w, "expenses.csv", buf.Bytes())
}

func (s *Server) handleReportCSV(w http.ResponseWriter, r *http.Request) {
	res, ok := s.generate(w, r, applog.OpExport)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.WriteReport(&buf, res.Report); err != nil {
		writeError(w, r, applog.OpExport, err)
		return
	}
	writeCSV(w, "report.csv", buf.Bytes())
}

// handleRequestExport queues a spreadsheet export. The body is optional
// and takes the same keys as the report query string.
func (s *Server) handleRequestExport(w http.ResponseWriter, r *http.Request) {
	values, err := queryFromBody(w, r)
	if err != nil {
		writeError(w, r, applog.OpExport, err)
		return
	}
	q, err := ParseReportQuery(values, s.reports.Location())
	if err != nil {
		writeError(w, r, applog.OpExport, err)
		return
	}
	job, err := s.exports.RequestExport(r.Context(), s.reports.Normalize(q))
	if err != nil {
		writeError(w, r, applog.OpExport, err)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Export requested",
		applog.FieldJobID, job.ID,
		applog.FieldScope, job.Scope,
		applog.FieldRateKey, job.RateKey)
	NewJSONResponse().
		Status(http.StatusAccepted).
		Header("Location", "/api/exports/"+job.ID).
		Data(job).
		Write(w)
}

func (s *Server) handleExportJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.exports.Job(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func writeCSV(w http.ResponseWriter, filename string, body []byte) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
