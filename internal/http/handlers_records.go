package http

import (
	"fmt"
	"math"
	"net/http"
	"strings"

	"roadreport/internal/core"
	"roadreport/internal/deduction"
	applog "roadreport/internal/log"
)

// tripRequest accepts dates as YYYY-MM-DD or RFC 3339.
type tripRequest struct {
	ID             string   `json:"id"`
	Distance       *float64 `json:"distance"`
	Purpose        string   `json:"purpose"`
	Classification string   `json:"classification"`
	Start          string   `json:"start"`
	End            string   `json:"end"`
	Status         string   `json:"status"`
	Notes          string   `json:"notes"`
}

// expenseRequest accepts the amount as a JSON number or a string such as
// "$12,34".
type expenseRequest struct {
	ID             string `json:"id"`
	Amount         any    `json:"amount"`
	Category       string `json:"category"`
	Classification string `json:"classification"`
	Description    string `json:"description"`
	Date           string `json:"date"`
}

type classifyRequest struct {
	Label string `json:"label"`
}

type rateRequest struct {
	Rate *float64 `json:"rate"`
}

func (s *Server) handleCreateTrip(w http.ResponseWriter, r *http.Request) {
	var req tripRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	loc := s.reports.Location()
	start, err := parseDay(req.Start, loc)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	end, err := parseDay(req.End, loc)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	trip, err := s.records.CreateTrip(r.Context(), core.Trip{
		ID:             sanitizeInput(req.ID),
		Distance:       req.Distance,
		Purpose:        sanitizeInput(req.Purpose),
		Classification: sanitizeInput(req.Classification),
		Start:          start,
		End:            end,
		Status:         sanitizeInput(req.Status),
		Notes:          sanitizeInput(req.Notes),
	})
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/trips/"+trip.ID).
		Data(trip).
		Write(w)
}

func (s *Server) handleClassifyTrip(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, applog.OpClassify, err)
		return
	}
	trip, err := s.records.ClassifyTrip(r.Context(), r.PathValue("id"), req.Label)
	if err != nil {
		writeError(w, r, applog.OpClassify, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

func (s *Server) handleDeleteTrip(w http.ResponseWriter, r *http.Request) {
	if err := s.records.DeleteTrip(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	amount, err := parseAmountValue(req.Amount)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	date, err := parseDay(req.Date, s.reports.Location())
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	exp, err := s.records.CreateExpense(r.Context(), core.Expense{
		ID:             sanitizeInput(req.ID),
		Amount:         amount,
		Category:       sanitizeInput(req.Category),
		Classification: sanitizeInput(req.Classification),
		Description:    sanitizeInput(req.Description),
		Date:           date,
	})
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/expenses/"+exp.ID).
		Data(exp).
		Write(w)
}

func (s *Server) handleClassifyExpense(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, applog.OpClassify, err)
		return
	}
	exp, err := s.records.ClassifyExpense(r.Context(), r.PathValue("id"), req.Label)
	if err != nil {
		writeError(w, r, applog.OpClassify, err)
		return
	}
	writeJSON(w, http.StatusOK, exp)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.records.DeleteExpense(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetRate(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	if req.Rate == nil {
		writeError(w, r, applog.OpUpdate, fmt.Errorf("%w: rate is required", deduction.ErrInvalidRate))
		return
	}
	key := r.PathValue("key")
	if err := s.records.SetRate(r.Context(), key, *req.Rate); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	s.handleRates(w, r)
}

func (s *Server) handleClearRate(w http.ResponseWriter, r *http.Request) {
	if err := s.records.ClearRate(r.Context(), r.PathValue("key")); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	s.handleRates(w, r)
}

// parseAmountValue converts a decoded JSON amount. A missing amount stays
// nil so validation reports it.
func parseAmountValue(v any) (*float64, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) || val < 0 {
			return nil, core.ErrInvalidAmount
		}
		return core.Float(val), nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil, nil
		}
		f, err := core.ParseAmount(val)
		if err != nil {
			return nil, err
		}
		return core.Float(f), nil
	default:
		return nil, core.ErrInvalidAmount
	}
}
