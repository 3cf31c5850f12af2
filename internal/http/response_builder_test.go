package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"roadreport/internal/core"
	"roadreport/internal/deduction"
	"roadreport/internal/store"
)

func TestJSONResponseBuilder(t *testing.T) {
	rr := httptest.NewRecorder()
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/trips/x").
		Data(map[string]string{"note": "<b>&</b>"}).
		Write(rr)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d", rr.Code)
	}
	if rr.Header().Get("Location") != "/api/trips/x" {
		t.Fatal("missing Location header")
	}
	if got := rr.Body.String(); got != "{\"note\":\"<b>&</b>\"}\n" {
		t.Fatalf("body = %q", got)
	}

	rr = httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusNoContent).Write(rr)
	if rr.Body.Len() != 0 || rr.Header().Get("Content-Type") != "" {
		t.Fatal("empty response must have no body")
	}
}

func TestErrorFor(t *testing.T) {
	vErr := &deduction.ValidationError{Issues: []deduction.Issue{{Kind: deduction.IssueMissingValue, Record: "trip", RecordID: "t1", Field: "distance"}}}
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"validation", fmt.Errorf("generate: %w", vErr), http.StatusUnprocessableEntity},
		{"bad request", newBadRequest(errors.New("bad date")), http.StatusBadRequest},
		{"not found", fmt.Errorf("trip x: %w", store.ErrNotFound), http.StatusNotFound},
		{"range", core.ErrInvalidRange, http.StatusBadRequest},
		{"scope", core.ErrInvalidScope, http.StatusBadRequest},
		{"record", core.ErrInvalidDistance, http.StatusUnprocessableEntity},
		{"label", core.ErrInvalidLabel, http.StatusUnprocessableEntity},
		{"rate", fmt.Errorf("%w: must not be negative", deduction.ErrInvalidRate), http.StatusUnprocessableEntity},
		{"other", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			ErrorFor(tt.err).Write(rr)
			if rr.Code != tt.code {
				t.Fatalf("code = %d, want %d", rr.Code, tt.code)
			}
			var body ErrorBody
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Error == "" {
				t.Fatal("empty error message")
			}
			if tt.code == http.StatusInternalServerError && body.Error != "internal error" {
				t.Fatalf("internal details leaked: %q", body.Error)
			}
		})
	}
}
