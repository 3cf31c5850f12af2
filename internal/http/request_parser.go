// Package http provides the JSON API server and its handlers.
//
// This file implements parsing and validation of query parameters and
// JSON request bodies shared by the handlers.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"roadreport/internal/core"
	"roadreport/internal/services"
)

const (
	dayLayout    = "2006-01-02"
	maxBodyBytes = 1 << 20
)

// ParseRange reads the report period from query values. Accepted forms:
//
//	from=YYYY-MM-DD&to=YYYY-MM-DD  both optional, to is inclusive
//	year=YYYY&month=M              one calendar month
//	year=YYYY                      one calendar year
//
// No parameters selects every record.
func ParseRange(values url.Values, loc *time.Location) (core.DateRange, error) {
	if loc == nil {
		loc = time.UTC
	}
	fromStr := strings.TrimSpace(values.Get("from"))
	toStr := strings.TrimSpace(values.Get("to"))
	yearStr := strings.TrimSpace(values.Get("year"))
	monthStr := strings.TrimSpace(values.Get("month"))

	if (fromStr != "" || toStr != "") && (yearStr != "" || monthStr != "") {
		return core.DateRange{}, newBadRequest(errors.New("use either from/to or year/month"))
	}

	if yearStr == "" && monthStr == "" {
		var r core.DateRange
		if fromStr != "" {
			from, err := time.ParseInLocation(dayLayout, fromStr, loc)
			if err != nil {
				return core.DateRange{}, newBadRequest(fmt.Errorf("invalid from date %q (want YYYY-MM-DD)", fromStr))
			}
			r.From = from
		}
		if toStr != "" {
			to, err := time.ParseInLocation(dayLayout, toStr, loc)
			if err != nil {
				return core.DateRange{}, newBadRequest(fmt.Errorf("invalid to date %q (want YYYY-MM-DD)", toStr))
			}
			r.To = to.AddDate(0, 0, 1)
		}
		if err := r.Validate(); err != nil {
			return core.DateRange{}, newBadRequest(err)
		}
		return r, nil
	}

	if yearStr == "" {
		return core.DateRange{}, newBadRequest(errors.New("month requires year"))
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil || year < 1900 || year > 9999 {
		return core.DateRange{}, newBadRequest(fmt.Errorf("invalid year %q", yearStr))
	}
	if monthStr == "" {
		from := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
		return core.DateRange{From: from, To: from.AddDate(1, 0, 0)}, nil
	}
	month, err := strconv.Atoi(monthStr)
	if err != nil || month < 1 || month > 12 {
		return core.DateRange{}, newBadRequest(fmt.Errorf("invalid month %q", monthStr))
	}
	return core.MonthRange(year, time.Month(month), loc), nil
}

// ParseReportQuery reads the range, rate and scope parameters.
func ParseReportQuery(values url.Values, loc *time.Location) (services.ReportQuery, error) {
	r, err := ParseRange(values, loc)
	if err != nil {
		return services.ReportQuery{}, err
	}
	scope, err := core.ParseScope(values.Get("scope"))
	if err != nil {
		return services.ReportQuery{}, newBadRequest(err)
	}
	return services.ReportQuery{
		Range:   r,
		RateKey: sanitizeInput(values.Get("rate")),
		Scope:   scope,
	}, nil
}

// decodeJSON reads a single JSON value into dst. An empty body is
// allowed when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return newBadRequest(fmt.Errorf("read body: %w", err))
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		if allowEmpty {
			return nil
		}
		return newBadRequest(errors.New("request body is empty"))
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return newBadRequest(fmt.Errorf("invalid JSON body: %w", err))
	}
	return nil
}

// queryFromBody merges a flat JSON object into the request's query
// values, so POST bodies accept the same parameters as GET queries.
func queryFromBody(w http.ResponseWriter, r *http.Request) (url.Values, error) {
	values := r.URL.Query()
	var body map[string]any
	if err := decodeJSON(w, r, &body, true); err != nil {
		return nil, err
	}
	for k, v := range body {
		if s := stringValue(v); s != "" {
			values.Set(k, s)
		}
	}
	return values, nil
}

// parseDay accepts YYYY-MM-DD in loc or a full RFC 3339 timestamp.
func parseDay(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.ParseInLocation(dayLayout, s, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, newBadRequest(fmt.Errorf("invalid date %q", s))
	}
	return t, nil
}

// stringValue converts a decoded JSON scalar to a string.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput removes control characters except tab and line breaks
// and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
