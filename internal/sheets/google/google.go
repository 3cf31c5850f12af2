package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"roadreport/internal/core"
	"roadreport/internal/deduction"
	ports "roadreport/internal/sheets"
)

const defaultReportSheet = "Mileage Report"

var reportHeader = []any{"Job", "Generated", "From", "To", "Scope", "Item", "Key", "Value"}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// Base name without year (e.g. "Mileage Report"); the year of the
	// report period is prefixed per write.
	reportBase string
}

// Ensure interface conformance
var _ ports.ReportWriter = (*Client)(nil)

// Options configures a Client. Credentials come from CredentialsJSON,
// then CredentialsFile.
type Options struct {
	SpreadsheetID   string
	ReportSheet     string
	CredentialsJSON string
	CredentialsFile string
}

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Auth: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
// Optional: GOOGLE_REPORT_SHEET_NAME (default "Mileage Report").
func NewFromEnv(ctx context.Context) (*Client, error) {
	file := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	return New(ctx, Options{
		SpreadsheetID:   os.Getenv("GOOGLE_SPREADSHEET_ID"),
		ReportSheet:     os.Getenv("GOOGLE_REPORT_SHEET_NAME"),
		CredentialsJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		CredentialsFile: file,
	})
}

func New(ctx context.Context, opts Options) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	base := strings.TrimSpace(opts.ReportSheet)
	if base == "" {
		base = defaultReportSheet
	}

	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, reportBase: base}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	inline := strings.TrimSpace(opts.CredentialsJSON)
	file := strings.TrimSpace(opts.CredentialsFile)

	var credentialsJSON []byte
	switch {
	case inline != "":
		credentialsJSON = []byte(inline)
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// WriteReport appends the report rows to "<year> <base>", creating the
// sheet with a header row the first time a year is written.
func (c *Client) WriteReport(ctx context.Context, job core.ExportJob, report deduction.TaxReport) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	sheetName := yearPrefixedName(c.reportBase, reportYear(job, report))

	created, err := c.ensureSheet(ctx, sheetName)
	if err != nil {
		return "", err
	}
	rows := buildReportRows(job, report)
	if created {
		rows = append([][]any{reportHeader}, rows...)
	}

	rng := fmt.Sprintf("%s!A:H", quoteSheet(sheetName))
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append report to %s: %w", sheetName, err)
	}

	ref := sheetName
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	slog.InfoContext(ctx, "Report written to sheet",
		"job_id", job.ID, "sheet", sheetName, "rows", len(rows), "ref", ref)
	return ref, nil
}

// ensureSheet adds the sheet when the spreadsheet does not have it yet.
func (c *Client) ensureSheet(ctx context.Context, name string) (bool, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == name {
			return false, nil
		}
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: name},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return false, fmt.Errorf("add sheet %s: %w", name, err)
	}
	slog.InfoContext(ctx, "Created report sheet", "sheet", name)
	return true, nil
}

// buildReportRows flattens a report into one row per figure: miles, rate
// and deduction, then each expense category sorted by name.
func buildReportRows(job core.ExportJob, report deduction.TaxReport) [][]any {
	prefix := []any{
		job.ID,
		report.GeneratedAt.UTC().Format(time.RFC3339),
		formatDay(job.Range.From),
		formatDay(job.Range.To),
		string(job.Scope),
	}
	row := func(item, key string, value any) []any {
		r := make([]any, 0, len(reportHeader))
		r = append(r, prefix...)
		return append(r, item, key, value)
	}

	rows := [][]any{
		row("miles", report.RateKey, report.Mileage.TotalMiles),
		row("rate", report.RateKey, report.Mileage.Rate),
		row("deduction", report.RateKey, report.Mileage.Deduction),
	}

	cats := make([]string, 0, len(report.ExpenseTotals))
	for k := range report.ExpenseTotals {
		cats = append(cats, k)
	}
	sort.Strings(cats)
	for _, k := range cats {
		label := k
		if label == "" {
			label = "(no category)"
		}
		rows = append(rows, row("expense", label, core.RoundCents(report.ExpenseTotals[k])))
	}
	return rows
}

// reportYear picks the year of the report period, falling back to the
// generation time for open-ended ranges.
func reportYear(job core.ExportJob, report deduction.TaxReport) int {
	switch {
	case !job.Range.From.IsZero():
		return job.Range.From.Year()
	case !job.Range.To.IsZero():
		return job.Range.To.Add(-time.Nanosecond).Year()
	case !report.GeneratedAt.IsZero():
		return report.GeneratedAt.Year()
	default:
		return time.Now().Year()
	}
}

func formatDay(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// quoteSheet quotes a sheet name for A1 notation.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
