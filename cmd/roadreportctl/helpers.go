package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"roadreport/internal/backend"
	"roadreport/internal/config"
	apphttp "roadreport/internal/http"
	"roadreport/internal/services"
)

// app is the set of services a command works with.
type app struct {
	reports *services.ReportService
	records *services.RecordService
	exports *services.ExportService
	close   func() error
}

func openApp(cmd *cobra.Command, c *config.Config) (*app, error) {
	rates, defaultRate, err := c.RateTable()
	if err != nil {
		return nil, err
	}
	bcfg, err := backend.FromAppConfig(c)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(cmd.Context(), bcfg)
	if err != nil {
		return nil, err
	}
	return &app{
		reports: services.NewReportService(res.Store, res.Store, res.Store, services.ReportConfig{
			Rates:          rates,
			DefaultRateKey: defaultRate,
			Strict:         c.StrictMode,
			Location:       c.Location(),
		}),
		records: services.NewRecordService(res.Store),
		exports: services.NewExportService(res.Store, nil),
		close:   res.Cleanup,
	}, nil
}

// addQueryFlags registers the report selection flags. They mirror the
// query parameters of the HTTP API.
func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().String("from", "", "first day, YYYY-MM-DD")
	cmd.Flags().String("to", "", "last day (inclusive), YYYY-MM-DD")
	cmd.Flags().Int("year", 0, "calendar year")
	cmd.Flags().Int("month", 0, "month 1-12, requires --year")
	cmd.Flags().String("rate", "", "rate key (business, medicalMoving, charitable, ...)")
	cmd.Flags().String("scope", "", "records to include (business, personal, all)")
}

func queryValues(cmd *cobra.Command) url.Values {
	v := url.Values{}
	for _, name := range []string{"from", "to", "rate", "scope"} {
		if s, _ := cmd.Flags().GetString(name); s != "" {
			v.Set(name, s)
		}
	}
	for _, name := range []string{"year", "month"} {
		if n, _ := cmd.Flags().GetInt(name); n != 0 {
			v.Set(name, strconv.Itoa(n))
		}
	}
	return v
}

func parseQuery(cmd *cobra.Command, a *app) (services.ReportQuery, error) {
	return apphttp.ParseReportQuery(queryValues(cmd), a.reports.Location())
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
