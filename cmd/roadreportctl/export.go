package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"roadreport/internal/export"
	"roadreport/internal/services"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export records and reports",
	}
	cmd.AddCommand(csvCmd("trips", "Write trips as CSV"))
	cmd.AddCommand(csvCmd("expenses", "Write expenses as CSV"))
	cmd.AddCommand(csvCmd("report", "Write the deduction report as CSV"))
	cmd.AddCommand(exportRequestCmd())
	cmd.AddCommand(exportStatusCmd())
	return cmd
}

func csvCmd(kind, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   kind,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = a.close() }()

			q, err := parseQuery(cmd, a)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if path, _ := cmd.Flags().GetString("out"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("create %s: %w", path, err)
				}
				defer f.Close()
				out = f
			}
			return writeCSV(cmd, a, kind, q, out)
		},
	}
	addQueryFlags(cmd)
	cmd.Flags().StringP("out", "o", "", "write to file instead of stdout")
	return cmd
}

func writeCSV(cmd *cobra.Command, a *app, kind string, q services.ReportQuery, out io.Writer) error {
	ctx := cmd.Context()
	switch kind {
	case "report":
		res, err := a.reports.Generate(ctx, q)
		if err != nil {
			return err
		}
		return export.WriteReport(out, res.Report)
	default:
		trips, expenses, err := a.reports.Records(ctx, q)
		if err != nil {
			return err
		}
		if kind == "trips" {
			return export.WriteTrips(out, trips)
		}
		return export.WriteExpenses(out, expenses)
	}
}

func exportRequestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "request",
		Short: "Queue a spreadsheet export for the worker",
		Long: `Queue a spreadsheet export job. The job is stored as pending and
written by roadreport-worker on its next scan.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = a.close() }()

			q, err := parseQuery(cmd, a)
			if err != nil {
				return err
			}
			job, err := a.exports.RequestExport(cmd.Context(), a.reports.Normalize(q))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), job)
		},
	}
	addQueryFlags(cmd)
	return cmd
}

func exportStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status JOB_ID",
		Short: "Show the state of an export job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = a.close() }()

			job, err := a.exports.Job(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), job)
		},
	}
}
