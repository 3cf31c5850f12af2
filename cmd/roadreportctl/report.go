package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"roadreport/internal/core"
	"roadreport/internal/services"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the mileage and expense deduction report",
		Example: `  roadreportctl report --year 2024
  roadreportctl report --from 2024-01-01 --to 2024-03-31 --rate charitable --scope all`,
		RunE: runReport,
	}
	addQueryFlags(cmd)
	cmd.Flags().Bool("json", false, "print the report as JSON")
	cmd.Flags().Bool("strict", false, "reject records with missing or invalid values")
	return cmd
}

func runReport(cmd *cobra.Command, _ []string) error {
	if strict, _ := cmd.Flags().GetBool("strict"); strict {
		cfg.StrictMode = true
	}
	a, err := openApp(cmd, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.close() }()

	q, err := parseQuery(cmd, a)
	if err != nil {
		return err
	}
	res, err := a.reports.Generate(cmd.Context(), q)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(cmd.OutOrStdout(), res)
	}
	return writeReportText(cmd.OutOrStdout(), res)
}

func writeReportText(out io.Writer, res services.ReportResult) error {
	rep := res.Report
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Scope\t%s\n", res.Query.Scope)
	fmt.Fprintf(tw, "Trips\t%d\n", res.TripCount)
	fmt.Fprintf(tw, "Miles\t%s\n", core.FormatMiles(rep.Mileage.TotalMiles))
	fmt.Fprintf(tw, "Rate (%s)\t%s/mi\n", rep.RateKey, core.FormatUSD(rep.Mileage.Rate))
	fmt.Fprintf(tw, "Mileage deduction\t%s\n", core.FormatUSD(rep.Mileage.Deduction))

	if len(rep.ExpenseTotals) > 0 {
		fmt.Fprintf(tw, "\nExpenses (%d)\t\n", res.ExpenseCount)
		cats := make([]string, 0, len(rep.ExpenseTotals))
		for c := range rep.ExpenseTotals {
			cats = append(cats, c)
		}
		sort.Strings(cats)
		for _, c := range cats {
			fmt.Fprintf(tw, "  %s\t%s\n", c, core.FormatUSD(rep.ExpenseTotals[c]))
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(rep.Issues) > 0 {
		fmt.Fprintf(out, "\n%d record(s) had missing or invalid values:\n", len(rep.Issues))
		for _, i := range rep.Issues {
			fmt.Fprintf(out, "  %s\n", i)
		}
	}
	return nil
}

func summaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print business and personal totals",
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
			sum, err := a.reports.Summary(cmd.Context(), q.Range)
			if err != nil {
				return err
			}
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return printJSON(cmd.OutOrStdout(), sum)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "\tBusiness\tPersonal\tTotal")
			fmt.Fprintf(tw, "Miles\t%s\t%s\t%s\n",
				core.FormatMiles(sum.Mileage.Business), core.FormatMiles(sum.Mileage.Personal), core.FormatMiles(sum.Mileage.Total))
			fmt.Fprintf(tw, "Expenses\t%s\t%s\t%s\n",
				core.FormatUSD(sum.Expenses.Business), core.FormatUSD(sum.Expenses.Personal), core.FormatUSD(sum.Expenses.Total))
			return tw.Flush()
		},
	}
	addQueryFlags(cmd)
	cmd.Flags().Bool("json", false, "print as JSON")
	return cmd
}

func monthsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "months",
		Short: "Print per-month drive and expense metrics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = a.close() }()

			months, err := a.reports.Months(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return printJSON(cmd.OutOrStdout(), months)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "Month\tDrives\tBusiness mi\tBusiness %\tBusiness $\tOther $")
			for _, m := range months {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%d%%\t%s\t%s\n",
					m.Label, m.DrivesCount, core.FormatMiles(m.BusinessMiles), m.BusinessMilesPercent(),
					core.FormatUSD(m.BusinessExpenses), core.FormatUSD(m.MiscExpenses))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Bool("json", false, "print as JSON")
	return cmd
}

func ratesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rates",
		Short: "List per-mile rates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = a.close() }()

			table, err := a.reports.Rates(cmd.Context())
			if err != nil {
				return err
			}
			def := a.reports.DefaultRateKey()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, k := range table.Keys() {
				marker := ""
				if k == def {
					marker = "(default)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", k, core.FormatUSD(table[k]), marker)
			}
			return tw.Flush()
		},
	}

	set := &cobra.Command{
		Use:   "set KEY RATE",
		Short: "Override a per-mile rate",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rate, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid rate %q: %w", args[1], err)
			}
			a, err := openApp(cmd, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = a.close() }()
			return a.records.SetRate(cmd.Context(), args[0], rate)
		},
	}
	clearCmd := &cobra.Command{
		Use:   "clear KEY",
		Short: "Remove a rate override",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = a.close() }()
			return a.records.ClearRate(cmd.Context(), args[0])
		},
	}
	cmd.AddCommand(set, clearCmd)
	return cmd
}
