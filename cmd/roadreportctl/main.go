// Command roadreportctl runs reports, exports and migrations against the
// roadreport store from the command line.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"roadreport/internal/backend"
	"roadreport/internal/cli"
	"roadreport/internal/config"
	applog "roadreport/internal/log"
)

var (
	version = "dev"
	rootCmd = &cobra.Command{
		Use:   "roadreportctl",
		Short: "Mileage and expense deduction reports",
		Long: `roadreportctl reads trips and expenses from the roadreport store and
prints deduction reports, summaries and CSV exports.

Settings come from the same environment variables as the server; the
flags below override them.`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}

	cfg    *config.Config
	logger *applog.Logger
)

func init() {
	rootCmd.PersistentFlags().String("backend", "", "data backend ("+strings.Join(backend.GetBackendTypeStrings(), ", ")+")")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path")
	rootCmd.PersistentFlags().String("data-dir", "", "directory with trips.json and expenses.json for the memory backend")
	rootCmd.PersistentFlags().String("rates-file", "", "YAML or JSON file with per-mile rates")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	_ = viper.BindPFlag("backend", rootCmd.PersistentFlags().Lookup("backend"))
	_ = viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	_ = viper.BindPFlag("rates_file", rootCmd.PersistentFlags().Lookup("rates-file"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(monthsCmd())
	rootCmd.AddCommand(ratesCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	cli.LoadEnvFile()

	cfg = config.Load()
	applyOverrides(cfg)
	// CLI output goes to stdout; keep logs quiet unless asked.
	if viper.GetString("log_level") == "" && os.Getenv("LOG_LEVEL") == "" {
		cfg.LogLevel = "warn"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger = cli.SetupLogger(cfg).WithComponent(applog.ComponentCLI)
	return nil
}

// applyOverrides copies flag values that were set over the environment.
func applyOverrides(c *config.Config) {
	if v := viper.GetString("backend"); v != "" {
		c.DataBackend = v
	}
	if v := viper.GetString("db"); v != "" {
		c.SQLiteDBPath = v
	}
	if v := viper.GetString("data_dir"); v != "" {
		c.DataDir = v
	}
	if v := viper.GetString("rates_file"); v != "" {
		c.RatesFile = v
	}
	if v := viper.GetString("log_level"); v != "" {
		c.LogLevel = v
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "roadreportctl", version)
			return err
		},
	}
}
