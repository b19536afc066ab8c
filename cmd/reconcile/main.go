// Command reconcile drives the bank/ERP reconciliation pipeline: load a
// tenant's source window, run the matcher cascade, and persist the output
// tables, via the usual cobra.OnInitialize + viper config-discovery wiring.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"reconcile"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "reconcile matches bank API transactions against ERP ledger entries",
	Long: `reconcile is a command line utility that runs the bank/ERP
reconciliation pipeline for a tenant's closed date window: it normalizes
both sides into integer-cent rows, runs the staged matcher cascade,
validates candidate matches by connected-component balance, and writes
matches, unreconciled rows, and daily/monthly aggregates.`,
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default none; RECON_ env vars are always read)")

	runCmd.Flags().String("tenant", "", "tenant id (overrides RECON_TENANT_ID)")
	runCmd.Flags().String("from", "", "window start date YYYY-MM-DD (overrides RECON_DATE_FROM)")
	runCmd.Flags().String("to", "", "window end date YYYY-MM-DD (overrides RECON_DATE_TO)")
	runCmd.Flags().String("db", "", "bbolt database path (overrides RECON_DB_PATH)")
	viper.BindPFlag("TENANT_ID", runCmd.Flags().Lookup("tenant"))
	viper.BindPFlag("DATE_FROM", runCmd.Flags().Lookup("from"))
	viper.BindPFlag("DATE_TO", runCmd.Flags().Lookup("to"))
	viper.BindPFlag("DB_PATH", runCmd.Flags().Lookup("db"))

	rootCmd.AddCommand(runCmd, versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err == nil {
			reconcile.Log().Info().Str("config_file", viper.ConfigFileUsed()).Msg("using config file")
		}
	}
}

var runCmd = &cobra.Command{
	Use:     "run",
	Short:   "run one reconciliation pass for a tenant",
	Example: "reconcile run --tenant T --from 2025-08-01 --to 2025-08-31 --db path.bbolt",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := reconcile.LoadConfig(viper.GetViper())
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if cfg.TenantID == "" {
			return fmt.Errorf("RECON_TENANT_ID is required")
		}

		engine, err := reconcile.NewEngine(cfg)
		if err != nil {
			return fmt.Errorf("failed to start engine: %w", err)
		}
		defer engine.Close()

		result, err := engine.Run(context.Background())
		if err != nil {
			return fmt.Errorf("reconciliation run failed: %w", err)
		}

		reconcile.Log().Info().
			Str("tenant_id", cfg.TenantID).
			Int("matches", len(result.Matches)).
			Int("unrec_api", len(result.UnrecApi)).
			Int("unrec_erp", len(result.UnrecErp)).
			Int("daily_rows", len(result.Daily)).
			Msg("reconciliation run complete")
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print the reconcile build version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("reconcile dev")
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	reconcile.SetLogger(zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger())
	Execute()
}
