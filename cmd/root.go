// Package cmd wires the accidash command line: fetching the raw BAAC files,
// cleaning them into the accident-level table, and serving the dashboard.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nroussel/accidash/internal/config"
	"github.com/nroussel/accidash/internal/observability"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "accidash",
	Short: "French road accident data pipeline and dashboard",
	Long: `accidash downloads the yearly BAAC road accident open-data files,
merges them into one cleaned accident-level table, and serves an
interactive dashboard over it.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(func() {
		// A local .env is a development convenience; absence is not an error.
		_ = godotenv.Load()
	})
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); ACCIDASH_* env vars override it")
}

// loadConfig builds the runtime configuration plus its logger and metrics.
func loadConfig() (*config.Config, *slog.Logger, *observability.Metrics, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, observability.NewLogger(cfg), observability.NewMetrics(), nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
