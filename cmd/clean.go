package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nroussel/accidash/internal/adapter/datagouv"
	"github.com/nroussel/accidash/internal/adapter/kafka"
	"github.com/nroussel/accidash/internal/adapter/parquet"
	"github.com/nroussel/accidash/internal/config"
	"github.com/nroussel/accidash/internal/observability"
	"github.com/nroussel/accidash/internal/pipeline"
)

var cleanOffline bool

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Merge the raw files into the cleaned accident table",
	Long: `Joins the three raw CSV files into one accident-level table with
human-readable labels and writes it as the cleaned CSV. Missing raw files
are fetched first unless --offline is set. Configured sinks (Kafka,
Parquet) receive the same records.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, metrics, err := loadConfig()
		if err != nil {
			return err
		}

		if !cleanOffline {
			client := datagouv.NewClient(cfg.FetchTimeout, logger, metrics, datagouv.WithProgress())
			if err := client.FetchAll(cmd.Context(), fetchSources(cfg)); err != nil {
				return err
			}
		}

		cleaner, closeSinks := newCleaner(cfg, logger, metrics)
		defer closeSinks()

		_, err = cleaner.Run(cmd.Context())
		return err
	},
}

// newCleaner builds the cleaner with the configured sinks. The returned
// function releases sink resources (the kafka producer connection) and must
// be called once the run is over.
func newCleaner(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*pipeline.Cleaner, func()) {
	var exporters []pipeline.Exporter
	closeSinks := func() {}
	if cfg.KafkaEnabled {
		writer := kafka.NewWriter(cfg, logger)
		exporters = append(exporters, writer)
		closeSinks = func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}
	}
	if cfg.ParquetFile != "" {
		exporters = append(exporters, parquet.NewExporter(cfg.ParquetFile))
	}
	return pipeline.NewCleaner(cfg, logger, metrics, exporters...), closeSinks
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanOffline, "offline", false, "use only raw files already on disk")
	rootCmd.AddCommand(cleanCmd)
}
