package cmd

import (
	"github.com/spf13/cobra"

	"github.com/nroussel/accidash/internal/adapter/datagouv"
	"github.com/nroussel/accidash/internal/config"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the raw BAAC CSV files",
	Long: `Downloads the characteristics, locations, and users CSV files into the
raw data directory. Files already present are kept as-is, so a completed
fetch makes later runs work offline.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, metrics, err := loadConfig()
		if err != nil {
			return err
		}

		client := datagouv.NewClient(cfg.FetchTimeout, logger, metrics, datagouv.WithProgress())
		return client.FetchAll(cmd.Context(), fetchSources(cfg))
	},
}

func fetchSources(cfg *config.Config) map[string]datagouv.Source {
	sources := make(map[string]datagouv.Source, len(config.DatasetNames))
	for _, name := range config.DatasetNames {
		sources[name] = datagouv.Source{
			URL:  cfg.DatasetURLs[name],
			Dest: cfg.RawPath(name),
		}
	}
	return sources
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}
