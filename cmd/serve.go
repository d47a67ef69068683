package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nroussel/accidash/internal/adapter/datagouv"
	httpadapter "github.com/nroussel/accidash/internal/adapter/http"
	"github.com/nroussel/accidash/internal/config"
	"github.com/nroussel/accidash/internal/dashboard"
	"github.com/nroussel/accidash/internal/observability"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the accident dashboard",
	Long: `Loads the cleaned accident table and serves the dashboard UI and its
JSON API. When the cleaned table does not exist yet, the full fetch and
clean sequence runs first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, metrics, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if _, err := os.Stat(cfg.CleanedFile); errors.Is(err, os.ErrNotExist) {
			logger.Info("cleaned table missing, running pipeline first", "path", cfg.CleanedFile)
			if err := buildCleanedTable(ctx, cfg, logger, metrics); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		store := dashboard.NewStore()
		if err := store.Load(cfg.CleanedFile); err != nil {
			return err
		}
		logger.Info("cleaned table loaded", "accidents", store.Len())

		srv := httpadapter.NewServer(cfg.HTTPAddr, store, store, metrics, logger)

		errCh := make(chan error, 1)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		logger.Info("shutdown complete")
		return nil
	},
}

func buildCleanedTable(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	client := datagouv.NewClient(cfg.FetchTimeout, logger, metrics, datagouv.WithProgress())
	if err := client.FetchAll(ctx, fetchSources(cfg)); err != nil {
		return err
	}
	cleaner, closeSinks := newCleaner(cfg, logger, metrics)
	defer closeSinks()

	_, err := cleaner.Run(ctx)
	return err
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
