package cmd

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nroussel/accidash/internal/config"
	"github.com/nroussel/accidash/internal/observability"
)

func TestNewCleaner_SinkLifecycle(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()

	cfg := &config.Config{}
	cleaner, closeSinks := newCleaner(cfg, logger, metrics)
	require.NotNil(t, cleaner)
	closeSinks() // no sinks configured, must be a safe no-op

	cfg = &config.Config{
		KafkaEnabled: true,
		KafkaBrokers: []string{"localhost:9092"},
		KafkaTopic:   "cleaned-accidents",
	}
	cleaner, closeSinks = newCleaner(cfg, logger, metrics)
	require.NotNil(t, cleaner)
	closeSinks() // releases the producer even when nothing was published
}
