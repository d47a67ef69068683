package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nroussel/accidash/internal/config"
	"github.com/nroussel/accidash/internal/domain"
	"github.com/nroussel/accidash/internal/observability"
)

// Exporter publishes the cleaned table to an additional sink (kafka topic,
// parquet file) after the CSV has been written.
type Exporter interface {
	Name() string
	Export(ctx context.Context, accidents []domain.Accident) error
}

// Summary reports the outcome of a cleaning run. Skipped and dropped counts
// are informational; they never fail the run but are always surfaced.
type Summary struct {
	RowsRead           map[string]int
	RowsSkipped        map[string]int
	DroppedCoordinates int
	Accidents          int
	GeneratedAt        time.Time
}

// Cleaner executes the merge-and-normalize batch: load the three raw tables,
// join and label them, and persist one cleaned accident-level CSV.
type Cleaner struct {
	cfg       *config.Config
	logger    *slog.Logger
	metrics   *observability.Metrics
	exporters []Exporter
}

// NewCleaner creates a Cleaner. Exporters are optional.
func NewCleaner(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, exporters ...Exporter) *Cleaner {
	return &Cleaner{
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
		exporters: exporters,
	}
}

// Run performs one cleaning pass. Fatal errors (unreadable input, schema
// mismatch, unwritable output) abort the run and leave any previous cleaned
// table untouched; malformed rows and coordinate drops are counted in the
// returned Summary.
func (c *Cleaner) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	c.metrics.CleanRunning.Set(1)
	defer c.metrics.CleanRunning.Set(0)

	tables := make(map[string]*Table, len(config.DatasetNames))
	for _, name := range config.DatasetNames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t, err := LoadTable(c.cfg.RawPath(name), name)
		if err != nil {
			return nil, err
		}
		tables[name] = t
		c.metrics.RowsRead.WithLabelValues(name).Add(float64(len(t.Rows)))
		c.metrics.RowsSkipped.WithLabelValues(name).Add(float64(t.Skipped))
		if t.Skipped > 0 {
			c.logger.Warn("malformed rows skipped", "dataset", name, "count", t.Skipped)
		}
	}

	result, err := Merge(
		tables[config.DatasetCharacteristics],
		tables[config.DatasetLocations],
		tables[config.DatasetUsers],
	)
	if err != nil {
		return nil, err
	}
	c.metrics.RowsDroppedCoords.Add(float64(result.DroppedCoordinates))

	if err := WriteCleanedCSV(c.cfg.CleanedFile, result.Accidents); err != nil {
		return nil, err
	}
	c.metrics.AccidentsWritten.Add(float64(len(result.Accidents)))

	for _, exp := range c.exporters {
		if err := exp.Export(ctx, result.Accidents); err != nil {
			return nil, fmt.Errorf("export to %s: %w", exp.Name(), err)
		}
		c.logger.Info("cleaned table exported", "sink", exp.Name(), "accidents", len(result.Accidents))
	}

	summary := &Summary{
		RowsRead:           make(map[string]int, len(tables)),
		RowsSkipped:        make(map[string]int, len(tables)),
		DroppedCoordinates: result.DroppedCoordinates,
		Accidents:          len(result.Accidents),
		GeneratedAt:        domain.Now(),
	}
	for name, t := range tables {
		summary.RowsRead[name] = len(t.Rows)
		summary.RowsSkipped[name] = t.Skipped
	}

	c.metrics.CleanDuration.Observe(time.Since(start).Seconds())
	c.logger.Info("cleaning run complete",
		"accidents", summary.Accidents,
		"dropped_coordinates", summary.DroppedCoordinates,
		"duration", time.Since(start),
		"output", c.cfg.CleanedFile,
	)
	return summary, nil
}
