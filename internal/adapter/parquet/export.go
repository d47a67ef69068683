// Package parquet writes the cleaned accident table as a Parquet file for
// analytical tooling that prefers columnar input over CSV.
package parquet

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/nroussel/accidash/internal/domain"
)

// record mirrors domain.Accident with parquet schema tags. Dates are stored
// as ISO strings rather than timestamps so the file round-trips the CSV
// exactly; unknown dates become empty strings.
type record struct {
	ID            string  `parquet:"name=accident_id,type=BYTE_ARRAY,convertedtype=UTF8"`
	Date          string  `parquet:"name=date,type=BYTE_ARRAY,convertedtype=UTF8"`
	Hour          int32   `parquet:"name=hour,type=INT32"`
	Latitude      float64 `parquet:"name=latitude,type=DOUBLE"`
	Longitude     float64 `parquet:"name=longitude,type=DOUBLE"`
	Zone          string  `parquet:"name=zone,type=BYTE_ARRAY,convertedtype=UTF8"`
	Surface       string  `parquet:"name=surface,type=BYTE_ARRAY,convertedtype=UTF8"`
	Lighting      string  `parquet:"name=lighting,type=BYTE_ARRAY,convertedtype=UTF8"`
	LightingGroup string  `parquet:"name=lighting_group,type=BYTE_ARRAY,convertedtype=UTF8"`
	Severity      string  `parquet:"name=severity,type=BYTE_ARRAY,convertedtype=UTF8"`
	VictimCount   int32   `parquet:"name=victim_count,type=INT32"`
}

// Exporter writes accidents to a local Parquet file.
// It implements pipeline.Exporter.
type Exporter struct {
	path string
}

func NewExporter(path string) *Exporter {
	return &Exporter{path: path}
}

func (e *Exporter) Name() string { return "parquet" }

// Export writes the whole batch to a temporary file and renames it into
// place, matching the CSV writer's atomicity.
func (e *Exporter) Export(_ context.Context, accidents []domain.Accident) error {
	dir := filepath.Dir(e.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("write parquet: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".accidents-*.parquet.tmp")
	if err != nil {
		return fmt.Errorf("write parquet: %w", err)
	}
	tmpName := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpName) // no-op after a successful rename

	fw, err := local.NewLocalFileWriter(tmpName)
	if err != nil {
		return fmt.Errorf("write parquet: %w", err)
	}

	pw, err := writer.NewParquetWriter(fw, new(record), 4)
	if err != nil {
		fw.Close()
		return fmt.Errorf("write parquet: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, a := range accidents {
		if err := pw.Write(mapRecord(a)); err != nil {
			fw.Close()
			return fmt.Errorf("write parquet: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		fw.Close()
		return fmt.Errorf("write parquet: %w", err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("write parquet: %w", err)
	}

	if err := os.Rename(tmpName, e.path); err != nil {
		return fmt.Errorf("write parquet: %w", err)
	}
	return nil
}

func mapRecord(a domain.Accident) record {
	date := ""
	if a.HasDate() {
		date = a.Date.Format("2006-01-02")
	}
	return record{
		ID:            a.ID,
		Date:          date,
		Hour:          int32(a.Hour),
		Latitude:      a.Latitude,
		Longitude:     a.Longitude,
		Zone:          a.ZoneLabel,
		Surface:       a.SurfaceLabel,
		Lighting:      a.LightingLabel,
		LightingGroup: a.LightingGroup,
		Severity:      a.SeverityLabel,
		VictimCount:   int32(a.VictimCount),
	}
}
