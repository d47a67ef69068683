package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/nroussel/accidash/internal/domain"
)

// CleanedHeader is the fixed column order of the cleaned table. The dashboard
// store and the validate subcommand both read against it.
var CleanedHeader = []string{
	"accident_id", "date", "hour", "latitude", "longitude",
	"zone", "surface", "lighting", "lighting_group", "severity", "victim_count",
}

// WriteCleanedCSV persists the cleaned table atomically: the rows stream into
// a temporary file next to the destination which is renamed into place only
// after a successful flush, so a failed run never leaves a truncated table
// behind. Output is comma-separated with a fixed column order and fixed float
// formatting, making reruns byte-identical.
func WriteCleanedCSV(path string, accidents []domain.Accident) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("write cleaned table: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".cleaned-*.tmp")
	if err != nil {
		return fmt.Errorf("write cleaned table: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name()) // no-op after a successful rename
	}()

	w := csv.NewWriter(tmp)
	if err := w.Write(CleanedHeader); err != nil {
		return fmt.Errorf("write cleaned table: %w", err)
	}
	for _, a := range accidents {
		if err := w.Write(FormatRow(a)); err != nil {
			return fmt.Errorf("write cleaned table: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write cleaned table: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write cleaned table: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write cleaned table: %w", err)
	}
	return nil
}

// FormatRow renders one cleaned record in CleanedHeader order. Unknown dates
// and hours render as empty cells.
func FormatRow(a domain.Accident) []string {
	date := ""
	if a.HasDate() {
		date = a.Date.Format("2006-01-02")
	}
	hour := ""
	if a.Hour >= 0 {
		hour = strconv.Itoa(a.Hour)
	}
	return []string{
		a.ID,
		date,
		hour,
		strconv.FormatFloat(a.Latitude, 'f', -1, 64),
		strconv.FormatFloat(a.Longitude, 'f', -1, 64),
		a.ZoneLabel,
		a.SurfaceLabel,
		a.LightingLabel,
		a.LightingGroup,
		a.SeverityLabel,
		strconv.Itoa(a.VictimCount),
	}
}
