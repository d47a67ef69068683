package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nroussel/accidash/internal/config"
	"github.com/nroussel/accidash/internal/domain"
	"github.com/nroussel/accidash/internal/observability"
	"github.com/nroussel/accidash/internal/pipeline"
)

const (
	// The second row carries a comma decimal separator; the third row's
	// latitude is out of range and gets dropped.
	charsCSV = "Accident_Id;jour;mois;an;hrmn;lum;agg;atm;lat;long\n" +
		"202200000001;14;7;2022;07:30;1;2;1;48.8566;2.3522\n" +
		"202200000002;2;1;2022;23:15;5;1;1;45,75;4.85\n" +
		"202200000003;3;1;2022;10:00;1;2;1;200;2.35\n" +
		"202200000004;4;2;2022;1830;3;1;1;43.2965;5.3698\n"

	locsCSV = "Num_Acc;catr;surf\n" +
		"202200000001;1;2\n" +
		"202200000003;1;1\n" +
		"202200000004;2;-1\n" // surf sentinel: unknown label
	// 202200000002 has no location row at all.

	usersCSV = "Num_Acc;place;grav\n" +
		"202200000001;1;4\n" +
		"202200000001;2;2\n" +
		"202200000001;3;1\n" +
		"202200000004;1;3\n" +
		"bad-row-too-short\n" // malformed: skipped
	// 202200000002 has no user rows.
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeRawFiles(t *testing.T, chars, locs, users string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		RawDir:      filepath.Join(dir, "raw"),
		CleanedFile: filepath.Join(dir, "cleaned", "accidents.csv"),
	}
	require.NoError(t, os.MkdirAll(cfg.RawDir, 0o755))
	require.NoError(t, os.WriteFile(cfg.RawPath(config.DatasetCharacteristics), []byte(chars), 0o644))
	require.NoError(t, os.WriteFile(cfg.RawPath(config.DatasetLocations), []byte(locs), 0o644))
	require.NoError(t, os.WriteFile(cfg.RawPath(config.DatasetUsers), []byte(users), 0o644))
	return cfg
}

func newCleaner(cfg *config.Config, exporters ...pipeline.Exporter) *pipeline.Cleaner {
	return pipeline.NewCleaner(cfg, discardLogger(), observability.NewMetricsForTesting(), exporters...)
}

func TestCleaner_Run(t *testing.T) {
	cfg := writeRawFiles(t, charsCSV, locsCSV, usersCSV)

	summary, err := newCleaner(cfg).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Accidents)
	assert.Equal(t, 1, summary.DroppedCoordinates)
	assert.Equal(t, 4, summary.RowsRead[config.DatasetCharacteristics])
	assert.Equal(t, 1, summary.RowsSkipped[config.DatasetUsers])
	assert.False(t, summary.GeneratedAt.IsZero())

	got, err := os.ReadFile(cfg.CleanedFile)
	require.NoError(t, err)

	want := "accident_id,date,hour,latitude,longitude,zone,surface,lighting,lighting_group,severity,victim_count\n" +
		"202200000001,2022-07-14,7,48.8566,2.3522,in agglomeration,wet,daylight,natural light,fatal,3\n" +
		"202200000002,2022-01-02,23,45.75,4.85,out of agglomeration,unknown,night with street lighting on,street lighting,unknown,0\n" +
		"202200000004,2022-02-04,18,43.2965,5.3698,out of agglomeration,unknown,night without street lighting,no street lighting,severe,1\n"
	if diff := cmp.Diff(want, string(got)); diff != "" {
		t.Errorf("cleaned table mismatch (-want +got):\n%s", diff)
	}
}

func TestCleaner_Run_Idempotent(t *testing.T) {
	cfg := writeRawFiles(t, charsCSV, locsCSV, usersCSV)
	c := newCleaner(cfg)

	_, err := c.Run(context.Background())
	require.NoError(t, err)
	first, err := os.ReadFile(cfg.CleanedFile)
	require.NoError(t, err)

	_, err = c.Run(context.Background())
	require.NoError(t, err)
	second, err := os.ReadFile(cfg.CleanedFile)
	require.NoError(t, err)

	assert.Equal(t, first, second, "identical inputs must produce byte-identical output")
}

func TestCleaner_Run_MissingColumnIsFatal(t *testing.T) {
	// Strip the grav column from the users file.
	usersNoGrav := "Num_Acc;place\n202200000001;1\n"
	cfg := writeRawFiles(t, charsCSV, locsCSV, usersNoGrav)

	_, err := newCleaner(cfg).Run(context.Background())
	require.Error(t, err)

	var se *pipeline.SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, config.DatasetUsers, se.Dataset)
	assert.Equal(t, "grav", se.Column)

	_, statErr := os.Stat(cfg.CleanedFile)
	assert.True(t, os.IsNotExist(statErr), "schema violation must not produce an output file")
}

func TestCleaner_Run_MissingRawFileIsFatal(t *testing.T) {
	cfg := writeRawFiles(t, charsCSV, locsCSV, usersCSV)
	require.NoError(t, os.Remove(cfg.RawPath(config.DatasetLocations)))

	_, err := newCleaner(cfg).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.DatasetLocations)
}

func TestCleaner_Run_LegacyIdentifierColumn(t *testing.T) {
	// Pre-2022 vintages name the identifier Num_Acc in every file.
	legacy := "Num_Acc;jour;mois;an;hrmn;lum;agg;atm;lat;long\n" +
		"201900000001;1;6;2019;0915;2;2;1;47.2184;-1.5536\n"
	cfg := writeRawFiles(t, legacy, locsCSV, usersCSV)

	summary, err := newCleaner(cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Accidents)
}

// recordingExporter captures what the cleaner hands to optional sinks.
type recordingExporter struct {
	accidents []domain.Accident
	err       error
}

func (r *recordingExporter) Name() string { return "recording" }

func (r *recordingExporter) Export(_ context.Context, accidents []domain.Accident) error {
	r.accidents = accidents
	return r.err
}

func TestCleaner_Run_Exporters(t *testing.T) {
	cfg := writeRawFiles(t, charsCSV, locsCSV, usersCSV)
	exp := &recordingExporter{}

	_, err := newCleaner(cfg, exp).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, exp.accidents, 3)
	assert.Equal(t, "202200000001", exp.accidents[0].ID)
	assert.Equal(t, domain.SeverityFatal, exp.accidents[0].SeverityLabel)
}

func TestCleaner_Run_ExporterFailureIsFatal(t *testing.T) {
	cfg := writeRawFiles(t, charsCSV, locsCSV, usersCSV)
	exp := &recordingExporter{err: errors.New("broker unreachable")}

	_, err := newCleaner(cfg, exp).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recording")
}

func TestCleaner_Run_FrozenClock(t *testing.T) {
	cfg := writeRawFiles(t, charsCSV, locsCSV, usersCSV)

	frozen := time.Date(2026, time.August, 31, 12, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(frozen))
	defer domain.SetClock(nil)

	summary, err := newCleaner(cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, frozen, summary.GeneratedAt)
}
