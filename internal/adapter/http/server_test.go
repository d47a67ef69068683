package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/nroussel/accidash/internal/adapter/http"
	"github.com/nroussel/accidash/internal/dashboard"
	"github.com/nroussel/accidash/internal/observability"
)

const cleanedCSV = `accident_id,date,hour,latitude,longitude,zone,surface,lighting,lighting_group,severity,victim_count
202200000001,2022-01-10,8,48.8566,2.3522,in agglomeration,wet,daylight,natural light,fatal,2
202200000002,2022-03-05,18,45.75,4.85,in agglomeration,normal,night with street lighting on,street lighting,minor,1
202200000003,2022-07-14,23,43.2965,5.3698,out of agglomeration,normal,night without street lighting,no street lighting,severe,3
`

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

func newTestServer(t *testing.T, readyErr error) *httpadapter.Server {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cleaned.csv")
	require.NoError(t, os.WriteFile(path, []byte(cleanedCSV), 0o644))

	store := dashboard.NewStore()
	require.NoError(t, store.Load(path))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return httpadapter.NewServer(":0", store, &mockReadiness{err: readyErr}, observability.NewMetricsForTesting(), logger)
}

func get(srv *httpadapter.Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := get(newTestServer(t, nil), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := get(newTestServer(t, nil), "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := get(newTestServer(t, fmt.Errorf("cleaned table not loaded")), "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "cleaned table not loaded", body["error"])
}

func TestMetricsEndpointExposed(t *testing.T) {
	rec := get(newTestServer(t, nil), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBounds(t *testing.T) {
	rec := get(newTestServer(t, nil), "/api/bounds")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var bounds dashboard.Bounds
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bounds))
	assert.Equal(t, "2022-01-10", bounds.From.Format("2006-01-02"))
	assert.Equal(t, "2022-07-14", bounds.To.Format("2006-01-02"))
}

func TestAccidents(t *testing.T) {
	rec := get(newTestServer(t, nil), "/api/accidents")

	require.Equal(t, http.StatusOK, rec.Code)

	var points []dashboard.MapPoint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &points))
	require.Len(t, points, 3)
	assert.Equal(t, "202200000001", points[0].ID)
	assert.Equal(t, "fatal", points[0].Severity)
}

func TestAccidents_Filtered(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"by severity", "severity=fatal", 1},
		{"by severity list", "severity=fatal,severe", 2},
		{"by zone", "zone=out+of+agglomeration", 1},
		{"by date range", "from=2022-02-01&to=2022-04-01", 1},
		{"by lighting group", "lighting_group=street+lighting", 1},
		{"no match", "surface=flooded", 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := get(srv, "/api/accidents?"+tc.query)
			require.Equal(t, http.StatusOK, rec.Code)

			var points []dashboard.MapPoint
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &points))
			assert.Len(t, points, tc.want)
		})
	}
}

func TestAccidents_BadQuery(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name  string
		query string
	}{
		{"malformed from", "from=notadate"},
		{"malformed to", "to=2022-13-99"},
		{"inverted range", "from=2022-06-01&to=2022-01-01"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := get(srv, "/api/accidents?"+tc.query)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestStatsSeverity(t *testing.T) {
	rec := get(newTestServer(t, nil), "/api/stats/severity")

	require.Equal(t, http.StatusOK, rec.Code)

	var counts []dashboard.SeverityCount
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &counts))
	require.Len(t, counts, 3)
	assert.Equal(t, "fatal", counts[0].Severity)
}

func TestStatsSurface(t *testing.T) {
	rec := get(newTestServer(t, nil), "/api/stats/surface")

	require.Equal(t, http.StatusOK, rec.Code)

	var counts []dashboard.LabelCount
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &counts))
	require.NotEmpty(t, counts)
	assert.Equal(t, dashboard.LabelCount{Label: "normal", Count: 2}, counts[0])
}

func TestStatsHourly(t *testing.T) {
	rec := get(newTestServer(t, nil), "/api/stats/hourly")

	require.Equal(t, http.StatusOK, rec.Code)

	var counts []dashboard.HourCount
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &counts))
	require.Len(t, counts, 24)
	assert.Equal(t, 1, counts[8].Count)
}

func TestStatsLighting(t *testing.T) {
	rec := get(newTestServer(t, nil), "/api/stats/lighting")

	require.Equal(t, http.StatusOK, rec.Code)

	var shares []dashboard.LightingShare
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &shares))
	require.Len(t, shares, 3)
	var total float64
	for _, s := range shares {
		total += s.Share
	}
	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestIndexPageServed(t *testing.T) {
	rec := get(newTestServer(t, nil), "/")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Road Accident Dashboard")
}
