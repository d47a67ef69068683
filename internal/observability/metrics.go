package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// acquisition and cleaning stages and the dashboard server.
type Metrics struct {
	// Acquisition metrics.
	FetchDuration *prometheus.HistogramVec // label: dataset
	FetchCacheHit *prometheus.CounterVec   // label: dataset
	FetchErrors   *prometheus.CounterVec   // label: dataset

	// Cleaning metrics.
	RowsRead          *prometheus.CounterVec // label: dataset
	RowsSkipped       *prometheus.CounterVec // label: dataset
	RowsDroppedCoords prometheus.Counter
	AccidentsWritten  prometheus.Counter
	CleanDuration     prometheus.Histogram
	CleanRunning      prometheus.Gauge

	// Dashboard metrics.
	DashboardRequests *prometheus.CounterVec // label: route
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FetchDuration,
		m.FetchCacheHit,
		m.FetchErrors,
		m.RowsRead,
		m.RowsSkipped,
		m.RowsDroppedCoords,
		m.AccidentsWritten,
		m.CleanDuration,
		m.CleanRunning,
		m.DashboardRequests,
	)
	return m
}

// NewMetricsForTesting creates Metrics with unregistered collectors to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "accidash",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of a raw dataset download.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}, []string{"dataset"}),
		FetchCacheHit: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "accidash",
			Name:      "fetch_cache_hits_total",
			Help:      "Fetches skipped because the raw file was already present.",
		}, []string{"dataset"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "accidash",
			Name:      "fetch_errors_total",
			Help:      "Failed raw dataset downloads.",
		}, []string{"dataset"}),
		RowsRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "accidash",
			Name:      "rows_read_total",
			Help:      "Raw rows read per dataset.",
		}, []string{"dataset"}),
		RowsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "accidash",
			Name:      "rows_skipped_total",
			Help:      "Malformed raw rows skipped per dataset.",
		}, []string{"dataset"}),
		RowsDroppedCoords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "accidash",
			Name:      "rows_dropped_coordinates_total",
			Help:      "Accidents dropped for missing or out-of-range coordinates.",
		}),
		AccidentsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "accidash",
			Name:      "accidents_written_total",
			Help:      "Cleaned accident records written.",
		}),
		CleanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "accidash",
			Name:      "clean_duration_seconds",
			Help:      "Duration of a complete merge-and-normalize run.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		CleanRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "accidash",
			Name:      "clean_running",
			Help:      "1 while a cleaning run is active.",
		}),
		DashboardRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "accidash",
			Name:      "dashboard_requests_total",
			Help:      "Dashboard API requests by route.",
		}, []string{"route"}),
	}
}
