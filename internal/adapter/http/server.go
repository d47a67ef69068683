// Package http is the dashboard's HTTP surface: health and readiness
// probes, Prometheus metrics, the JSON query API, and the embedded
// single-page dashboard itself.
package http

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nroussel/accidash/internal/dashboard"
	"github.com/nroussel/accidash/internal/observability"
)

//go:embed static
var staticFiles embed.FS

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server exposes the dashboard API plus health, readiness, and metrics
// endpoints.
type Server struct {
	httpServer *http.Server
	store      *dashboard.Store
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewServer wires the route table. The store is the only data source; every
// API route reads from it and nothing writes.
func NewServer(addr string, store *dashboard.Store, ready ReadinessChecker, metrics *observability.Metrics, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		store:   store,
		metrics: metrics,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/bounds", s.counted("bounds", s.handleBounds))
	mux.HandleFunc("GET /api/accidents", s.counted("accidents", s.handleAccidents))
	mux.HandleFunc("GET /api/stats/severity", s.counted("stats_severity", s.handleSeverity))
	mux.HandleFunc("GET /api/stats/surface", s.counted("stats_surface", s.handleSurface))
	mux.HandleFunc("GET /api/stats/hourly", s.counted("stats_hourly", s.handleHourly))
	mux.HandleFunc("GET /api/stats/lighting", s.counted("stats_lighting", s.handleLighting))

	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err) // embed layout is fixed at compile time
	}
	mux.Handle("GET /", http.FileServerFS(static))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) counted(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.metrics.DashboardRequests.WithLabelValues(route).Inc()
		h(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func (s *Server) handleBounds(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.DateBounds())
}

func (s *Server) handleAccidents(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, s.store.MapPoints(q))
}

func (s *Server) handleSeverity(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, s.store.SeverityByZone(q))
}

func (s *Server) handleSurface(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, s.store.SurfaceCounts(q))
}

func (s *Server) handleHourly(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, s.store.HourlyCounts(q))
}

func (s *Server) handleLighting(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, s.store.LightingShares(q))
}

// parseQuery builds a store query from URL parameters: from and to as
// ISO dates, and severity, zone, surface, and lighting_group as
// comma-separated label lists.
func parseQuery(r *http.Request) (dashboard.Query, error) {
	params := r.URL.Query()
	q := dashboard.Query{
		Severities:     splitList(params.Get("severity")),
		Zones:          splitList(params.Get("zone")),
		Surfaces:       splitList(params.Get("surface")),
		LightingGroups: splitList(params.Get("lighting_group")),
	}

	if v := params.Get("from"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			return dashboard.Query{}, fmt.Errorf("invalid from date %q", v)
		}
		q.From = d
	}
	if v := params.Get("to"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			return dashboard.Query{}, fmt.Errorf("invalid to date %q", v)
		}
		q.To = d
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From) {
		return dashboard.Query{}, fmt.Errorf("to date %s precedes from date %s", q.To.Format("2006-01-02"), q.From.Format("2006-01-02"))
	}
	return q, nil
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
