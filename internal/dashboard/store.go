// Package dashboard holds the in-memory presentation store: the cleaned
// accident table loaded once and queried by the HTTP adapter. All
// aggregations run over label strings; the store never re-derives codes.
package dashboard

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/nroussel/accidash/internal/domain"
	"github.com/nroussel/accidash/internal/pipeline"
)

// Query narrows the accident set before aggregation. Zero-value fields mean
// "no constraint"; slice filters match any of their values.
type Query struct {
	From           time.Time
	To             time.Time
	Severities     []string
	Zones          []string
	Surfaces       []string
	LightingGroups []string
}

// Bounds is the inclusive date range of the loaded table.
type Bounds struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// SeverityCount is one cell of the severity-by-zone breakdown.
type SeverityCount struct {
	Severity string `json:"severity"`
	Zone     string `json:"zone"`
	Count    int    `json:"count"`
}

// LabelCount is a generic label histogram bucket.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// HourCount is one bucket of the hourly distribution. Hour -1 collects
// records whose time of day could not be parsed.
type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// LightingShare is one slice of the lighting-group pie: its share is
// relative to the filtered set, not the whole table.
type LightingShare struct {
	Group string  `json:"group"`
	Count int     `json:"count"`
	Share float64 `json:"share"`
}

// MapPoint is the minimal per-accident payload the map layer needs.
type MapPoint struct {
	ID          string  `json:"id"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Severity    string  `json:"severity"`
	VictimCount int     `json:"victim_count"`
}

// Store holds the cleaned table in memory. Load replaces the table
// atomically, so readers never observe a half-loaded state.
type Store struct {
	mu        sync.RWMutex
	accidents []domain.Accident
	bounds    Bounds
	loaded    bool
}

func NewStore() *Store {
	return &Store{}
}

// Load reads the cleaned CSV at path and swaps it in as the served table.
func (s *Store) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("load cleaned table: %w", err)
	}
	defer f.Close()

	accidents, err := ReadCleanedCSV(f)
	if err != nil {
		return fmt.Errorf("load cleaned table %s: %w", path, err)
	}

	bounds := Bounds{}
	for _, a := range accidents {
		if !a.HasDate() {
			continue
		}
		if bounds.From.IsZero() || a.Date.Before(bounds.From) {
			bounds.From = a.Date
		}
		if a.Date.After(bounds.To) {
			bounds.To = a.Date
		}
	}

	s.mu.Lock()
	s.accidents = accidents
	s.bounds = bounds
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// Ready reports whether a table has been loaded. The readiness endpoint
// gates on it.
func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// CheckReadiness reports an error until a table has been loaded. It
// satisfies the HTTP adapter's readiness probe.
func (s *Store) CheckReadiness(_ context.Context) error {
	if !s.Ready() {
		return errors.New("cleaned table not loaded")
	}
	return nil
}

// Len returns the number of loaded accidents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accidents)
}

// DateBounds returns the inclusive date range of the table.
func (s *Store) DateBounds() Bounds {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bounds
}

func (s *Store) filter(q Query) []domain.Accident {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Accident, 0, len(s.accidents))
	for _, a := range s.accidents {
		if !q.From.IsZero() && (!a.HasDate() || a.Date.Before(q.From)) {
			continue
		}
		if !q.To.IsZero() && (!a.HasDate() || a.Date.After(q.To)) {
			continue
		}
		if !matchAny(q.Severities, a.SeverityLabel) {
			continue
		}
		if !matchAny(q.Zones, a.ZoneLabel) {
			continue
		}
		if !matchAny(q.Surfaces, a.SurfaceLabel) {
			continue
		}
		if !matchAny(q.LightingGroups, a.LightingGroup) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func matchAny(wanted []string, label string) bool {
	if len(wanted) == 0 {
		return true
	}
	for _, w := range wanted {
		if w == label {
			return true
		}
	}
	return false
}

// MapPoints returns the filtered accidents as map markers, in table order.
func (s *Store) MapPoints(q Query) []MapPoint {
	matched := s.filter(q)
	points := make([]MapPoint, 0, len(matched))
	for _, a := range matched {
		points = append(points, MapPoint{
			ID:          a.ID,
			Latitude:    a.Latitude,
			Longitude:   a.Longitude,
			Severity:    a.SeverityLabel,
			VictimCount: a.VictimCount,
		})
	}
	return points
}

// SeverityByZone counts filtered accidents per (severity, zone) pair.
// Severities come out in fixed fatal-first order so charts are stable.
func (s *Store) SeverityByZone(q Query) []SeverityCount {
	matched := s.filter(q)

	type key struct{ severity, zone string }
	counts := make(map[key]int)
	zones := make(map[string]struct{})
	for _, a := range matched {
		counts[key{a.SeverityLabel, a.ZoneLabel}]++
		zones[a.ZoneLabel] = struct{}{}
	}

	zoneOrder := make([]string, 0, len(zones))
	for z := range zones {
		zoneOrder = append(zoneOrder, z)
	}
	sort.Strings(zoneOrder)

	out := make([]SeverityCount, 0, len(counts))
	for _, sev := range domain.SeverityOrder {
		for _, z := range zoneOrder {
			if n := counts[key{sev, z}]; n > 0 {
				out = append(out, SeverityCount{Severity: sev, Zone: z, Count: n})
			}
		}
	}
	return out
}

// SurfaceCounts histograms the filtered accidents by surface label, most
// frequent first; ties break alphabetically.
func (s *Store) SurfaceCounts(q Query) []LabelCount {
	return labelHistogram(s.filter(q), func(a domain.Accident) string { return a.SurfaceLabel })
}

// LightingCounts histograms the filtered accidents by detailed lighting
// label, most frequent first.
func (s *Store) LightingCounts(q Query) []LabelCount {
	return labelHistogram(s.filter(q), func(a domain.Accident) string { return a.LightingLabel })
}

func labelHistogram(accidents []domain.Accident, labelOf func(domain.Accident) string) []LabelCount {
	counts := make(map[string]int)
	for _, a := range accidents {
		counts[labelOf(a)]++
	}
	out := make([]LabelCount, 0, len(counts))
	for label, n := range counts {
		out = append(out, LabelCount{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// HourlyCounts buckets the filtered accidents by hour of day, 0 through 23
// in order. A trailing -1 bucket appears only when some hours are unknown.
func (s *Store) HourlyCounts(q Query) []HourCount {
	matched := s.filter(q)

	counts := make(map[int]int)
	for _, a := range matched {
		counts[a.Hour]++
	}

	out := make([]HourCount, 0, 24)
	for h := 0; h < 24; h++ {
		out = append(out, HourCount{Hour: h, Count: counts[h]})
	}
	if counts[-1] > 0 {
		out = append(out, HourCount{Hour: -1, Count: counts[-1]})
	}
	return out
}

// LightingShares returns the lighting-group mix of the filtered set. Shares
// sum to 1 when the set is non-empty.
func (s *Store) LightingShares(q Query) []LightingShare {
	matched := s.filter(q)

	counts := make(map[string]int)
	for _, a := range matched {
		counts[a.LightingGroup]++
	}

	groups := make([]string, 0, len(counts))
	for g := range counts {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	total := len(matched)
	out := make([]LightingShare, 0, len(groups))
	for _, g := range groups {
		out = append(out, LightingShare{
			Group: g,
			Count: counts[g],
			Share: float64(counts[g]) / float64(total),
		})
	}
	return out
}

// ReadCleanedCSV parses a cleaned accident table from r. The header must
// match the writer's column order exactly; the cleaned table is a private
// contract between the pipeline and the dashboard, not a lenient input.
func ReadCleanedCSV(r io.Reader) ([]domain.Accident, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(pipeline.CleanedHeader)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, want := range pipeline.CleanedHeader {
		if header[i] != want {
			return nil, fmt.Errorf("unexpected column %q at position %d, want %q", header[i], i, want)
		}
	}

	var accidents []domain.Accident
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		a, err := parseCleanedRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		accidents = append(accidents, a)
	}
	return accidents, nil
}

func parseCleanedRow(row []string) (domain.Accident, error) {
	a := domain.Accident{
		ID:            row[0],
		ZoneLabel:     row[5],
		SurfaceLabel:  row[6],
		LightingLabel: row[7],
		LightingGroup: row[8],
		SeverityLabel: row[9],
		Hour:          -1,
	}

	if row[1] != "" {
		d, err := time.Parse("2006-01-02", row[1])
		if err != nil {
			return domain.Accident{}, fmt.Errorf("date: %w", err)
		}
		a.Date = d
	}
	if row[2] != "" {
		h, err := strconv.Atoi(row[2])
		if err != nil {
			return domain.Accident{}, fmt.Errorf("hour: %w", err)
		}
		a.Hour = h
	}

	lat, err := strconv.ParseFloat(row[3], 64)
	if err != nil {
		return domain.Accident{}, fmt.Errorf("latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(row[4], 64)
	if err != nil {
		return domain.Accident{}, fmt.Errorf("longitude: %w", err)
	}
	a.Latitude, a.Longitude = lat, lon

	victims, err := strconv.Atoi(row[10])
	if err != nil {
		return domain.Accident{}, fmt.Errorf("victim_count: %w", err)
	}
	a.VictimCount = victims

	return a, nil
}
