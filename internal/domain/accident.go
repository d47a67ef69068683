package domain

import "time"

// Accident is the cleaned, accident-level record derived from the three raw
// BAAC tables. One instance per accident identifier in the characteristics
// file that carries valid coordinates.
type Accident struct {
	ID            string    `json:"id"`
	Date          time.Time `json:"date"`
	Hour          int       `json:"hour"` // -1 when hrmn was unparseable
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	ZoneLabel     string    `json:"zone"`
	SurfaceLabel  string    `json:"surface"`
	LightingLabel string    `json:"lighting"`
	LightingGroup string    `json:"lighting_group"`
	SeverityLabel string    `json:"severity"`
	VictimCount   int       `json:"victim_count"`
}

// HasDate reports whether the accident carries a parseable date. Rows with a
// broken jour/mois/an triple keep a zero Date and are excluded from
// date-range filtering, not from the table.
func (a Accident) HasDate() bool {
	return !a.Date.IsZero()
}
