package domain

import (
	"strconv"
	"strings"
	"time"
)

// ParseCode parses a BAAC categorical code column. Empty strings, the "-1"
// sentinel, and anything non-numeric all collapse to -1 meaning "not
// recorded".
func ParseCode(s string) int {
	s = strings.TrimSpace(s)
	if s == "" || s == "-1" {
		return -1
	}
	// Some vintages export codes as floats ("2.0").
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		s = s[:dot]
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return v
}

// ParseCoordinate parses a latitude or longitude value, accepting the comma
// decimal separator used by older BAAC exports. Returns (0, false) when the
// value is missing or unparseable.
func ParseCoordinate(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" || s == "-1" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ValidCoordinates reports whether lat/lon fall inside the WGS-84 ranges.
// (0,0) is treated as missing: it is the classic placeholder for unrecorded
// positions and sits in the Gulf of Guinea, not in France.
func ValidCoordinates(lat, lon float64) bool {
	if lat == 0 && lon == 0 {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// ParseHour extracts the hour from the hrmn column. Both the "HH:MM" form of
// the 2022 files and the zero-padded "HHMM" form of earlier vintages are
// accepted. Returns -1 when unparseable.
func ParseHour(hrmn string) int {
	hrmn = strings.TrimSpace(hrmn)
	if i := strings.IndexByte(hrmn, ':'); i >= 0 {
		hrmn = hrmn[:i]
	} else {
		// "930" means 09:30; left-pad to four digits before slicing.
		if dot := strings.IndexByte(hrmn, '.'); dot >= 0 {
			hrmn = hrmn[:dot]
		}
		if len(hrmn) < 3 || len(hrmn) > 4 {
			return -1
		}
		if len(hrmn) == 3 {
			hrmn = "0" + hrmn
		}
		hrmn = hrmn[:2]
	}
	h, err := strconv.Atoi(hrmn)
	if err != nil || h < 0 || h > 23 {
		return -1
	}
	return h
}

// BuildDate combines the jour/mois/an columns into a date. Returns the zero
// time when any component is missing or out of range.
func BuildDate(jour, mois, an string) time.Time {
	day := ParseCode(jour)
	month := ParseCode(mois)
	year := ParseCode(an)
	if day < 1 || day > 31 || month < 1 || month > 12 || year < 1900 {
		return time.Time{}
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes Feb 30 into March; reject such rows instead.
	if d.Day() != day || d.Month() != time.Month(month) {
		return time.Time{}
	}
	return d
}

// WorstSeverity reduces the grav codes of everyone involved in one accident
// to the most severe outcome. An empty slice (accident with no usagers rows)
// or a slice of nothing but unrecorded codes yields LabelUnknown.
func WorstSeverity(gravCodes []int) string {
	best := -1
	bestRank := -1
	for _, code := range gravCodes {
		rank, ok := severityRank[code]
		if !ok {
			continue
		}
		if rank > bestRank {
			bestRank = rank
			best = code
		}
	}
	if best == -1 {
		return LabelUnknown
	}
	return SeverityLabels[best]
}
