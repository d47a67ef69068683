package domain

// LabelUnknown is the fallback for any code missing from a lookup table.
// Using a single explicit label keeps the output sets closed: every labelled
// column in the cleaned table draws from a fixed enum.
const LabelUnknown = "unknown"

// Severity labels, most severe first. SeverityLabels maps the raw grav code;
// severityRank defines the fixed total ordering used by WorstSeverity.
const (
	SeverityFatal    = "fatal"
	SeveritySevere   = "severe"
	SeverityMinor    = "minor"
	SeverityUnharmed = "unharmed"
)

// SeverityLabels maps the BAAC grav code to its label.
var SeverityLabels = map[int]string{
	1: SeverityUnharmed,
	2: SeverityFatal,
	3: SeveritySevere,
	4: SeverityMinor,
}

// severityRank orders grav codes by severity: fatal > severe > minor >
// unharmed. Codes absent from the map (including the -1 sentinel) rank below
// everything.
var severityRank = map[int]int{
	2: 3, // fatal
	3: 2, // severe
	4: 1, // minor
	1: 0, // unharmed
}

// ZoneLabels maps the BAAC agg code to a zone-type label.
var ZoneLabels = map[int]string{
	1: "out of agglomeration",
	2: "in agglomeration",
}

// SurfaceLabels maps the BAAC surf code to a road-surface condition label.
var SurfaceLabels = map[int]string{
	1: "normal",
	2: "wet",
	3: "puddles",
	4: "flooded",
	5: "snow-covered",
	6: "mud",
	7: "icy",
	8: "grease or oil",
	9: "other",
}

// LightingLabels maps the BAAC lum code to a lighting condition label.
var LightingLabels = map[int]string{
	1: "daylight",
	2: "dusk or dawn",
	3: "night without street lighting",
	4: "night with street lighting off",
	5: "night with street lighting on",
}

// Label resolves a code against a lookup table, falling back to LabelUnknown
// for sentinels and unmapped codes.
func Label(table map[int]string, code int) string {
	if l, ok := table[code]; ok {
		return l
	}
	return LabelUnknown
}

// LightingGroupFor collapses the five lum codes into the coarse grouping the
// dashboard charts use.
func LightingGroupFor(lum int) string {
	switch lum {
	case 5:
		return "street lighting"
	case 3, 4:
		return "no street lighting"
	case 1, 2:
		return "natural light"
	default:
		return LabelUnknown
	}
}

// SeverityOrder lists the known severity labels from most to least severe.
// Exposed for consumers that present severities in a stable order.
var SeverityOrder = []string{SeverityFatal, SeveritySevere, SeverityMinor, SeverityUnharmed}
