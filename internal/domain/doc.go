// Package domain models the French BAAC road-accident open data.
//
// # Data Source
//
// Accident records come from the "Bases de données annuelles des accidents
// corporels de la circulation routière" published by the Ministère de
// l'Intérieur on data.gouv.fr. Each year is released as a set of
// semicolon-separated CSV files; this project consumes three of them:
//
//	caracteristiques  one row per accident: id, date, time, lighting,
//	                  agglomeration flag, coordinates
//	lieux             one row per accident: road attributes, among them the
//	                  road-surface condition
//	usagers           one row per person involved: severity of their injuries
//
// Rows are linked by the accident identifier column. The characteristics file
// names it "Accident_Id" in the 2022 vintage and "Num_Acc" in earlier years;
// the other files always use "Num_Acc".
//
// # BAAC Encoding Conventions
//
// Categorical columns carry small integer codes. The ones used here:
//
//	agg   1 = outside agglomeration, 2 = inside agglomeration
//	surf  1 = normal .. 9 = other (see SurfaceLabels)
//	lum   1 = daylight .. 5 = night with street lighting on (see LightingLabels)
//	grav  1 = unharmed, 2 = fatal, 3 = severe, 4 = minor
//
// The grav numbering is NOT ordered by severity; the fixed total ordering is
// fatal > severe > minor > unharmed and lives in severityRank. "-1" and the
// empty string are the dataset's sentinels for "not recorded" in any code
// column; both map to the "unknown" label rather than an error.
//
// Coordinates use WGS-84 but older vintages write the decimal separator as a
// comma ("48,8566"). [ParseCoordinate] accepts both forms. Values outside the
// valid latitude/longitude ranges are rejected by [ValidCoordinates] and the
// cleaning step drops such rows rather than passing placeholder zeros through.
//
// The time-of-day column hrmn appears both as "HHMM" (older files) and
// "HH:MM" (2022). [ParseHour] accepts both and returns -1 when the value is
// unparseable.
//
// # Severity Aggregation
//
// The cleaned table holds one row per accident, so the per-person grav codes
// are reduced to the worst outcome among everyone involved ([WorstSeverity]).
// An accident with no usagers rows gets the "unknown" label, never "unharmed".
package domain
