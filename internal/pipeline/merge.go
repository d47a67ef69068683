package pipeline

import (
	"sort"

	"github.com/nroussel/accidash/internal/config"
	"github.com/nroussel/accidash/internal/domain"
)

// MergeResult carries the cleaned records plus per-stage bookkeeping.
type MergeResult struct {
	Accidents          []domain.Accident
	DroppedCoordinates int
}

// requiredCharacteristics are the columns the merge reads from the
// characteristics file, beyond the accident identifier.
var requiredCharacteristics = []string{"jour", "mois", "an", "hrmn", "lum", "agg", "lat", "long"}

// Merge joins the three raw tables into one cleaned record per accident:
// a left join from characteristics, enriched by locations (1:1) and by the
// worst-severity reduction of users (1:many). Rows without valid WGS-84
// coordinates are dropped and counted. The output is sorted by accident id
// so identical inputs always produce identical output.
func Merge(chars, locs, users *Table) (*MergeResult, error) {
	// 2022 renamed the identifier column in the characteristics file.
	idCol := "Accident_Id"
	if !chars.Has(idCol) {
		idCol = "Num_Acc"
	}
	if err := chars.Require(idCol); err != nil {
		return nil, err
	}
	if err := chars.Require(requiredCharacteristics...); err != nil {
		return nil, err
	}
	if err := locs.Require("Num_Acc", "surf"); err != nil {
		return nil, err
	}
	if err := users.Require("Num_Acc", "grav"); err != nil {
		return nil, err
	}

	// Location is 1:1 with the accident; first row wins on duplicates.
	surface := make(map[string]int, len(locs.Rows))
	for _, row := range locs.Rows {
		id := locs.Get(row, "Num_Acc")
		if _, seen := surface[id]; !seen {
			surface[id] = domain.ParseCode(locs.Get(row, "surf"))
		}
	}

	// Users is 1:many; gather every grav code per accident.
	grav := make(map[string][]int)
	for _, row := range users.Rows {
		id := users.Get(row, "Num_Acc")
		grav[id] = append(grav[id], domain.ParseCode(users.Get(row, "grav")))
	}

	result := &MergeResult{Accidents: make([]domain.Accident, 0, len(chars.Rows))}
	for _, row := range chars.Rows {
		id := chars.Get(row, idCol)

		lat, okLat := domain.ParseCoordinate(chars.Get(row, "lat"))
		lon, okLon := domain.ParseCoordinate(chars.Get(row, "long"))
		if !okLat || !okLon || !domain.ValidCoordinates(lat, lon) {
			result.DroppedCoordinates++
			continue
		}

		lum := domain.ParseCode(chars.Get(row, "lum"))
		surfCode := -1
		if sc, ok := surface[id]; ok {
			surfCode = sc
		}

		result.Accidents = append(result.Accidents, domain.Accident{
			ID:            id,
			Date:          domain.BuildDate(chars.Get(row, "jour"), chars.Get(row, "mois"), chars.Get(row, "an")),
			Hour:          domain.ParseHour(chars.Get(row, "hrmn")),
			Latitude:      lat,
			Longitude:     lon,
			ZoneLabel:     domain.Label(domain.ZoneLabels, domain.ParseCode(chars.Get(row, "agg"))),
			SurfaceLabel:  domain.Label(domain.SurfaceLabels, surfCode),
			LightingLabel: domain.Label(domain.LightingLabels, lum),
			LightingGroup: domain.LightingGroupFor(lum),
			SeverityLabel: domain.WorstSeverity(grav[id]),
			VictimCount:   len(grav[id]),
		})
	}

	sort.Slice(result.Accidents, func(i, j int) bool {
		return result.Accidents[i].ID < result.Accidents[j].ID
	})
	return result, nil
}

// RequiredColumns reports which columns each raw dataset must provide; the
// validate subcommand uses it to check raw files ahead of a run.
func RequiredColumns(dataset string) []string {
	switch dataset {
	case config.DatasetCharacteristics:
		return requiredCharacteristics
	case config.DatasetLocations:
		return []string{"Num_Acc", "surf"}
	case config.DatasetUsers:
		return []string{"Num_Acc", "grav"}
	default:
		return nil
	}
}
