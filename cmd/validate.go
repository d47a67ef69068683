package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nroussel/accidash/internal/config"
	"github.com/nroussel/accidash/internal/dashboard"
	"github.com/nroussel/accidash/internal/domain"
	"github.com/nroussel/accidash/internal/pipeline"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check raw and cleaned data integrity",
	Long: `Runs integrity checks across the raw files and the cleaned table:
required columns, identifier references, coordinate bounds, label
closure, and severity consistency. Exits non-zero on any failure.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, _, err := loadConfig()
		if err != nil {
			return err
		}
		if code := runValidation(cfg); code != 0 {
			os.Exit(code)
		}
		return nil
	},
}

// phase tracks pass/fail for one validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func runValidation(cfg *config.Config) int {
	fmt.Println("=== Accident Data Integrity Validation ===")
	fmt.Println()

	tables := make(map[string]*pipeline.Table, len(config.DatasetNames))
	for _, name := range config.DatasetNames {
		t, err := pipeline.LoadTable(cfg.RawPath(name), name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load raw files: %v\n", err)
			return 1
		}
		tables[name] = t
	}

	cleaned, err := loadCleaned(cfg.CleanedFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load cleaned table: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateRawSchemas(tables),
		validateIdentifiers(tables, cleaned),
		validateCoordinates(cleaned),
		validateLabels(cleaned),
		validateSeverity(tables[config.DatasetUsers], cleaned),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = "FAIL"
			allPassed = false
		}
		fmt.Printf("[%s] %s\n", status, p.name)
		for _, e := range p.errors {
			fmt.Printf("       %s\n", e)
		}
	}
	if !allPassed {
		return 1
	}
	fmt.Println()
	fmt.Println("All checks passed.")
	return 0
}

func loadCleaned(path string) ([]domain.Accident, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return dashboard.ReadCleanedCSV(f)
}

// validateRawSchemas confirms every raw file carries the columns the merge
// reads.
func validateRawSchemas(tables map[string]*pipeline.Table) *phase {
	p := &phase{name: "raw schemas"}
	for _, name := range config.DatasetNames {
		t := tables[name]
		if err := t.Require(pipeline.RequiredColumns(name)...); err != nil {
			p.errorf("%v", err)
		}
		fmt.Printf("%s: %d rows, %d skipped\n", name, len(t.Rows), t.Skipped)
	}
	return p
}

// validateIdentifiers confirms every cleaned accident id exists in the
// characteristics file, and that cleaned ids are unique and sorted.
func validateIdentifiers(tables map[string]*pipeline.Table, cleaned []domain.Accident) *phase {
	p := &phase{name: "identifier references"}

	chars := tables[config.DatasetCharacteristics]
	idCol := "Accident_Id"
	if !chars.Has(idCol) {
		idCol = "Num_Acc"
	}
	known := make(map[string]struct{}, len(chars.Rows))
	for _, row := range chars.Rows {
		known[chars.Get(row, idCol)] = struct{}{}
	}

	prev := ""
	for _, a := range cleaned {
		if _, ok := known[a.ID]; !ok {
			p.errorf("cleaned id %s not present in characteristics", a.ID)
		}
		if a.ID <= prev {
			p.errorf("cleaned ids not strictly increasing at %s", a.ID)
		}
		prev = a.ID
	}
	return p
}

// validateCoordinates confirms every cleaned record is inside WGS-84 bounds.
func validateCoordinates(cleaned []domain.Accident) *phase {
	p := &phase{name: "coordinate bounds"}
	for _, a := range cleaned {
		if !domain.ValidCoordinates(a.Latitude, a.Longitude) {
			p.errorf("accident %s: coordinates out of bounds (%f, %f)", a.ID, a.Latitude, a.Longitude)
		}
	}
	return p
}

// validateLabels confirms every label in the cleaned table belongs to its
// closed vocabulary.
func validateLabels(cleaned []domain.Accident) *phase {
	p := &phase{name: "label closure"}

	valid := func(table map[int]string) map[string]struct{} {
		set := map[string]struct{}{domain.LabelUnknown: {}}
		for _, label := range table {
			set[label] = struct{}{}
		}
		return set
	}
	zones := valid(domain.ZoneLabels)
	surfaces := valid(domain.SurfaceLabels)
	lightings := valid(domain.LightingLabels)
	severities := valid(domain.SeverityLabels)

	for _, a := range cleaned {
		if _, ok := zones[a.ZoneLabel]; !ok {
			p.errorf("accident %s: unknown zone label %q", a.ID, a.ZoneLabel)
		}
		if _, ok := surfaces[a.SurfaceLabel]; !ok {
			p.errorf("accident %s: unknown surface label %q", a.ID, a.SurfaceLabel)
		}
		if _, ok := lightings[a.LightingLabel]; !ok {
			p.errorf("accident %s: unknown lighting label %q", a.ID, a.LightingLabel)
		}
		if _, ok := severities[a.SeverityLabel]; !ok {
			p.errorf("accident %s: unknown severity label %q", a.ID, a.SeverityLabel)
		}
	}
	return p
}

// validateSeverity recomputes the worst severity and victim count per
// accident from the users file and compares against the cleaned table.
func validateSeverity(users *pipeline.Table, cleaned []domain.Accident) *phase {
	p := &phase{name: "severity consistency"}
	if err := users.Require("Num_Acc", "grav"); err != nil {
		p.errorf("%v", err)
		return p
	}

	grav := make(map[string][]int)
	for _, row := range users.Rows {
		id := users.Get(row, "Num_Acc")
		grav[id] = append(grav[id], domain.ParseCode(users.Get(row, "grav")))
	}

	for _, a := range cleaned {
		if want := domain.WorstSeverity(grav[a.ID]); a.SeverityLabel != want {
			p.errorf("accident %s: severity %q, recomputed %q", a.ID, a.SeverityLabel, want)
		}
		if want := len(grav[a.ID]); a.VictimCount != want {
			p.errorf("accident %s: victim count %d, recomputed %d", a.ID, a.VictimCount, want)
		}
	}
	return p
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
