package cmd

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nroussel/accidash/internal/config"
)

var (
	genmockDir   string
	genmockCount int
	genmockSeed  int64
)

var genmockCmd = &cobra.Command{
	Use:   "genmock",
	Short: "Generate synthetic raw BAAC files for local development",
	Long: `Writes a synthetic characteristics, locations, and users triple in the
raw BAAC layout, so fetch-free development and demos are possible. The
generator is seeded; the same seed always produces the same files.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return generateMockData(genmockDir, genmockCount, genmockSeed)
	},
}

// metropolitan France bounding box, roughly
const (
	mockLatMin = 42.5
	mockLatMax = 50.8
	mockLonMin = -4.5
	mockLonMax = 7.8
)

func generateMockData(dir string, count int, seed int64) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(seed))

	chars := [][]string{{"Accident_Id", "jour", "mois", "an", "hrmn", "lum", "agg", "atm", "lat", "long"}}
	locs := [][]string{{"Num_Acc", "catr", "surf"}}
	users := [][]string{{"Num_Acc", "place", "grav"}}

	for i := 0; i < count; i++ {
		id := fmt.Sprintf("2022%08d", i+1)
		month := 1 + rng.Intn(12)
		day := 1 + rng.Intn(28)
		hrmn := fmt.Sprintf("%02d:%02d", rng.Intn(24), rng.Intn(60))
		lat := mockLatMin + rng.Float64()*(mockLatMax-mockLatMin)
		lon := mockLonMin + rng.Float64()*(mockLonMax-mockLonMin)

		chars = append(chars, []string{
			id,
			strconv.Itoa(day),
			strconv.Itoa(month),
			"2022",
			hrmn,
			strconv.Itoa(1 + rng.Intn(5)),
			strconv.Itoa(1 + rng.Intn(2)),
			strconv.Itoa(1 + rng.Intn(9)),
			// French open data uses a decimal comma.
			formatFrench(lat),
			formatFrench(lon),
		})

		// A small share of accidents lack a location row, as in the real data.
		if rng.Float64() >= 0.05 {
			surf := strconv.Itoa(1 + rng.Intn(9))
			if rng.Float64() < 0.02 {
				surf = "-1"
			}
			locs = append(locs, []string{id, strconv.Itoa(1 + rng.Intn(7)), surf})
		}

		for place := 1; place <= 1+rng.Intn(4); place++ {
			users = append(users, []string{id, strconv.Itoa(place), strconv.Itoa(1 + rng.Intn(4))})
		}
	}

	files := map[string][][]string{
		config.DatasetCharacteristics: chars,
		config.DatasetLocations:       locs,
		config.DatasetUsers:           users,
	}
	for _, name := range config.DatasetNames {
		if err := writeSemicolonCSV(filepath.Join(dir, name+".csv"), files[name]); err != nil {
			return err
		}
	}
	return nil
}

func formatFrench(v float64) string {
	s := strconv.FormatFloat(v, 'f', 5, 64)
	out := []byte(s)
	for i, c := range out {
		if c == '.' {
			out[i] = ','
		}
	}
	return string(out)
}

func writeSemicolonCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	w.Comma = ';'
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func init() {
	genmockCmd.Flags().StringVar(&genmockDir, "dir", "data/raw", "directory to write the raw files into")
	genmockCmd.Flags().IntVar(&genmockCount, "count", 500, "number of accidents to generate")
	genmockCmd.Flags().Int64Var(&genmockSeed, "seed", 42, "random seed")
	rootCmd.AddCommand(genmockCmd)
}
