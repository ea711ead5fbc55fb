// Command genmock generates deterministic Level1 mock data: a synthetic
// scene serialized as both a classic NetCDF product and a tabular
// extraction, plus the calibration tables the readers need. The same seed
// always produces byte-identical fixtures.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out-dir testdata/mock \
//	  -rows 60 -width 20 -seed 42
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/oceancolor-l1/internal/domain"
	"github.com/couchcryptid/oceancolor-l1/internal/synth"
)

// Fixtures are pinned to a fixed acquisition time so regenerating them
// never churns the temporal fields.
var baseDate = time.Date(2011, time.April, 14, 10, 30, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out-dir", "", "directory to write fixtures into")
	rows := flag.Int("rows", 60, "scene rows")
	width := flag.Int("width", 20, "scene columns")
	sensorName := flag.String("sensor", "MERIS", "sensor identifier")
	seed := flag.Int64("seed", 42, "generation seed")
	sep := flag.String("sep", ";", "extraction field separator")
	flag.Parse()

	if *outDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out-dir")
	}
	sepRune, _ := utf8.DecodeRuneInString(*sep)
	if utf8.RuneCountInString(*sep) != 1 {
		return fmt.Errorf("invalid -sep %q: want a single character", *sep)
	}

	sensor, err := domain.ParseSensor(*sensorName)
	if err != nil {
		return err
	}
	caps := sensor.Capabilities()

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}

	sc := synth.NewScene(synth.Options{
		Rows:      *rows,
		Cols:      *width,
		Bands:     caps.Bands,
		Seed:      *seed,
		Detectors: 16,
		LandCols:  2,
		Clock:     clockwork.NewFakeClockAt(baseDate),
	})

	ncPath := filepath.Join(*outDir, "scene.nc")
	if err := sc.WriteNetCDF(ncPath); err != nil {
		return fmt.Errorf("writing %s: %w", ncPath, err)
	}
	log.Printf("%s: %dx%d, %d bands", ncPath, *rows, *width, len(caps.Bands))

	csvPath := filepath.Join(*outDir, "extraction.csv")
	if err := sc.WriteCSV(csvPath, sepRune); err != nil {
		return fmt.Errorf("writing %s: %w", csvPath, err)
	}
	log.Printf("%s: %d pixels", csvPath, *rows**width)

	if caps.SmileCorrection {
		if err := synth.WriteSmileTables(*outDir, caps, 16); err != nil {
			return fmt.Errorf("writing smile tables: %w", err)
		}
		log.Printf("smile tables: %s, %s", caps.WavelengthFile, caps.SmileFluxFile)
	} else {
		if err := synth.WriteFluxTable(*outDir, caps); err != nil {
			return fmt.Errorf("writing flux table: %w", err)
		}
		log.Printf("flux table: %s", caps.SolarFluxFile)
	}
	return nil
}
