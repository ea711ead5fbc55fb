// Package synth generates deterministic Level1 fixture scenes: the same
// seed always yields the same pixels, so tests and generated mock data
// stay stable across runs. Scenes can be serialized as classic NetCDF
// instrument products or column-oriented text extractions, together with
// matching calibration tables.
package synth

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ctessum/cdf"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/oceancolor-l1/internal/domain"
)

// Product flag bits written into l1_flags.
const (
	FlagBitCosmetic  = 1 << 0
	FlagBitSuspect   = 1 << 3
	FlagBitLandOcean = 1 << 4
	FlagBitInvalid   = 1 << 7
)

// Scene is a fully materialized synthetic acquisition. All per-pixel
// slices are row-major with Rows*Cols entries.
type Scene struct {
	Rows, Cols int
	Bands      []int
	Start      time.Time

	Lat, Lon               []float64
	SunZenith, ViewZenith  []float64
	SunAzimuth, ViewAzimuth []float64
	Zonal, Merid           []float64
	Ozone, Pressure        []float64
	Detector               []int
	Flags                  []byte

	// Radiance maps a nominal band to its pixel column.
	Radiance map[int][]float64
}

// Options controls scene generation.
type Options struct {
	Rows, Cols int
	Bands      []int
	Seed       int64

	// Detectors is the size of the detector array the scene's
	// detector_index values cycle through.
	Detectors int

	// LandCols marks the rightmost n columns as land.
	LandCols int

	// Clock supplies the acquisition start time.
	Clock clockwork.Clock
}

// NewScene generates a scene. Geometry varies smoothly across the swath,
// radiances are positive with a deterministic sprinkle of negative
// first-band pixels to exercise invalid-pixel screening.
func NewScene(opts Options) *Scene {
	if opts.Detectors == 0 {
		opts.Detectors = 16
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	rng := rand.New(rand.NewSource(opts.Seed))
	n := opts.Rows * opts.Cols

	sc := &Scene{
		Rows:        opts.Rows,
		Cols:        opts.Cols,
		Bands:       opts.Bands,
		Start:       opts.Clock.Now().UTC(),
		Lat:         make([]float64, n),
		Lon:         make([]float64, n),
		SunZenith:   make([]float64, n),
		ViewZenith:  make([]float64, n),
		SunAzimuth:  make([]float64, n),
		ViewAzimuth: make([]float64, n),
		Zonal:       make([]float64, n),
		Merid:       make([]float64, n),
		Ozone:       make([]float64, n),
		Pressure:    make([]float64, n),
		Detector:    make([]int, n),
		Flags:       make([]byte, n),
		Radiance:    make(map[int][]float64, len(opts.Bands)),
	}
	for _, b := range opts.Bands {
		sc.Radiance[b] = make([]float64, n)
	}

	for row := 0; row < opts.Rows; row++ {
		for col := 0; col < opts.Cols; col++ {
			p := row*opts.Cols + col
			sc.Lat[p] = 43 + 0.01*float64(row)
			sc.Lon[p] = 5 + 0.01*float64(col)
			sc.SunZenith[p] = 30 + 10*float64(row)/float64(opts.Rows+1)
			sc.ViewZenith[p] = 5 + 20*float64(col)/float64(opts.Cols+1)
			sc.SunAzimuth[p] = 120 + rng.Float64()
			sc.ViewAzimuth[p] = 95 + rng.Float64()
			sc.Zonal[p] = 3 + rng.Float64()
			sc.Merid[p] = 4 + rng.Float64()
			sc.Ozone[p] = 300 + 20*rng.Float64()
			sc.Pressure[p] = 1013 + 5*rng.Float64()
			sc.Detector[p] = p % opts.Detectors

			if col >= opts.Cols-opts.LandCols {
				sc.Flags[p] |= FlagBitLandOcean
			}
			for i, b := range opts.Bands {
				v := 50 + 100*rng.Float64() - 2*float64(i)
				if i == 0 && p%97 == 13 {
					v = -v // deterministic invalid pixels
				}
				sc.Radiance[b][p] = v
			}
		}
	}
	return sc
}

// WindModule returns sqrt(u²+v²) for pixel p.
func (sc *Scene) WindModule(p int) float64 {
	return math.Sqrt(sc.Zonal[p]*sc.Zonal[p] + sc.Merid[p]*sc.Merid[p])
}

// RelAzimuth returns |sun-view| azimuth for pixel p.
func (sc *Scene) RelAzimuth(p int) float64 {
	return math.Abs(sc.SunAzimuth[p] - sc.ViewAzimuth[p])
}

// WriteCSV serializes the scene as a column-oriented extraction with the
// operational default column names, one pixel per row.
func (sc *Scene) WriteCSV(path string, sep rune) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = sep

	header := []string{"LAT", "LON", "TIME", "DETECTOR", "OZONE_ECMWF",
		"WINDM", "PRESS_ECMWF", "SUN_ZENITH", "VIEW_ZENITH", "DELTA_AZIMUTH"}
	for i := range sc.Bands {
		header = append(header, fmt.Sprintf("TOAR_%02d", i+1))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	ts := sc.Start.Format("20060102T150405Z")
	for p := 0; p < sc.Rows*sc.Cols; p++ {
		row := []string{
			num(sc.Lat[p]),
			num(sc.Lon[p]),
			ts,
			strconv.Itoa(sc.Detector[p]),
			num(sc.Ozone[p]),
			num(sc.WindModule(p)),
			num(sc.Pressure[p]),
			num(sc.SunZenith[p]),
			num(sc.ViewZenith[p]),
			num(sc.RelAzimuth(p)),
		}
		for _, b := range sc.Bands {
			row = append(row, num(sc.Radiance[b][p]))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteNetCDF serializes the scene as a classic NetCDF instrument product
// with the operational default variable names.
func (sc *Scene) WriteNetCDF(path string) error {
	dims := []string{"y", "x"}
	h := cdf.NewHeader(dims, []int{sc.Rows, sc.Cols})
	h.AddAttribute("", "start_time", sc.Start.Format("2006-01-02T15:04:05.999999Z"))

	for _, name := range []string{"latitude", "longitude", "sun_zenith",
		"sun_azimuth", "view_zenith", "view_azimuth", "zonal_wind",
		"merid_wind", "atm_press", "ozone"} {
		h.AddVariable(name, dims, []float32{0})
	}
	h.AddVariable("detector_index", dims, []int16{0})
	h.AddVariable("l1_flags", dims, []uint8{0})
	for i := range sc.Bands {
		h.AddVariable(fmt.Sprintf("Radiance_%d", i+1), dims, []float32{0})
	}
	h.Define()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	cf, err := cdf.Create(f, h)
	if err != nil {
		return err
	}

	put32 := func(name string, vals []float64) error {
		buf := make([]float32, len(vals))
		for i, v := range vals {
			buf[i] = float32(v)
		}
		// cdf returns io.EOF when a write exactly fills the variable extent.
		if _, err := cf.Writer(name, nil, nil).Write(buf); err != nil && err != io.EOF {
			return err
		}
		return nil
	}
	if err := put32("latitude", sc.Lat); err != nil {
		return err
	}
	if err := put32("longitude", sc.Lon); err != nil {
		return err
	}
	if err := put32("sun_zenith", sc.SunZenith); err != nil {
		return err
	}
	if err := put32("sun_azimuth", sc.SunAzimuth); err != nil {
		return err
	}
	if err := put32("view_zenith", sc.ViewZenith); err != nil {
		return err
	}
	if err := put32("view_azimuth", sc.ViewAzimuth); err != nil {
		return err
	}
	if err := put32("zonal_wind", sc.Zonal); err != nil {
		return err
	}
	if err := put32("merid_wind", sc.Merid); err != nil {
		return err
	}
	if err := put32("atm_press", sc.Pressure); err != nil {
		return err
	}
	if err := put32("ozone", sc.Ozone); err != nil {
		return err
	}

	det := make([]int16, len(sc.Detector))
	for i, d := range sc.Detector {
		det[i] = int16(d)
	}
	if _, err := cf.Writer("detector_index", nil, nil).Write(det); err != nil && err != io.EOF {
		return err
	}
	flags := make([]uint8, len(sc.Flags))
	for i, b := range sc.Flags {
		flags[i] = uint8(b)
	}
	if _, err := cf.Writer("l1_flags", nil, nil).Write(flags); err != nil && err != io.EOF {
		return err
	}
	for i, b := range sc.Bands {
		if err := put32(fmt.Sprintf("Radiance_%d", i+1), sc.Radiance[b]); err != nil {
			return err
		}
	}
	return cdf.UpdateNumRecs(f)
}

// WriteSmileTables writes detector-wavelength and solar-flux tables for a
// smile-corrected sensor into dir, with detector rows cycling a small
// deterministic offset around each band's nominal values.
func WriteSmileTables(dir string, caps domain.Capabilities, detectors int) error {
	wav := func(det, pos int) float64 {
		return float64(caps.Bands[pos]) + 0.3 + 0.02*float64(det)
	}
	flux := func(det, pos int) float64 {
		return 1500 - float64(caps.Bands[pos]) + 0.1*float64(det)
	}
	if err := writeBandTable(filepath.Join(dir, caps.WavelengthFile), "lam_band", len(caps.Bands), detectors, wav); err != nil {
		return err
	}
	return writeBandTable(filepath.Join(dir, caps.SmileFluxFile), "E0_band", len(caps.Bands), detectors, flux)
}

func writeBandTable(path, prefix string, nbands, detectors int, value func(det, pos int) float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Fprint(f, "# detector")
	for i := 0; i < nbands; i++ {
		fmt.Fprintf(f, " %s%d", prefix, i)
	}
	fmt.Fprintln(f)
	for det := 0; det < detectors; det++ {
		fmt.Fprintf(f, "%d", det)
		for i := 0; i < nbands; i++ {
			fmt.Fprintf(f, " %.4f", value(det, i))
		}
		fmt.Fprintln(f)
	}
	return nil
}

// WriteFluxTable writes a nominal band/flux table for a sensor without
// smile correction.
func WriteFluxTable(dir string, caps domain.Capabilities) error {
	f, err := os.Create(filepath.Join(dir, caps.SolarFluxFile))
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Fprintln(f, "band flux")
	for _, b := range caps.Bands {
		fmt.Fprintf(f, "%d %.4f\n", b, 1500-float64(b)*0.4)
	}
	return nil
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
