// Package calib loads and applies per-sensor spectral calibration tables.
//
// Two table families live in the auxiliary data directory. Smile tables map
// a detector index to the true central wavelength (lam_band<i> columns) and
// extraterrestrial solar flux (E0_band<i> columns) of each nominal band;
// they exist only for sensors with a documented detector-wavelength effect.
// Nominal flux tables are plain two-column band/flux files for everything
// else.
//
// Tables are loaded once at source construction and shared read-only across
// all blocks of that source.
package calib

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ctessum/sparse"

	"github.com/couchcryptid/oceancolor-l1/internal/domain"
)

// SmileTable maps (nominal band, detector index) to true wavelength and
// solar flux. Rows are detectors, columns follow the sensor's band list.
type SmileTable struct {
	bandCol    map[int]int // nominal band -> column
	wavelength [][]float64 // [detector][column]
	flux       [][]float64
}

// NewSmileTable builds an in-memory table. wavelength and flux are indexed
// [detector][band position]; both must cover every band for every detector.
func NewSmileTable(bands []int, wavelength, flux [][]float64) (*SmileTable, error) {
	if len(wavelength) != len(flux) {
		return nil, fmt.Errorf("calib: %d wavelength rows but %d flux rows", len(wavelength), len(flux))
	}
	if len(wavelength) == 0 {
		return nil, fmt.Errorf("calib: empty smile table")
	}
	bandCol := make(map[int]int, len(bands))
	for i, b := range bands {
		bandCol[b] = i
	}
	for det := range wavelength {
		if len(wavelength[det]) < len(bands) || len(flux[det]) < len(bands) {
			return nil, fmt.Errorf("calib: detector %d covers fewer columns than %d bands", det, len(bands))
		}
	}
	return &SmileTable{bandCol: bandCol, wavelength: wavelength, flux: flux}, nil
}

// LoadSmile reads a sensor's detector-wavelength and solar-flux tables from
// the auxiliary directory named by the sensor capabilities.
func LoadSmile(dir string, caps domain.Capabilities) (*SmileTable, error) {
	wav, err := loadBandColumns(filepath.Join(dir, caps.WavelengthFile), "lam_band", len(caps.Bands))
	if err != nil {
		return nil, err
	}
	flux, err := loadBandColumns(filepath.Join(dir, caps.SmileFluxFile), "E0_band", len(caps.Bands))
	if err != nil {
		return nil, err
	}
	return NewSmileTable(caps.Bands, wav, flux)
}

// Detectors returns the number of detector rows in the table.
func (t *SmileTable) Detectors() int { return len(t.wavelength) }

// Lookup vector-resolves a block's detector-index array against the table,
// producing wavelength and flux arrays of shape [rows, cols, len(bands)].
// det is row-major with rows*cols entries. Detector indexes outside the
// table (the product sentinel for unilluminated pixels) yield NaN; a band
// the table does not cover is an error.
func (t *SmileTable) Lookup(det []int, size domain.Size, bands []int) (wavelength, flux *sparse.DenseArray, err error) {
	if len(det) != size.Rows*size.Cols {
		return nil, nil, fmt.Errorf("calib: %d detector indexes for %dx%d block", len(det), size.Rows, size.Cols)
	}
	cols := make([]int, len(bands))
	for i, b := range bands {
		c, ok := t.bandCol[b]
		if !ok {
			return nil, nil, fmt.Errorf("calib: band %d not covered by smile table", b)
		}
		cols[i] = c
	}
	wavelength = sparse.ZerosDense(size.Rows, size.Cols, len(bands))
	flux = sparse.ZerosDense(size.Rows, size.Cols, len(bands))
	for p, d := range det {
		base := p * len(bands)
		if d < 0 || d >= len(t.wavelength) {
			for i := range bands {
				wavelength.Elements[base+i] = math.NaN()
				flux.Elements[base+i] = math.NaN()
			}
			continue
		}
		for i, c := range cols {
			wavelength.Elements[base+i] = t.wavelength[d][c]
			flux.Elements[base+i] = t.flux[d][c]
		}
	}
	return wavelength, flux, nil
}

// FluxTable maps a nominal band to its constant extraterrestrial solar
// flux, for sensors without a detector-wavelength effect.
type FluxTable map[int]float64

// LoadFlux reads a two-column band/flux table.
func LoadFlux(path string) (FluxTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("calib: %w", err)
	}
	defer f.Close()

	ft := make(FluxTable)
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(sc.Text()), "#"))
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			return nil, fmt.Errorf("calib: %s:%d: want 2 columns, got %d", path, line, len(fields))
		}
		band, err := strconv.Atoi(fields[0])
		if err != nil {
			if line == 1 {
				continue // header row
			}
			return nil, fmt.Errorf("calib: %s:%d: %w", path, line, err)
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("calib: %s:%d: %w", path, line, err)
		}
		ft[band] = v
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("calib: %s: %w", path, err)
	}
	if len(ft) == 0 {
		return nil, fmt.Errorf("calib: %s: no entries", path)
	}
	return ft, nil
}

// Constant fills a [rows, cols, len(bands)] wavelength array with each
// band's nominal value and a flux array with the table's constants.
func (ft FluxTable) Constant(size domain.Size, bands []int) (wavelength, flux *sparse.DenseArray, err error) {
	f0 := make([]float64, len(bands))
	for i, b := range bands {
		v, ok := ft[b]
		if !ok {
			return nil, nil, fmt.Errorf("calib: band %d not in solar flux table", b)
		}
		f0[i] = v
	}
	wavelength = sparse.ZerosDense(size.Rows, size.Cols, len(bands))
	flux = sparse.ZerosDense(size.Rows, size.Cols, len(bands))
	for p := 0; p < size.Rows*size.Cols; p++ {
		base := p * len(bands)
		for i, b := range bands {
			wavelength.Elements[base+i] = float64(b)
			flux.Elements[base+i] = f0[i]
		}
	}
	return wavelength, flux, nil
}

// loadBandColumns parses a genfromtxt-style table: a header line of
// whitespace-separated column names (optionally behind '#') followed by
// float rows, one per detector. It returns the prefix<i> columns reordered
// to band-list position.
func loadBandColumns(path, prefix string, nbands int) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("calib: %w", err)
	}
	defer f.Close()
	return parseBandColumns(f, path, prefix, nbands)
}

func parseBandColumns(r io.Reader, path, prefix string, nbands int) ([][]float64, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 1024*1024), 1024*1024)

	var names []string
	for sc.Scan() {
		text := strings.TrimPrefix(strings.TrimSpace(sc.Text()), "#")
		if text == "" {
			continue
		}
		names = strings.Fields(text)
		break
	}
	if names == nil {
		return nil, fmt.Errorf("calib: %s: missing header", path)
	}

	// Column positions of prefix0..prefix<nbands-1>, wherever they sit
	// among other columns such as a detector counter.
	colFor := make([]int, nbands)
	for i := range colFor {
		colFor[i] = -1
	}
	for pos, name := range names {
		var i int
		if _, err := fmt.Sscanf(name, prefix+"%d", &i); err == nil && i >= 0 && i < nbands {
			colFor[i] = pos
		}
	}
	for i, pos := range colFor {
		if pos < 0 {
			return nil, fmt.Errorf("calib: %s: missing column %s%d", path, prefix, i)
		}
	}

	var rows [][]float64
	line := 1
	for sc.Scan() {
		line++
		fields := strings.Fields(strings.TrimSpace(sc.Text()))
		if len(fields) == 0 {
			continue
		}
		if len(fields) != len(names) {
			return nil, fmt.Errorf("calib: %s:%d: %d fields, header has %d", path, line, len(fields), len(names))
		}
		row := make([]float64, nbands)
		for i, pos := range colFor {
			v, err := strconv.ParseFloat(fields[pos], 64)
			if err != nil {
				return nil, fmt.Errorf("calib: %s:%d: %w", path, line, err)
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("calib: %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("calib: %s: no detector rows", path)
	}
	return rows, nil
}
