package level1

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ctessum/sparse"

	"github.com/couchcryptid/oceancolor-l1/internal/blocking"
	"github.com/couchcryptid/oceancolor-l1/internal/calib"
	"github.com/couchcryptid/oceancolor-l1/internal/domain"
	"github.com/couchcryptid/oceancolor-l1/internal/observability"
)

// Column names of operational matchup extraction exports. FieldTOA is a
// template formatted with the band's 1-based position in the sensor's
// band list.
var asciiDefaultHeaders = HeaderMap{
	FieldLatitude:    "LAT",
	FieldLongitude:   "LON",
	FieldDatetime:    "TIME",
	FieldDetector:    "DETECTOR",
	FieldOzone:       "OZONE_ECMWF",
	FieldWindModule:  "WINDM",
	FieldPressure:    "PRESS_ECMWF",
	FieldSolarZenith: "SUN_ZENITH",
	FieldViewZenith:  "VIEW_ZENITH",
	FieldRelAzimuth:  "DELTA_AZIMUTH",
	FieldTOA:         "TOAR_%02d",
}

const asciiDefaultTimeLayout = "20060102T150405Z"

// ASCIIOptions configures a column-oriented text extraction source.
type ASCIIOptions struct {
	// Sensor identifier; defaults to "MERIS".
	Sensor string

	// Bands restricts the source to a subset of the sensor's nominal
	// bands. Nil serves the full band list.
	Bands []int

	// TileWidth is the number of consecutive rows of the file forming one
	// scene row. Defaults to 1 (each file row is its own scene row).
	TileWidth int

	// BlockSize is the number of scene rows per streamed block. Defaults
	// to 100.
	BlockSize int

	Window    Window
	Separator rune // defaults to ';'

	// Headers overrides the default column names per logical field.
	Headers HeaderMap

	// ExtraColumns are additional numeric columns to parse and expose via
	// Extra alongside the standard fields.
	ExtraColumns []string

	Radiometry Radiometry
	Azimuth    AzimuthMode // AzimuthDefault resolves to AzimuthRelative
	Wind       WindMode    // WindDefault resolves to WindModule

	// TimeLayout parses the datetime column. Defaults to
	// "20060102T150405Z".
	TimeLayout string

	// AuxDir holds the sensor's calibration tables.
	AuxDir string

	Logger  *slog.Logger
	Metrics *observability.Metrics
}

func (o *ASCIIOptions) normalize() {
	if o.Sensor == "" {
		o.Sensor = "MERIS"
	}
	if o.TileWidth == 0 {
		o.TileWidth = 1
	}
	if o.BlockSize == 0 {
		o.BlockSize = defaultBlockSize
	}
	if o.Separator == 0 {
		o.Separator = ';'
	}
	if o.Azimuth == AzimuthDefault {
		o.Azimuth = AzimuthRelative
	}
	if o.Wind == WindDefault {
		o.Wind = WindModule
	}
	if o.TimeLayout == "" {
		o.TimeLayout = asciiDefaultTimeLayout
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// asciiSource serves blocks from a fully parsed in-memory extraction.
// Extractions are small (thousands of pixels), so everything is decoded
// once at construction and ReadBlock only slices.
type asciiSource struct {
	path   string
	sensor domain.Sensor
	bands  []int

	radiometry Radiometry
	azimuth    AzimuthMode
	wind       WindMode

	origin    domain.Offset // sub-window origin in the full scene
	size      domain.Size   // sub-window extent
	tileWidth int
	plan      blocking.Plan

	// Full-scene columns, row-major with tileWidth pixels per scene row.
	fields   map[Field][]float64
	toa      map[int][]float64 // nominal band -> column
	detector []int
	jday     []float64
	month    []float64
	extras   map[string][]float64

	smile *calib.SmileTable
	flux  calib.FluxTable

	attrs   map[string]string
	log     *slog.Logger
	metrics *observability.Metrics
	closed  bool
}

// OpenASCII parses a column-oriented text extraction and returns it as a
// Source. The whole file is decoded eagerly; errors in structure or
// configuration surface here, never from ReadBlock.
func OpenASCII(path string, opts ASCIIOptions) (Source, error) {
	opts.normalize()

	sensor, err := domain.ParseSensor(opts.Sensor)
	if err != nil {
		return nil, &ConfigError{Reason: "resolving sensor", Err: err}
	}
	caps := sensor.Capabilities()

	bands := opts.Bands
	if bands == nil {
		bands = caps.Bands
	}

	headers := opts.Headers.merged(asciiDefaultHeaders)

	f, err := os.Open(path)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = opts.Separator
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}
	if len(records) < 2 {
		return nil, &OpenError{Path: path, Err: fmt.Errorf("no data rows")}
	}
	header, rows := records[0], records[1:]

	colIndex := make(map[string]int, len(header))
	for i, name := range header {
		colIndex[name] = i
	}
	column := func(field Field) (int, error) {
		name, err := headers.name(field)
		if err != nil {
			return 0, err
		}
		i, ok := colIndex[name]
		if !ok {
			return 0, &ConfigError{Reason: fmt.Sprintf("column %q (%s) not in file header", name, field)}
		}
		return i, nil
	}

	npix := len(rows)
	if npix%opts.TileWidth != 0 {
		return nil, &ShapeError{Reason: fmt.Sprintf(
			"%d pixels do not tile into rows of width %d", npix, opts.TileWidth)}
	}
	sceneRows := npix / opts.TileWidth

	origin, size, err := opts.Window.resolve(sceneRows, opts.TileWidth)
	if err != nil {
		return nil, err
	}
	plan, err := blocking.NewPlan(size.Rows, size.Cols, opts.BlockSize)
	if err != nil {
		return nil, &ConfigError{Reason: "partitioning sub-window", Err: err}
	}

	s := &asciiSource{
		path:       path,
		sensor:     sensor,
		bands:      bands,
		radiometry: opts.Radiometry,
		azimuth:    opts.Azimuth,
		wind:       opts.Wind,
		origin:     origin,
		size:       size,
		tileWidth:  opts.TileWidth,
		plan:       plan,
		fields:     make(map[Field][]float64),
		toa:        make(map[int][]float64, len(bands)),
		extras:     make(map[string][]float64, len(opts.ExtraColumns)),
		attrs: map[string]string{
			"path":   path,
			"format": "ascii",
			"sensor": caps.Name,
			"rows":   strconv.Itoa(sceneRows),
			"width":  strconv.Itoa(opts.TileWidth),
		},
		log:     opts.Logger,
		metrics: opts.Metrics,
	}

	// Scalar fields required by the configured modes.
	wanted := []Field{FieldLatitude, FieldLongitude, FieldOzone, FieldPressure,
		FieldSolarZenith, FieldViewZenith}
	switch opts.Azimuth {
	case AzimuthRelative:
		wanted = append(wanted, FieldRelAzimuth)
	case AzimuthPair:
		wanted = append(wanted, FieldSunAzimuth, FieldViewAzimuth)
	}
	switch opts.Wind {
	case WindModule:
		wanted = append(wanted, FieldWindModule)
	case WindComponents:
		wanted = append(wanted, FieldZonalWind, FieldMeridWind)
	}
	for _, field := range wanted {
		ci, err := column(field)
		if err != nil {
			return nil, err
		}
		s.fields[field] = numericColumn(rows, ci)
	}

	// TOA columns, one per requested band, named by the band's 1-based
	// position in the sensor's band list.
	toaTemplate, err := headers.name(FieldTOA)
	if err != nil {
		return nil, err
	}
	for _, b := range bands {
		pos := bandPosition(caps.Bands, b)
		if pos < 0 {
			return nil, &ConfigError{Reason: fmt.Sprintf("band %d not in %s band list", b, caps.Name)}
		}
		name := fmt.Sprintf(toaTemplate, pos+1)
		ci, ok := colIndex[name]
		if !ok {
			return nil, &ConfigError{Reason: fmt.Sprintf("column %q (band %d) not in file header", name, b)}
		}
		s.toa[b] = numericColumn(rows, ci)
	}

	// Per-pixel acquisition time.
	timeCol, err := column(FieldDatetime)
	if err != nil {
		return nil, err
	}
	s.jday = make([]float64, npix)
	s.month = make([]float64, npix)
	for p, row := range rows {
		t, err := time.Parse(opts.TimeLayout, row[timeCol])
		if err != nil {
			return nil, &OpenError{Path: path, Err: fmt.Errorf("row %d: parsing %s: %w", p+2, FieldDatetime, err)}
		}
		s.jday[p] = float64(domain.DayOfYear(t))
		s.month[p] = float64(domain.MonthOf(t))
	}

	// Calibration: smile tables for detector-wavelength sensors, nominal
	// flux constants otherwise.
	if caps.SmileCorrection {
		detCol, err := column(FieldDetector)
		if err != nil {
			return nil, err
		}
		s.detector = make([]int, npix)
		for p, row := range rows {
			d, err := strconv.Atoi(row[detCol])
			if err != nil {
				d = -1 // unilluminated sentinel, resolves to NaN
			}
			s.detector[p] = d
		}
		s.smile, err = calib.LoadSmile(opts.AuxDir, caps)
		if err != nil {
			return nil, &ConfigError{Reason: "loading smile tables", Err: err}
		}
	} else {
		s.flux, err = calib.LoadFlux(filepath.Join(opts.AuxDir, caps.SolarFluxFile))
		if err != nil {
			return nil, &ConfigError{Reason: "loading solar flux table", Err: err}
		}
	}

	for _, name := range opts.ExtraColumns {
		ci, ok := colIndex[name]
		if !ok {
			return nil, &ConfigError{Reason: fmt.Sprintf("extra column %q not in file header", name)}
		}
		s.extras[name] = numericColumn(rows, ci)
	}

	s.metrics.SourceOpened()
	s.log.Info("opened ascii source",
		"path", path,
		"sensor", caps.Name,
		"rows", size.Rows,
		"width", size.Cols,
		"bands", len(bands),
		"blocks", plan.NumTiles(),
	)
	return s, nil
}

func (s *asciiSource) Sensor() domain.Sensor { return s.sensor }

func (s *asciiSource) Shape() (height, width int) { return s.size.Rows, s.size.Cols }

func (s *asciiSource) Bands() []int { return s.bands }

func (s *asciiSource) Attributes() map[string]string { return s.attrs }

func (s *asciiSource) Blocks(bands []int) *Cursor {
	return newCursor(s, s.plan, bands)
}

// Extra returns the full-scene values of a configured extra column.
func (s *asciiSource) Extra(name string) ([]float64, bool) {
	v, ok := s.extras[name]
	return v, ok
}

func (s *asciiSource) ReadBlock(size domain.Size, offset domain.Offset, bands []int) (*domain.Block, error) {
	start := time.Now()
	b, err := s.readBlock(size, offset, bands)
	if err != nil {
		s.metrics.ObserveReadError("ascii")
		return nil, err
	}
	s.metrics.ObserveBlock("ascii", size.Rows*size.Cols, time.Since(start))
	observeFlags(s.metrics, b)
	return b, nil
}

func (s *asciiSource) readBlock(size domain.Size, offset domain.Offset, bands []int) (*domain.Block, error) {
	if err := checkBlockBounds(size, offset, s.size.Rows, s.size.Cols); err != nil {
		return nil, err
	}
	if bands == nil {
		bands = s.bands
	}

	b := domain.NewBlock(offset, size, bands)
	b.Latitude = s.gather(s.fields[FieldLatitude], size, offset)
	b.Longitude = s.gather(s.fields[FieldLongitude], size, offset)
	b.SolarZenith = s.gather(s.fields[FieldSolarZenith], size, offset)
	b.ViewZenith = s.gather(s.fields[FieldViewZenith], size, offset)
	b.Ozone = s.gather(s.fields[FieldOzone], size, offset)
	b.SurfacePressure = s.gather(s.fields[FieldPressure], size, offset)
	b.JulianDay = s.gather(s.jday, size, offset)
	b.Month = s.gather(s.month, size, offset)

	switch s.azimuth {
	case AzimuthPair:
		b.SunAzimuth = s.gather(s.fields[FieldSunAzimuth], size, offset)
		b.ViewAzimuth = s.gather(s.fields[FieldViewAzimuth], size, offset)
	default:
		b.SetRelativeAzimuth(s.gather(s.fields[FieldRelAzimuth], size, offset))
	}
	switch s.wind {
	case WindComponents:
		b.WindSpeed = domain.WindSpeedFromComponents(
			s.gather(s.fields[FieldZonalWind], size, offset),
			s.gather(s.fields[FieldMeridWind], size, offset))
	default:
		b.WindSpeed = s.gather(s.fields[FieldWindModule], size, offset)
	}

	toa := sparse.ZerosDense(size.Rows, size.Cols, len(bands))
	for i, band := range bands {
		col, ok := s.toa[band]
		if !ok {
			return nil, &ConfigError{Reason: fmt.Sprintf("band %d not configured for this source", band)}
		}
		for r := 0; r < size.Rows; r++ {
			for c := 0; c < size.Cols; c++ {
				toa.Set(col[s.pixel(r, c, offset)], r, c, i)
			}
		}
	}
	if s.radiometry == Reflectance {
		b.Rtoa = toa
	} else {
		b.Ltoa = toa
	}

	var err error
	if s.smile != nil {
		det := make([]int, 0, size.Rows*size.Cols)
		for r := 0; r < size.Rows; r++ {
			for c := 0; c < size.Cols; c++ {
				det = append(det, s.detector[s.pixel(r, c, offset)])
			}
		}
		b.Wavelength, b.SolarFlux, err = s.smile.Lookup(det, size, bands)
	} else {
		b.Wavelength, b.SolarFlux, err = s.flux.Constant(size, bands)
	}
	if err != nil {
		return nil, &ReadError{Field: "calibration", Offset: offset, Err: err}
	}

	b.FlagInvalidPixels()
	if err := b.Validate(); err != nil {
		return nil, &ReadError{Field: "block", Offset: offset, Err: err}
	}
	return b, nil
}

// pixel maps a block-local (row, col) to the flat full-scene pixel index.
func (s *asciiSource) pixel(row, col int, offset domain.Offset) int {
	return (s.origin.Row+offset.Row+row)*s.tileWidth + s.origin.Col + offset.Col + col
}

// gather slices a full-scene column into a (rows, cols) block array.
func (s *asciiSource) gather(col []float64, size domain.Size, offset domain.Offset) *sparse.DenseArray {
	out := sparse.ZerosDense(size.Rows, size.Cols)
	i := 0
	for r := 0; r < size.Rows; r++ {
		for c := 0; c < size.Cols; c++ {
			out.Elements[i] = col[s.pixel(r, c, offset)]
			i++
		}
	}
	return out
}

func (s *asciiSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.metrics.SourceClosed()
	s.log.Info("closed ascii source", "path", s.path)
	return nil
}

// numericColumn parses one csv column to float64, mapping unparseable
// cells (fill markers, empty strings) to NaN.
func numericColumn(rows [][]string, col int) []float64 {
	out := make([]float64, len(rows))
	for p, row := range rows {
		v, err := strconv.ParseFloat(row[col], 64)
		if err != nil {
			v = math.NaN()
		}
		out[p] = v
	}
	return out
}

func bandPosition(bands []int, b int) int {
	for i, v := range bands {
		if v == b {
			return i
		}
	}
	return -1
}

// observeFlags counts flagged pixels of a produced block into metrics.
func observeFlags(m *observability.Metrics, b *domain.Block) {
	if m == nil {
		return
	}
	var land, invalid int
	for _, f := range b.Bitmask {
		if f.Has(domain.FlagLand) {
			land++
		}
		if f.Has(domain.FlagInvalid) {
			invalid++
		}
	}
	m.ObserveFlagged("land", land)
	m.ObserveFlagged("invalid", invalid)
}
