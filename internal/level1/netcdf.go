package level1

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"

	"github.com/couchcryptid/oceancolor-l1/internal/blocking"
	"github.com/couchcryptid/oceancolor-l1/internal/calib"
	"github.com/couchcryptid/oceancolor-l1/internal/domain"
	"github.com/couchcryptid/oceancolor-l1/internal/observability"
)

// Variable names of instrument Level1 products converted to classic
// NetCDF. FieldTOA is a template formatted with the band's 1-based
// position in the sensor's band list.
var netcdfDefaultVariables = HeaderMap{
	FieldLatitude:    "latitude",
	FieldLongitude:   "longitude",
	FieldSolarZenith: "sun_zenith",
	FieldSunAzimuth:  "sun_azimuth",
	FieldViewZenith:  "view_zenith",
	FieldViewAzimuth: "view_azimuth",
	FieldZonalWind:   "zonal_wind",
	FieldMeridWind:   "merid_wind",
	FieldPressure:    "atm_press",
	FieldOzone:       "ozone",
	FieldDetector:    "detector_index",
	FieldFlags:       "l1_flags",
	FieldTOA:         "Radiance_%d",
}

// Product quality flag bits carried in the l1_flags variable.
const (
	l1FlagCosmetic  = 1 << 0
	l1FlagSuspect   = 1 << 3
	l1FlagLandOcean = 1 << 4
	l1FlagInvalid   = 1 << 7
)

// Accepted layouts for the product start-time attribute: ISO with
// microseconds, plain ISO, and the product header convention.
var netcdfTimeLayouts = []string{
	"2006-01-02T15:04:05.999999Z",
	"2006-01-02T15:04:05Z",
	"02-Jan-2006 15:04:05.000000",
}

// NetCDFOptions configures an instrument product source.
type NetCDFOptions struct {
	// Sensor identifier; defaults to "MERIS".
	Sensor string

	// Bands restricts the source to a subset of the sensor's nominal
	// bands. Nil serves the full band list.
	Bands []int

	// BlockSize is the number of scene rows per streamed block. Defaults
	// to 100.
	BlockSize int

	Window Window

	// Variables overrides the default variable names per logical field.
	Variables HeaderMap

	Radiometry Radiometry
	Azimuth    AzimuthMode // AzimuthDefault resolves to AzimuthPair
	Wind       WindMode    // WindDefault resolves to WindComponents

	// TimeAttr names the global attribute carrying the scene start time.
	// Defaults to "start_time".
	TimeAttr string

	// AuxDir holds the sensor's calibration tables.
	AuxDir string

	Logger  *slog.Logger
	Metrics *observability.Metrics
}

func (o *NetCDFOptions) normalize() {
	if o.Sensor == "" {
		o.Sensor = "MERIS"
	}
	if o.BlockSize == 0 {
		o.BlockSize = defaultBlockSize
	}
	if o.Azimuth == AzimuthDefault {
		o.Azimuth = AzimuthPair
	}
	if o.Wind == WindDefault {
		o.Wind = WindComponents
	}
	if o.TimeAttr == "" {
		o.TimeAttr = "start_time"
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// netcdfSource reads blocks on demand from a classic NetCDF instrument
// product. Nothing but the header is held in memory; every ReadBlock
// seeks and decodes just the rows it needs.
type netcdfSource struct {
	path string
	f    *os.File
	cf   *cdf.File

	sensor domain.Sensor
	bands  []int

	radiometry Radiometry
	azimuth    AzimuthMode
	wind       WindMode

	fullRows, fullCols int
	origin             domain.Offset
	size               domain.Size
	plan               blocking.Plan

	vars     HeaderMap         // resolved field -> variable name
	toaNames map[int]string    // nominal band -> variable name
	jday     float64           // scene acquisition day of year
	month    float64
	attrs    map[string]string

	smile *calib.SmileTable
	flux  calib.FluxTable

	log     *slog.Logger
	metrics *observability.Metrics
	closed  bool
}

// OpenNetCDF opens a classic NetCDF instrument product as a Source.
func OpenNetCDF(path string, opts NetCDFOptions) (Source, error) {
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
	vars := opts.Variables.merged(netcdfDefaultVariables)

	f, err := os.Open(path)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}
	cf, err := cdf.Open(f)
	if err != nil {
		f.Close()
		return nil, &OpenError{Path: path, Err: err}
	}

	s := &netcdfSource{
		path:       path,
		f:          f,
		cf:         cf,
		sensor:     sensor,
		bands:      bands,
		radiometry: opts.Radiometry,
		azimuth:    opts.Azimuth,
		wind:       opts.Wind,
		vars:       vars,
		toaNames:   make(map[int]string, len(bands)),
		log:        opts.Logger,
		metrics:    opts.Metrics,
	}
	if err := s.init(opts, caps); err != nil {
		f.Close()
		return nil, err
	}

	s.metrics.SourceOpened()
	s.log.Info("opened netcdf source",
		"path", path,
		"sensor", caps.Name,
		"rows", s.size.Rows,
		"width", s.size.Cols,
		"bands", len(bands),
		"blocks", s.plan.NumTiles(),
	)
	return s, nil
}

func (s *netcdfSource) init(opts NetCDFOptions, caps domain.Capabilities) error {
	// The latitude variable defines the scene extent; every other mapped
	// per-pixel variable must agree with it.
	latName, err := s.vars.name(FieldLatitude)
	if err != nil {
		return err
	}
	dims := s.cf.Header.Lengths(latName)
	if len(dims) == 0 {
		return &ConfigError{Reason: fmt.Sprintf("variable %q not in product", latName)}
	}
	if len(dims) != 2 {
		return &ShapeError{Reason: fmt.Sprintf("variable %q has %d dimensions, want 2", latName, len(dims))}
	}
	s.fullRows, s.fullCols = dims[0], dims[1]

	required := []Field{FieldLongitude, FieldSolarZenith, FieldViewZenith,
		FieldOzone, FieldPressure, FieldFlags}
	switch s.azimuth {
	case AzimuthRelative:
		required = append(required, FieldRelAzimuth)
	default:
		required = append(required, FieldSunAzimuth, FieldViewAzimuth)
	}
	switch s.wind {
	case WindModule:
		required = append(required, FieldWindModule)
	default:
		required = append(required, FieldZonalWind, FieldMeridWind)
	}
	if caps.SmileCorrection {
		required = append(required, FieldDetector)
	}
	for _, field := range required {
		name, err := s.vars.name(field)
		if err != nil {
			return err
		}
		if err := s.checkExtent(name); err != nil {
			return err
		}
	}

	toaTemplate, err := s.vars.name(FieldTOA)
	if err != nil {
		return err
	}
	for _, b := range s.bands {
		pos := bandPosition(caps.Bands, b)
		if pos < 0 {
			return &ConfigError{Reason: fmt.Sprintf("band %d not in %s band list", b, caps.Name)}
		}
		name := fmt.Sprintf(toaTemplate, pos+1)
		if err := s.checkExtent(name); err != nil {
			return err
		}
		s.toaNames[b] = name
	}

	var size domain.Size
	s.origin, size, err = opts.Window.resolve(s.fullRows, s.fullCols)
	if err != nil {
		return err
	}
	s.size = size
	s.plan, err = blocking.NewPlan(size.Rows, size.Cols, opts.BlockSize)
	if err != nil {
		return &ConfigError{Reason: "partitioning sub-window", Err: err}
	}

	start, err := s.startTime(opts.TimeAttr)
	if err != nil {
		return err
	}
	s.jday = float64(domain.DayOfYear(start))
	s.month = float64(domain.MonthOf(start))
	s.attrs = map[string]string{
		"path":       s.path,
		"format":     "netcdf",
		"sensor":     caps.Name,
		"rows":       strconv.Itoa(s.fullRows),
		"width":      strconv.Itoa(s.fullCols),
		"start_time": start.UTC().Format(time.RFC3339),
	}

	if caps.SmileCorrection {
		s.smile, err = calib.LoadSmile(opts.AuxDir, caps)
		if err != nil {
			return &ConfigError{Reason: "loading smile tables", Err: err}
		}
	} else {
		s.flux, err = calib.LoadFlux(filepath.Join(opts.AuxDir, caps.SolarFluxFile))
		if err != nil {
			return &ConfigError{Reason: "loading solar flux table", Err: err}
		}
	}
	return nil
}

func (s *netcdfSource) checkExtent(name string) error {
	dims := s.cf.Header.Lengths(name)
	if len(dims) == 0 {
		return &ConfigError{Reason: fmt.Sprintf("variable %q not in product", name)}
	}
	if len(dims) != 2 || dims[0] != s.fullRows || dims[1] != s.fullCols {
		return &ShapeError{Reason: fmt.Sprintf(
			"variable %q has shape %v, want [%d %d]", name, dims, s.fullRows, s.fullCols)}
	}
	return nil
}

func (s *netcdfSource) startTime(attr string) (time.Time, error) {
	v := s.cf.Header.GetAttribute("", attr)
	str, ok := v.(string)
	if !ok || str == "" {
		return time.Time{}, &ConfigError{Reason: fmt.Sprintf("product has no %q attribute", attr)}
	}
	for _, layout := range netcdfTimeLayouts {
		if t, err := time.Parse(layout, str); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &ConfigError{Reason: fmt.Sprintf("unparseable %s attribute %q", attr, str)}
}

func (s *netcdfSource) Sensor() domain.Sensor { return s.sensor }

func (s *netcdfSource) Shape() (height, width int) { return s.size.Rows, s.size.Cols }

func (s *netcdfSource) Bands() []int { return s.bands }

func (s *netcdfSource) Attributes() map[string]string { return s.attrs }

func (s *netcdfSource) Blocks(bands []int) *Cursor {
	return newCursor(s, s.plan, bands)
}

func (s *netcdfSource) ReadBlock(size domain.Size, offset domain.Offset, bands []int) (*domain.Block, error) {
	start := time.Now()
	b, err := s.readBlock(size, offset, bands)
	if err != nil {
		s.metrics.ObserveReadError("netcdf")
		return nil, err
	}
	s.metrics.ObserveBlock("netcdf", size.Rows*size.Cols, time.Since(start))
	observeFlags(s.metrics, b)
	return b, nil
}

func (s *netcdfSource) readBlock(size domain.Size, offset domain.Offset, bands []int) (*domain.Block, error) {
	if err := checkBlockBounds(size, offset, s.size.Rows, s.size.Cols); err != nil {
		return nil, err
	}
	if bands == nil {
		bands = s.bands
	}

	b := domain.NewBlock(offset, size, bands)

	var err error
	assign := func(dst **sparse.DenseArray, field Field) {
		if err != nil {
			return
		}
		var a *sparse.DenseArray
		a, err = s.readField(field, size, offset)
		if err == nil {
			*dst = a
		}
	}
	assign(&b.Latitude, FieldLatitude)
	assign(&b.Longitude, FieldLongitude)
	assign(&b.SolarZenith, FieldSolarZenith)
	assign(&b.ViewZenith, FieldViewZenith)
	assign(&b.Ozone, FieldOzone)
	assign(&b.SurfacePressure, FieldPressure)

	switch s.azimuth {
	case AzimuthRelative:
		var raa *sparse.DenseArray
		assign(&raa, FieldRelAzimuth)
		b.SetRelativeAzimuth(raa)
	default:
		assign(&b.SunAzimuth, FieldSunAzimuth)
		assign(&b.ViewAzimuth, FieldViewAzimuth)
	}
	switch s.wind {
	case WindModule:
		assign(&b.WindSpeed, FieldWindModule)
	default:
		var zonal, merid *sparse.DenseArray
		assign(&zonal, FieldZonalWind)
		assign(&merid, FieldMeridWind)
		if err == nil {
			b.WindSpeed = domain.WindSpeedFromComponents(zonal, merid)
		}
	}
	if err != nil {
		return nil, err
	}

	b.JulianDay = domain.ConstArray(size, s.jday)
	b.Month = domain.ConstArray(size, s.month)

	toa := sparse.ZerosDense(size.Rows, size.Cols, len(bands))
	for i, band := range bands {
		name, ok := s.toaNames[band]
		if !ok {
			return nil, &ConfigError{Reason: fmt.Sprintf("band %d not configured for this source", band)}
		}
		vals, err := s.readWindow(name, size, offset)
		if err != nil {
			return nil, &ReadError{Field: name, Offset: offset, Err: err}
		}
		for p, v := range vals {
			toa.Elements[p*len(bands)+i] = v
		}
	}
	if s.radiometry == Reflectance {
		b.Rtoa = toa
	} else {
		b.Ltoa = toa
	}

	if err := s.applyFlags(b, size, offset); err != nil {
		return nil, err
	}

	if s.smile != nil {
		detName, nameErr := s.vars.name(FieldDetector)
		if nameErr != nil {
			return nil, nameErr
		}
		vals, err := s.readWindow(detName, size, offset)
		if err != nil {
			return nil, &ReadError{Field: detName, Offset: offset, Err: err}
		}
		det := make([]int, len(vals))
		for p, v := range vals {
			det[p] = int(v)
		}
		b.Wavelength, b.SolarFlux, err = s.smile.Lookup(det, size, bands)
		if err != nil {
			return nil, &ReadError{Field: "calibration", Offset: offset, Err: err}
		}
	} else {
		var calErr error
		b.Wavelength, b.SolarFlux, calErr = s.flux.Constant(size, bands)
		if calErr != nil {
			return nil, &ReadError{Field: "calibration", Offset: offset, Err: calErr}
		}
	}

	b.FlagInvalidPixels()
	if err := b.Validate(); err != nil {
		return nil, &ReadError{Field: "block", Offset: offset, Err: err}
	}
	return b, nil
}

// applyFlags translates product quality bits into the portable bitmask.
func (s *netcdfSource) applyFlags(b *domain.Block, size domain.Size, offset domain.Offset) error {
	name, err := s.vars.name(FieldFlags)
	if err != nil {
		return err
	}
	vals, err := s.readWindow(name, size, offset)
	if err != nil {
		return &ReadError{Field: name, Offset: offset, Err: err}
	}
	for p, v := range vals {
		bits := int(v)
		var f domain.Flags
		if bits&l1FlagLandOcean != 0 {
			f |= domain.FlagLand
		}
		if bits&(l1FlagInvalid|l1FlagSuspect|l1FlagCosmetic) != 0 {
			f |= domain.FlagInvalid
		}
		b.Bitmask[p] |= f
	}
	return nil
}

// readField reads one mapped per-pixel variable into a (rows, cols) array.
func (s *netcdfSource) readField(field Field, size domain.Size, offset domain.Offset) (*sparse.DenseArray, error) {
	name, err := s.vars.name(field)
	if err != nil {
		return nil, err
	}
	vals, err := s.readWindow(name, size, offset)
	if err != nil {
		return nil, &ReadError{Field: name, Offset: offset, Err: err}
	}
	out := sparse.ZerosDense(size.Rows, size.Cols)
	copy(out.Elements, vals)
	return out, nil
}

// readWindow reads the block's sub-rectangle of one variable: the covered
// full-width row range in one call, then the active column span sliced
// out, row-major.
func (s *netcdfSource) readWindow(name string, size domain.Size, offset domain.Offset) ([]float64, error) {
	r0 := s.origin.Row + offset.Row
	r1 := r0 + size.Rows
	c0 := s.origin.Col + offset.Col

	r := s.cf.Reader(name, []int{r0, 0}, []int{r1, 0})
	buf := r.Zero(size.Rows * s.fullCols)
	if _, err := r.Read(buf); err != nil {
		return nil, err
	}
	rows, err := toFloat64(buf)
	if err != nil {
		return nil, fmt.Errorf("variable %s: %w", name, err)
	}

	out := make([]float64, 0, size.Rows*size.Cols)
	for row := 0; row < size.Rows; row++ {
		base := row*s.fullCols + c0
		out = append(out, rows[base:base+size.Cols]...)
	}
	return out, nil
}

// toFloat64 widens any classic NetCDF numeric buffer.
func toFloat64(buf interface{}) ([]float64, error) {
	switch v := buf.(type) {
	case []float64:
		return v, nil
	case []float32:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, nil
	case []int32:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, nil
	case []int16:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, nil
	case []int8:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(uint8(x))
		}
		return out, nil
	case []uint8:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported variable type %T", buf)
	}
}

func (s *netcdfSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.metrics.SourceClosed()
	s.log.Info("closed netcdf source", "path", s.path)
	return s.f.Close()
}
