package level1

import (
	"path/filepath"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/oceancolor-l1/internal/domain"
	"github.com/couchcryptid/oceancolor-l1/internal/observability"
	"github.com/couchcryptid/oceancolor-l1/internal/synth"
)

// netcdfFixture writes a synthetic MERIS product plus smile tables into a
// temp dir and returns the product path, aux dir, and generating scene.
func netcdfFixture(t *testing.T, rows, cols int) (string, string, *synth.Scene) {
	t.Helper()
	caps := domain.SensorMERISRR.Capabilities()
	sc := synth.NewScene(synth.Options{
		Rows:      rows,
		Cols:      cols,
		Bands:     caps.Bands,
		Seed:      7,
		Detectors: 16,
		LandCols:  2,
		Clock:     clockwork.NewFakeClockAt(fixtureStart),
	})
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.nc")
	require.NoError(t, sc.WriteNetCDF(path))
	require.NoError(t, synth.WriteSmileTables(dir, caps, 16))
	return path, dir, sc
}

func TestOpenNetCDF(t *testing.T) {
	t.Run("reports the product extent", func(t *testing.T) {
		path, aux, _ := netcdfFixture(t, 8, 6)
		src, err := OpenNetCDF(path, NetCDFOptions{
			AuxDir:  aux,
			Metrics: observability.NewMetricsForTesting(),
		})
		require.NoError(t, err)
		defer src.Close()

		h, w := src.Shape()
		assert.Equal(t, 8, h)
		assert.Equal(t, 6, w)
		assert.Equal(t, domain.SensorMERISRR, src.Sensor())
		assert.Len(t, src.Bands(), 15)
	})

	t.Run("exposes the scene start time", func(t *testing.T) {
		path, aux, _ := netcdfFixture(t, 2, 2)
		src, err := OpenNetCDF(path, NetCDFOptions{AuxDir: aux})
		require.NoError(t, err)
		defer src.Close()
		assert.Equal(t, "2011-04-14T10:30:00Z", src.Attributes()["start_time"])
	})

	t.Run("missing variable is a config error", func(t *testing.T) {
		path, aux, _ := netcdfFixture(t, 2, 2)
		_, err := OpenNetCDF(path, NetCDFOptions{
			AuxDir:    aux,
			Variables: HeaderMap{FieldOzone: "no_such_var"},
		})
		var cfgErr *ConfigError
		require.ErrorAs(t, err, &cfgErr)
	})

	t.Run("missing file is an open error", func(t *testing.T) {
		_, err := OpenNetCDF("nope.nc", NetCDFOptions{})
		var openErr *OpenError
		require.ErrorAs(t, err, &openErr)
	})
}

func TestNetCDFReadBlock(t *testing.T) {
	path, aux, sc := netcdfFixture(t, 8, 6)
	src, err := OpenNetCDF(path, NetCDFOptions{
		AuxDir:  aux,
		Metrics: observability.NewMetricsForTesting(),
	})
	require.NoError(t, err)
	defer src.Close()

	t.Run("pixel values match the product", func(t *testing.T) {
		b, err := src.ReadBlock(domain.Size{Rows: 3, Cols: 6}, domain.Offset{Row: 2}, nil)
		require.NoError(t, err)
		require.NoError(t, b.Validate())

		// float32 storage costs some precision
		p := 2 * 6
		assert.InDelta(t, sc.Lat[p], b.Latitude.Get(0, 0), 1e-4)
		assert.InDelta(t, sc.SunZenith[p], b.SolarZenith.Get(0, 0), 1e-4)
		assert.InDelta(t, sc.WindModule(p), b.WindSpeed.Get(0, 0), 1e-4)
		assert.InDelta(t, sc.RelAzimuth(p), b.RelativeAzimuth().Get(0, 0), 1e-4)
		assert.InDelta(t, sc.Radiance[412][p], b.Ltoa.Get(0, 0, 0), 1e-3)
		assert.InDelta(t, sc.Radiance[560][p], b.Ltoa.Get(0, 0, 4), 1e-3)
	})

	t.Run("land bits map to the land flag", func(t *testing.T) {
		b, err := src.ReadBlock(domain.Size{Rows: 8, Cols: 6}, domain.Offset{}, nil)
		require.NoError(t, err)
		// the two rightmost columns are land
		assert.True(t, b.Flag(0, 5).Has(domain.FlagLand))
		assert.True(t, b.Flag(3, 4).Has(domain.FlagLand))
		assert.False(t, b.Flag(0, 0).Has(domain.FlagLand))
	})

	t.Run("negative first band is screened invalid", func(t *testing.T) {
		b, err := src.ReadBlock(domain.Size{Rows: 8, Cols: 6}, domain.Offset{}, nil)
		require.NoError(t, err)
		// synth flips pixel 13: scene (2, 1) at width 6
		assert.True(t, b.Flag(2, 1).Has(domain.FlagInvalid))
		assert.False(t, b.Flag(0, 0).Has(domain.FlagInvalid))
	})

	t.Run("scene date fills the temporal arrays", func(t *testing.T) {
		b, err := src.ReadBlock(domain.Size{Rows: 1, Cols: 6}, domain.Offset{}, nil)
		require.NoError(t, err)
		assert.Equal(t, float64(fixtureStart.YearDay()), b.JulianDay.Get(0, 3))
		assert.Equal(t, 4.0, b.Month.Get(0, 3))
	})

	t.Run("smile lookup follows detector index", func(t *testing.T) {
		b, err := src.ReadBlock(domain.Size{Rows: 2, Cols: 6}, domain.Offset{}, nil)
		require.NoError(t, err)
		det := float64(sc.Detector[1*6+2])
		assert.InDelta(t, 412+0.3+0.02*det, b.Wavelength.Get(1, 2, 0), 1e-4)
		assert.InDelta(t, 1500-412+0.1*det, b.SolarFlux.Get(1, 2, 0), 1e-4)
	})

	t.Run("band subset follows request order", func(t *testing.T) {
		b, err := src.ReadBlock(domain.Size{Rows: 1, Cols: 6}, domain.Offset{}, []int{665, 412})
		require.NoError(t, err)
		assert.Equal(t, []int{665, 412}, b.Bands)
		assert.InDelta(t, sc.Radiance[665][0], b.Ltoa.Get(0, 0, 0), 1e-3)
		assert.InDelta(t, sc.Radiance[412][0], b.Ltoa.Get(0, 0, 1), 1e-3)
	})

	t.Run("out of bounds block is a shape error", func(t *testing.T) {
		_, err := src.ReadBlock(domain.Size{Rows: 9, Cols: 6}, domain.Offset{}, nil)
		var shapeErr *ShapeError
		require.ErrorAs(t, err, &shapeErr)
	})
}

func TestNetCDFWindowedStream(t *testing.T) {
	path, aux, sc := netcdfFixture(t, 10, 4)
	src, err := OpenNetCDF(path, NetCDFOptions{
		AuxDir:    aux,
		BlockSize: 3,
		Window:    Window{StartRow: 2, EndRow: 8, StartCol: 1, EndCol: 3},
	})
	require.NoError(t, err)
	defer src.Close()

	h, w := src.Shape()
	require.Equal(t, 6, h)
	require.Equal(t, 2, w)

	blocks, err := src.Blocks(nil).Collect()
	require.NoError(t, err)
	require.Len(t, blocks, 2)

	// first block pixel (0,0) is product pixel (2,1)
	assert.InDelta(t, sc.Lat[2*4+1], blocks[0].Latitude.Get(0, 0), 1e-4)
	// second block pixel (2,1) is product pixel (7,2)
	assert.InDelta(t, sc.Lon[7*4+2], blocks[1].Longitude.Get(2, 1), 1e-4)

	cur := src.Blocks(nil)
	for i := 0; i < 2; i++ {
		_, err := cur.Next()
		require.NoError(t, err)
	}
	_, err = cur.Next()
	assert.Equal(t, Done, err)
}

func TestOpenAutodetect(t *testing.T) {
	t.Run("netcdf magic opens the product reader", func(t *testing.T) {
		path, aux, _ := netcdfFixture(t, 3, 3)
		src, err := Open(path, OpenOptions{NetCDF: NetCDFOptions{AuxDir: aux}})
		require.NoError(t, err)
		defer src.Close()
		assert.Equal(t, "netcdf", src.Attributes()["format"])
	})

	t.Run("anything else opens the extraction reader", func(t *testing.T) {
		path, aux, _ := asciiFixture(t, 2, 3)
		src, err := Open(path, OpenOptions{ASCII: ASCIIOptions{TileWidth: 3, AuxDir: aux}})
		require.NoError(t, err)
		defer src.Close()
		assert.Equal(t, "ascii", src.Attributes()["format"])
	})

	t.Run("missing file is an open error", func(t *testing.T) {
		_, err := Open("absent", OpenOptions{})
		var openErr *OpenError
		require.ErrorAs(t, err, &openErr)
	})
}
