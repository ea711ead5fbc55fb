package synth

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/oceancolor-l1/internal/calib"
	"github.com/couchcryptid/oceancolor-l1/internal/domain"
)

func testOptions(seed int64) Options {
	return Options{
		Rows:      5,
		Cols:      4,
		Bands:     domain.SensorMERISRR.Capabilities().Bands,
		Seed:      seed,
		Detectors: 8,
		LandCols:  1,
		Clock: clockwork.NewFakeClockAt(
			time.Date(2011, time.April, 14, 10, 30, 0, 0, time.UTC)),
	}
}

func TestNewScene(t *testing.T) {
	t.Run("same seed is reproducible", func(t *testing.T) {
		a := NewScene(testOptions(1))
		b := NewScene(testOptions(1))
		assert.Equal(t, a.Lat, b.Lat)
		assert.Equal(t, a.SunAzimuth, b.SunAzimuth)
		assert.Equal(t, a.Radiance[443], b.Radiance[443])
	})

	t.Run("different seeds differ", func(t *testing.T) {
		a := NewScene(testOptions(1))
		b := NewScene(testOptions(2))
		assert.NotEqual(t, a.Radiance[443], b.Radiance[443])
	})

	t.Run("land columns carry the land bit", func(t *testing.T) {
		sc := NewScene(testOptions(1))
		assert.NotZero(t, sc.Flags[3]&FlagBitLandOcean)  // col 3 of row 0
		assert.Zero(t, sc.Flags[0]&FlagBitLandOcean)
	})

	t.Run("detector indexes stay within the array", func(t *testing.T) {
		sc := NewScene(testOptions(1))
		for _, d := range sc.Detector {
			assert.GreaterOrEqual(t, d, 0)
			assert.Less(t, d, 8)
		}
	})
}

func TestWriteCSV(t *testing.T) {
	sc := NewScene(testOptions(3))
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, sc.WriteCSV(path, ';'))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	r := csv.NewReader(f)
	r.Comma = ';'
	records, err := r.ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 1+5*4)
	assert.Len(t, records[0], 10+15)
	assert.Equal(t, "LAT", records[0][0])
	assert.Equal(t, "TOAR_01", records[0][10])
	assert.Equal(t, "20110414T103000Z", records[1][2])
}

func TestWriteSmileTables(t *testing.T) {
	dir := t.TempDir()
	caps := domain.SensorMERISRR.Capabilities()
	require.NoError(t, WriteSmileTables(dir, caps, 8))

	table, err := calib.LoadSmile(dir, caps)
	require.NoError(t, err)
	assert.Equal(t, 8, table.Detectors())
}

func TestWriteFluxTable(t *testing.T) {
	dir := t.TempDir()
	caps := domain.SensorSeaWiFS.Capabilities()
	require.NoError(t, WriteFluxTable(dir, caps))

	ft, err := calib.LoadFlux(filepath.Join(dir, caps.SolarFluxFile))
	require.NoError(t, err)
	assert.Len(t, ft, len(caps.Bands))
	assert.InDelta(t, 1500-412*0.4, ft[412], 1e-6)
}

func TestWriteNetCDF(t *testing.T) {
	sc := NewScene(testOptions(5))
	path := filepath.Join(t.TempDir(), "out.nc")
	require.NoError(t, sc.WriteNetCDF(path))

	head := make([]byte, 3)
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	_, err = f.Read(head)
	require.NoError(t, err)
	assert.Equal(t, []byte("CDF"), head)
}
