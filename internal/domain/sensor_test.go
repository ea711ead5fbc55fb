package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSensor(t *testing.T) {
	tests := []struct {
		in   string
		want Sensor
	}{
		{"MERIS", SensorMERISRR},
		{"MERIS_RR", SensorMERISRR},
		{"MERIS_FR", SensorMERISFR},
		{"MODIS", SensorMODIS},
		{"SeaWiFS", SensorSeaWiFS},
		{"VIIRS", SensorVIIRS},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			s, err := ParseSensor(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, s)
		})
	}

	t.Run("unknown sensor", func(t *testing.T) {
		_, err := ParseSensor("OLCI")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "OLCI")
	})
}

func TestCapabilities(t *testing.T) {
	t.Run("MERIS has smile correction", func(t *testing.T) {
		caps := SensorMERISRR.Capabilities()
		assert.True(t, caps.SmileCorrection)
		assert.Equal(t, "central_wavelen_rr.txt", caps.WavelengthFile)
		assert.Equal(t, "sun_spectral_flux_rr.txt", caps.SmileFluxFile)
		assert.Len(t, caps.Bands, 15)
		assert.Equal(t, 412, caps.Bands[0])
		assert.Equal(t, 900, caps.Bands[len(caps.Bands)-1])
	})

	t.Run("MERIS_FR uses full-resolution tables", func(t *testing.T) {
		caps := SensorMERISFR.Capabilities()
		assert.True(t, caps.SmileCorrection)
		assert.Equal(t, "central_wavelen_fr.txt", caps.WavelengthFile)
	})

	t.Run("MODIS has no detector effect", func(t *testing.T) {
		caps := SensorMODIS.Capabilities()
		assert.False(t, caps.SmileCorrection)
		assert.Empty(t, caps.WavelengthFile)
		assert.Equal(t, "solar_flux_modis.txt", caps.SolarFluxFile)
		assert.Len(t, caps.Bands, 14)
	})
}

func TestFlags(t *testing.T) {
	f := Flags(0).With(FlagLand).With(FlagInvalid)
	assert.True(t, f.Has(FlagLand))
	assert.True(t, f.Has(FlagInvalid))
	assert.False(t, f.Has(FlagCloudBase))
	assert.Equal(t, "LAND|L1_INVALID", f.String())
	assert.Equal(t, "NONE", Flags(0).String())
}
