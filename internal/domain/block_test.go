package domain

import (
	"math"
	"testing"

	"github.com/ctessum/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filled(v float64, dims ...int) *sparse.DenseArray {
	a := sparse.ZerosDense(dims...)
	for i := range a.Elements {
		a.Elements[i] = v
	}
	return a
}

func TestNewBlock(t *testing.T) {
	b := NewBlock(Offset{Row: 4, Col: 0}, Size{Rows: 2, Cols: 3}, []int{443, 560})

	assert.Len(t, b.Bitmask, 6)
	for _, f := range b.Bitmask {
		assert.Equal(t, Flags(0), f)
	}
	require.Equal(t, []int{2, 3, 2}, b.Wavelength.Shape)
	assert.True(t, math.IsNaN(b.Wavelength.Get(0, 0, 0)))
	assert.True(t, math.IsNaN(b.Wavelength.Get(1, 2, 1)))
}

func TestBlock_RelativeAzimuth(t *testing.T) {
	t.Run("derived from sun and view azimuth", func(t *testing.T) {
		b := NewBlock(Offset{}, Size{Rows: 1, Cols: 1}, nil)
		b.SunAzimuth = filled(200, 1, 1)
		b.ViewAzimuth = filled(170, 1, 1)

		raa := b.RelativeAzimuth()
		require.NotNil(t, raa)
		assert.InDelta(t, 30.0, raa.Get(0, 0), 1e-12)
	})

	t.Run("stored value wins", func(t *testing.T) {
		b := NewBlock(Offset{}, Size{Rows: 1, Cols: 1}, nil)
		b.SunAzimuth = filled(200, 1, 1)
		b.ViewAzimuth = filled(170, 1, 1)
		b.SetRelativeAzimuth(filled(42, 1, 1))

		assert.Equal(t, 42.0, b.RelativeAzimuth().Get(0, 0))
	})

	t.Run("memoized", func(t *testing.T) {
		b := NewBlock(Offset{}, Size{Rows: 1, Cols: 1}, nil)
		b.SunAzimuth = filled(10, 1, 1)
		b.ViewAzimuth = filled(4, 1, 1)

		first := b.RelativeAzimuth()
		assert.Same(t, first, b.RelativeAzimuth())
	})

	t.Run("nil without azimuth pair", func(t *testing.T) {
		b := NewBlock(Offset{}, Size{Rows: 1, Cols: 1}, nil)
		assert.Nil(t, b.RelativeAzimuth())
	})
}

func TestBlock_FlagInvalidPixels(t *testing.T) {
	mkBlock := func() *Block {
		b := NewBlock(Offset{}, Size{Rows: 1, Cols: 3}, []int{443, 560})
		b.Latitude = filled(45, 1, 3)
		b.Longitude = filled(5, 1, 3)
		b.SolarZenith = filled(30, 1, 3)
		b.ViewZenith = filled(20, 1, 3)
		b.SetRelativeAzimuth(filled(90, 1, 3))
		b.Ltoa = filled(80, 1, 3, 2)
		return b
	}

	t.Run("clean pixels stay clean", func(t *testing.T) {
		b := mkBlock()
		b.FlagInvalidPixels()
		for _, f := range b.Bitmask {
			assert.False(t, f.Has(FlagInvalid))
		}
	})

	t.Run("NaN geometry flags the pixel", func(t *testing.T) {
		b := mkBlock()
		b.Latitude.Set(math.NaN(), 0, 1)
		b.FlagInvalidPixels()
		assert.False(t, b.Flag(0, 0).Has(FlagInvalid))
		assert.True(t, b.Flag(0, 1).Has(FlagInvalid))
	})

	t.Run("negative first band flags the pixel", func(t *testing.T) {
		b := mkBlock()
		b.Ltoa.Set(-1, 0, 2, 0)
		b.FlagInvalidPixels()
		assert.True(t, b.Flag(0, 2).Has(FlagInvalid))
	})

	t.Run("negative signal in a later band does not flag", func(t *testing.T) {
		b := mkBlock()
		b.Ltoa.Set(-1, 0, 2, 1)
		b.FlagInvalidPixels()
		assert.False(t, b.Flag(0, 2).Has(FlagInvalid))
	})

	t.Run("accumulation is monotone", func(t *testing.T) {
		b := mkBlock()
		b.Latitude.Set(math.NaN(), 0, 0)
		b.FlagInvalidPixels()
		require.True(t, b.Flag(0, 0).Has(FlagInvalid))

		b.OrFlag(0, 0, FlagLand)
		b.FlagInvalidPixels()
		assert.True(t, b.Flag(0, 0).Has(FlagInvalid))
		assert.True(t, b.Flag(0, 0).Has(FlagLand))
	})
}

func TestBlock_Validate(t *testing.T) {
	t.Run("complete block", func(t *testing.T) {
		b := NewBlock(Offset{}, Size{Rows: 2, Cols: 4}, []int{443})
		b.Latitude = filled(1, 2, 4)
		b.Ltoa = filled(1, 2, 4, 1)
		require.NoError(t, b.Validate())
	})

	t.Run("wrong per-pixel shape", func(t *testing.T) {
		b := NewBlock(Offset{}, Size{Rows: 2, Cols: 4}, []int{443})
		b.Latitude = filled(1, 4, 2)
		require.Error(t, b.Validate())
	})

	t.Run("wrong band axis", func(t *testing.T) {
		b := NewBlock(Offset{}, Size{Rows: 2, Cols: 4}, []int{443, 560})
		b.Ltoa = filled(1, 2, 4, 1)
		require.Error(t, b.Validate())
	})

	t.Run("radiance and reflectance are exclusive", func(t *testing.T) {
		b := NewBlock(Offset{}, Size{Rows: 1, Cols: 1}, []int{443})
		b.Ltoa = filled(1, 1, 1, 1)
		b.Rtoa = filled(1, 1, 1, 1)
		require.Error(t, b.Validate())
	})
}
