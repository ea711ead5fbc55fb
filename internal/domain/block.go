package domain

import (
	"errors"
	"fmt"
	"math"

	"github.com/ctessum/sparse"
)

// Size is a tile extent in pixels.
type Size struct {
	Rows, Cols int
}

// Offset is a tile origin within the active sub-window, row-major.
type Offset struct {
	Row, Col int
}

// Block is one rectangular tile of Level1 scene data. A source constructs
// it with NewBlock and assigns the per-pixel fields; the Block itself never
// computes anything except the derived relative-azimuth view.
//
// Per-pixel fields have Shape [Rows, Cols]; band-indexed fields have Shape
// [Rows, Cols, len(Bands)] with the band axis ordered like Bands. Exactly
// one of Ltoa (radiance mode) and Rtoa (reflectance mode) is set.
type Block struct {
	Offset Offset
	Size   Size
	Bands  []int // nominal wavelengths, nm, in requested order

	Latitude  *sparse.DenseArray
	Longitude *sparse.DenseArray

	SolarZenith *sparse.DenseArray
	ViewZenith  *sparse.DenseArray
	SunAzimuth  *sparse.DenseArray
	ViewAzimuth *sparse.DenseArray

	Ltoa *sparse.DenseArray // top-of-atmosphere radiance
	Rtoa *sparse.DenseArray // top-of-atmosphere reflectance

	Wavelength *sparse.DenseArray // true per-pixel wavelength, nm
	SolarFlux  *sparse.DenseArray // extraterrestrial solar flux

	WindSpeed       *sparse.DenseArray
	Ozone           *sparse.DenseArray
	SurfacePressure *sparse.DenseArray

	JulianDay *sparse.DenseArray
	Month     *sparse.DenseArray

	Bitmask []Flags // row-major, Rows*Cols

	relAzimuth *sparse.DenseArray
}

// NewBlock returns a Block with a zeroed bitmask and a NaN-filled
// wavelength array; everything else is assigned by the producing source.
func NewBlock(offset Offset, size Size, bands []int) *Block {
	return &Block{
		Offset:     offset,
		Size:       size,
		Bands:      bands,
		Wavelength: NaNArray(size.Rows, size.Cols, len(bands)),
		Bitmask:    make([]Flags, size.Rows*size.Cols),
	}
}

func (b *Block) index(row, col int) int { return row*b.Size.Cols + col }

// Flag returns the bitmask of the pixel at (row, col).
func (b *Block) Flag(row, col int) Flags { return b.Bitmask[b.index(row, col)] }

// OrFlag adds bits to the pixel at (row, col). Bits are never cleared.
func (b *Block) OrFlag(row, col int, f Flags) {
	b.Bitmask[b.index(row, col)] |= f
}

// TOA returns whichever top-of-atmosphere array the source filled.
func (b *Block) TOA() *sparse.DenseArray {
	if b.Ltoa != nil {
		return b.Ltoa
	}
	return b.Rtoa
}

// SetRelativeAzimuth stores a relative-azimuth array provided directly by
// the source, bypassing derivation from the sun/view pair.
func (b *Block) SetRelativeAzimuth(raa *sparse.DenseArray) { b.relAzimuth = raa }

// RelativeAzimuth returns the stored relative azimuth when the source
// provided one, otherwise derives |sun − view| on demand and memoizes it.
// Returns nil when neither form is available.
func (b *Block) RelativeAzimuth() *sparse.DenseArray {
	if b.relAzimuth != nil {
		return b.relAzimuth
	}
	if b.SunAzimuth == nil || b.ViewAzimuth == nil {
		return nil
	}
	b.relAzimuth = relativeAzimuth(b.SunAzimuth, b.ViewAzimuth)
	return b.relAzimuth
}

// FlagInvalidPixels ORs FlagInvalid wherever required geometry (latitude,
// longitude, zenith angles, relative azimuth) is NaN, or the first requested
// band's signal is negative.
//
// Only the first band is checked for negative signal. That mirrors the
// historical screening behavior downstream outputs were validated against;
// whether the remaining bands should be screened too is left to the caller.
func (b *Block) FlagInvalidPixels() {
	raa := b.RelativeAzimuth()
	toa := b.TOA()
	for row := 0; row < b.Size.Rows; row++ {
		for col := 0; col < b.Size.Cols; col++ {
			if b.pixelInvalid(row, col, raa, toa) {
				b.OrFlag(row, col, FlagInvalid)
			}
		}
	}
}

func (b *Block) pixelInvalid(row, col int, raa, toa *sparse.DenseArray) bool {
	for _, a := range []*sparse.DenseArray{b.Latitude, b.Longitude, b.SolarZenith, b.ViewZenith, raa} {
		if a != nil && math.IsNaN(a.Get(row, col)) {
			return true
		}
	}
	if toa != nil && len(b.Bands) > 0 {
		v := toa.Get(row, col, 0)
		if math.IsNaN(v) || v < 0 {
			return true
		}
	}
	return false
}

// Validate checks every assigned array against the declared extent and band
// list. Sources call it before releasing a block; tests use it to assert
// the shape invariant.
func (b *Block) Validate() error {
	if b.Size.Rows <= 0 || b.Size.Cols <= 0 {
		return fmt.Errorf("block %v: non-positive size", b.Offset)
	}
	if b.Ltoa != nil && b.Rtoa != nil {
		return errors.New("block carries both radiance and reflectance")
	}
	if len(b.Bitmask) != b.Size.Rows*b.Size.Cols {
		return fmt.Errorf("bitmask length %d does not match size %dx%d",
			len(b.Bitmask), b.Size.Rows, b.Size.Cols)
	}
	perPixel := map[string]*sparse.DenseArray{
		"latitude":         b.Latitude,
		"longitude":        b.Longitude,
		"solar_zenith":     b.SolarZenith,
		"view_zenith":      b.ViewZenith,
		"sun_azimuth":      b.SunAzimuth,
		"view_azimuth":     b.ViewAzimuth,
		"relative_azimuth": b.relAzimuth,
		"wind_speed":       b.WindSpeed,
		"ozone":            b.Ozone,
		"surface_pressure": b.SurfacePressure,
		"julian_day":       b.JulianDay,
		"month":            b.Month,
	}
	for name, a := range perPixel {
		if err := b.checkShape(name, a, b.Size.Rows, b.Size.Cols); err != nil {
			return err
		}
	}
	banded := map[string]*sparse.DenseArray{
		"ltoa":       b.Ltoa,
		"rtoa":       b.Rtoa,
		"wavelength": b.Wavelength,
		"solar_flux": b.SolarFlux,
	}
	for name, a := range banded {
		if err := b.checkShape(name, a, b.Size.Rows, b.Size.Cols, len(b.Bands)); err != nil {
			return err
		}
	}
	return nil
}

func (b *Block) checkShape(name string, a *sparse.DenseArray, want ...int) error {
	if a == nil {
		return nil
	}
	if len(a.Shape) != len(want) {
		return fmt.Errorf("%s: %d dimensions, want %d", name, len(a.Shape), len(want))
	}
	for i, w := range want {
		if a.Shape[i] != w {
			return fmt.Errorf("%s: shape %v, want %v", name, a.Shape, want)
		}
	}
	return nil
}

// String describes the block for logs.
func (b *Block) String() string {
	return fmt.Sprintf("block (%d,%d)+(%dx%d) %d bands",
		b.Offset.Row, b.Offset.Col, b.Size.Rows, b.Size.Cols, len(b.Bands))
}
