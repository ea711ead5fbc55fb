package level1

import (
	"fmt"

	"github.com/couchcryptid/oceancolor-l1/internal/domain"
)

// Radiometry selects which top-of-atmosphere quantity a source produces.
// The modes are mutually exclusive: a block carries Ltoa or Rtoa, never
// both.
type Radiometry uint8

const (
	Radiance Radiometry = iota
	Reflectance
)

func (r Radiometry) String() string {
	switch r {
	case Radiance:
		return "radiance"
	case Reflectance:
		return "reflectance"
	default:
		return fmt.Sprintf("radiometry(%d)", uint8(r))
	}
}

// AzimuthMode selects how a source obtains the relative azimuth: a single
// relative-azimuth field, or a sun/view azimuth pair the block derives
// from. AzimuthDefault resolves to each variant's native convention
// (extractions store a relative column, instrument products a pair).
type AzimuthMode uint8

const (
	AzimuthDefault AzimuthMode = iota
	AzimuthRelative
	AzimuthPair
)

// WindMode selects how a source obtains wind speed: a wind-module field,
// or zonal/meridional components combined as sqrt(u²+v²). WindDefault
// resolves to each variant's native convention.
type WindMode uint8

const (
	WindDefault WindMode = iota
	WindModule
	WindComponents
)

// Field names a logical per-pixel quantity a source must locate in its
// container. The mapping from Field to column or variable name is resolved
// once at construction; the per-block hot path only ever sees resolved
// indexes.
type Field uint8

const (
	FieldLatitude Field = iota
	FieldLongitude
	FieldDatetime
	FieldOzone
	FieldPressure
	FieldSolarZenith
	FieldViewZenith
	FieldRelAzimuth
	FieldSunAzimuth
	FieldViewAzimuth
	FieldWindModule
	FieldZonalWind
	FieldMeridWind
	FieldDetector
	FieldFlags
	FieldTOA // template: formatted with the band's 1-based position
)

var fieldNames = map[Field]string{
	FieldLatitude:    "latitude",
	FieldLongitude:   "longitude",
	FieldDatetime:    "datetime",
	FieldOzone:       "ozone",
	FieldPressure:    "surface_pressure",
	FieldSolarZenith: "solar_zenith",
	FieldViewZenith:  "view_zenith",
	FieldRelAzimuth:  "relative_azimuth",
	FieldSunAzimuth:  "sun_azimuth",
	FieldViewAzimuth: "view_azimuth",
	FieldWindModule:  "wind_module",
	FieldZonalWind:   "zonal_wind",
	FieldMeridWind:   "meridional_wind",
	FieldDetector:    "detector_index",
	FieldFlags:       "l1_flags",
	FieldTOA:         "toa",
}

func (f Field) String() string {
	if n, ok := fieldNames[f]; ok {
		return n
	}
	return fmt.Sprintf("field(%d)", uint8(f))
}

// HeaderMap maps logical fields to container-specific column or variable
// names. A nil or partial map falls back to the variant's defaults.
type HeaderMap map[Field]string

// merged overlays h on top of defaults without mutating either.
func (h HeaderMap) merged(defaults HeaderMap) HeaderMap {
	out := make(HeaderMap, len(defaults)+len(h))
	for f, name := range defaults {
		out[f] = name
	}
	for f, name := range h {
		out[f] = name
	}
	return out
}

// name resolves a field or fails with a ConfigError naming it.
func (h HeaderMap) name(f Field) (string, error) {
	n, ok := h[f]
	if !ok || n == "" {
		return "", &ConfigError{Reason: fmt.Sprintf("no header mapping for %s", f)}
	}
	return n, nil
}

// Window selects the active rectangular sub-region of a source's full
// extent. StartRow/StartCol are inclusive zero-based origins; EndRow and
// EndCol are exclusive bounds, with values ≤ 0 counting back from the full
// extent. The zero value selects the whole source.
type Window struct {
	StartRow, EndRow int
	StartCol, EndCol int
}

// resolve turns the window into an origin and size within a source of the
// given total extent.
func (w Window) resolve(totalRows, totalCols int) (domain.Offset, domain.Size, error) {
	endRow := w.EndRow
	if endRow <= 0 {
		endRow += totalRows
	}
	endCol := w.EndCol
	if endCol <= 0 {
		endCol += totalCols
	}
	if w.StartRow < 0 || w.StartCol < 0 || endRow > totalRows || endCol > totalCols {
		return domain.Offset{}, domain.Size{}, &ShapeError{Reason: fmt.Sprintf(
			"window rows [%d,%d) cols [%d,%d) exceeds source extent %dx%d",
			w.StartRow, endRow, w.StartCol, endCol, totalRows, totalCols)}
	}
	if endRow <= w.StartRow || endCol <= w.StartCol {
		return domain.Offset{}, domain.Size{}, &ShapeError{Reason: fmt.Sprintf(
			"empty window rows [%d,%d) cols [%d,%d)", w.StartRow, endRow, w.StartCol, endCol)}
	}
	return domain.Offset{Row: w.StartRow, Col: w.StartCol},
		domain.Size{Rows: endRow - w.StartRow, Cols: endCol - w.StartCol}, nil
}

const defaultBlockSize = 100

// checkBlockBounds validates a requested block against the active
// sub-window shape.
func checkBlockBounds(size domain.Size, offset domain.Offset, height, width int) error {
	if size.Rows < 1 || size.Cols < 1 {
		return &ShapeError{Reason: fmt.Sprintf("empty block %dx%d", size.Rows, size.Cols)}
	}
	if offset.Row < 0 || offset.Col < 0 ||
		offset.Row+size.Rows > height || offset.Col+size.Cols > width {
		return &ShapeError{Reason: fmt.Sprintf(
			"block (%d,%d)+(%dx%d) outside sub-window %dx%d",
			offset.Row, offset.Col, size.Rows, size.Cols, height, width)}
	}
	return nil
}
