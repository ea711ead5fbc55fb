package domain

import (
	"math"
	"time"

	"github.com/ctessum/sparse"
)

// WindSpeedFromComponents derives the wind module sqrt(u² + v²) from zonal
// and meridional component arrays of equal shape.
func WindSpeedFromComponents(zonal, merid *sparse.DenseArray) *sparse.DenseArray {
	out := sparse.ZerosDense(zonal.Shape...)
	for i, u := range zonal.Elements {
		v := merid.Elements[i]
		out.Elements[i] = math.Sqrt(u*u + v*v)
	}
	return out
}

// relativeAzimuth derives the relative azimuth angle as the absolute
// difference between sun and view azimuth, elementwise.
func relativeAzimuth(sun, view *sparse.DenseArray) *sparse.DenseArray {
	out := sparse.ZerosDense(sun.Shape...)
	for i, s := range sun.Elements {
		out.Elements[i] = math.Abs(s - view.Elements[i])
	}
	return out
}

// DayOfYear returns the 1-based julian day of t.
func DayOfYear(t time.Time) int { return t.YearDay() }

// MonthOf returns the 1-based calendar month of t.
func MonthOf(t time.Time) int { return int(t.Month()) }

// ConstArray returns a (rows, cols) array filled with v. Sources with a
// single scene timestamp use it to keep the per-pixel shape contract for
// temporal fields.
func ConstArray(size Size, v float64) *sparse.DenseArray {
	out := sparse.ZerosDense(size.Rows, size.Cols)
	for i := range out.Elements {
		out.Elements[i] = v
	}
	return out
}

// NaNArray returns an array of the given dimensions filled with NaN, the
// sentinel for not-yet-available values.
func NaNArray(dims ...int) *sparse.DenseArray {
	out := sparse.ZerosDense(dims...)
	for i := range out.Elements {
		out.Elements[i] = math.NaN()
	}
	return out
}
