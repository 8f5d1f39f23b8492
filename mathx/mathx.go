// Package mathx provides small numerical helpers shared by the other packages.
package mathx

import "errors"

// ErrFitUnderdetermined is generated when a fit is attempted with fewer
// points than free parameters
var ErrFitUnderdetermined = errors.New("mathx: at least two points are required for a linear fit")

// ErrFitLengthMismatch is generated when the x and y inputs to a fit differ in length
var ErrFitLengthMismatch = errors.New("mathx: x and y must be of equal length")

// Round rounds a float to the nearest "unit" (0.1 for tenth, 0.01 for hundredth, and so on).
func Round(x, unit float64) float64 {
	return float64(int64(x/unit+0.5)) * unit
}

// LinearFit computes the least squares line y = slope*x + intercept through
// the given points.  It is the degree-1 special case of polynomial fitting and
// is exact (to floating point) for collinear inputs.
func LinearFit(x, y []float64) (slope, intercept float64, err error) {
	if len(x) != len(y) {
		return 0, 0, ErrFitLengthMismatch
	}
	if len(x) < 2 {
		return 0, 0, ErrFitUnderdetermined
	}
	n := float64(len(x))
	var sx, sy float64
	for i := range x {
		sx += x[i]
		sy += y[i]
	}
	mx := sx / n
	my := sy / n
	var sxx, sxy float64
	for i := range x {
		dx := x[i] - mx
		sxx += dx * dx
		sxy += dx * (y[i] - my)
	}
	if sxx == 0 {
		return 0, 0, errors.New("mathx: x values are all identical, slope is undefined")
	}
	slope = sxy / sxx
	intercept = my - slope*mx
	return slope, intercept, nil
}
