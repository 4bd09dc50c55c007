// Package regression fits one-predictor ordinary least squares lines and
// provides the summary statistics the forecaster needs.
package regression

import (
	"errors"
	"math"
)

var (
	ErrTooFewPoints     = errors.New("regression: at least two points required")
	ErrLengthMismatch   = errors.New("regression: x and y differ in length")
	ErrDegeneratePoints = errors.New("regression: x has zero variance")
	ErrNonFinite        = errors.New("regression: non-finite value")
)

// Line is y = Intercept + Slope*x.
type Line struct {
	Intercept float64
	Slope     float64
}

// Predict evaluates the line at x.
func (l Line) Predict(x float64) float64 {
	return l.Intercept + l.Slope*x
}

// Fit returns the least squares line through the points (x[i], y[i]).
func Fit(x, y []float64) (Line, error) {
	if len(x) != len(y) {
		return Line{}, ErrLengthMismatch
	}
	if len(x) < 2 {
		return Line{}, ErrTooFewPoints
	}

	mx, my := Mean(x), Mean(y)
	var sxy, sxx float64
	for i := range x {
		dx := x[i] - mx
		sxy += dx * (y[i] - my)
		sxx += dx * dx
	}
	if sxx == 0 {
		return Line{}, ErrDegeneratePoints
	}

	slope := sxy / sxx
	line := Line{Intercept: my - slope*mx, Slope: slope}
	if !finite(line.Intercept) || !finite(line.Slope) {
		return Line{}, ErrNonFinite
	}
	return line, nil
}

// Mean is the arithmetic mean; 0 for an empty slice.
func Mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

// SampleVariance uses the n-1 denominator; 0 for fewer than two values.
func SampleVariance(v []float64) float64 {
	if len(v) < 2 {
		return 0
	}
	m := Mean(v)
	var ss float64
	for _, x := range v {
		d := x - m
		ss += d * d
	}
	return ss / float64(len(v)-1)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
