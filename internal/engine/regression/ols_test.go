package regression

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFit(t *testing.T) {
	tests := []struct {
		name      string
		x, y      []float64
		intercept float64
		slope     float64
	}{
		{name: "increasing", x: []float64{0, 1, 2}, y: []float64{100, 200, 300}, intercept: 100, slope: 100},
		{name: "flat", x: []float64{0, 1, 2, 3}, y: []float64{50, 50, 50, 50}, intercept: 50, slope: 0},
		{name: "decreasing", x: []float64{0, 1}, y: []float64{300, 100}, intercept: 300, slope: -200},
		{name: "noisy", x: []float64{0, 1, 2, 3}, y: []float64{1, 3, 2, 4}, intercept: 1.3, slope: 0.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, err := Fit(tt.x, tt.y)
			require.NoError(t, err)
			assert.InDelta(t, tt.intercept, line.Intercept, 1e-9)
			assert.InDelta(t, tt.slope, line.Slope, 1e-9)
		})
	}
}

func TestLine_Predict(t *testing.T) {
	line, err := Fit([]float64{0, 1, 2}, []float64{100, 200, 300})
	require.NoError(t, err)
	assert.InDelta(t, 400, line.Predict(3), 1e-9)
}

func TestFit_Errors(t *testing.T) {
	_, err := Fit([]float64{1}, []float64{1})
	assert.ErrorIs(t, err, ErrTooFewPoints)

	_, err = Fit([]float64{1, 2}, []float64{1})
	assert.ErrorIs(t, err, ErrLengthMismatch)

	_, err = Fit([]float64{2, 2, 2}, []float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrDegeneratePoints)

	_, err = Fit([]float64{0, 1}, []float64{math.Inf(1), 1})
	assert.ErrorIs(t, err, ErrNonFinite)
}

func TestMeanAndSampleVariance(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.InDelta(t, 200, Mean([]float64{100, 200, 300}), 1e-9)

	assert.Equal(t, 0.0, SampleVariance([]float64{7}))
	assert.InDelta(t, 10000, SampleVariance([]float64{100, 200, 300}), 1e-9)
}
