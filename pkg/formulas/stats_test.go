package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 2.0, Mean([]float64{1, 2, 3}))
}

func TestVariance(t *testing.T) {
	assert.Equal(t, 0.0, Variance(nil))
	assert.Equal(t, 0.0, Variance([]float64{5, 5, 5}))
	assert.Greater(t, Variance([]float64{1, 2, 3}), 0.0)
}

func TestCorrelation_PerfectPositive(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	y := []float64{2, 4, 6, 8}
	assert.InDelta(t, 1.0, Correlation(x, y), 1e-12)
}

func TestCorrelation_PerfectNegative(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	y := []float64{8, 6, 4, 2}
	assert.InDelta(t, -1.0, Correlation(x, y), 1e-12)
}

func TestCorrelation_Undefined(t *testing.T) {
	// Too few observations.
	assert.True(t, math.IsNaN(Correlation([]float64{1}, []float64{2})))
	// Mismatched lengths.
	assert.True(t, math.IsNaN(Correlation([]float64{1, 2}, []float64{1, 2, 3})))
	// Zero variance on either side.
	assert.True(t, math.IsNaN(Correlation([]float64{1, 1, 1}, []float64{1, 2, 3})))
	assert.True(t, math.IsNaN(Correlation([]float64{1, 2, 3}, []float64{0, 0, 0})))
}

func TestCorrelation_ConstantIdenticalSeries(t *testing.T) {
	// Proportional price moves can land on the exact same float64 return in
	// every row (110/100-1 and 55/50-1 round to the same double). Lockstep
	// series correlate at 1.0 even with zero variance; all-zero returns stay
	// undefined, as do distinct constants.
	r := 110.0/100.0 - 1
	assert.Equal(t, 1.0, Correlation([]float64{r, r}, []float64{r, r}))
	assert.True(t, math.IsNaN(Correlation([]float64{0, 0}, []float64{0, 0})))
	assert.True(t, math.IsNaN(Correlation([]float64{0.1, 0.1}, []float64{0.2, 0.2})))
}

func TestPairwiseComplete(t *testing.T) {
	nan := math.NaN()
	x := []float64{1, nan, 3, 4}
	y := []float64{5, 6, nan, 8}

	fx, fy := PairwiseComplete(x, y)
	assert.Equal(t, []float64{1, 4}, fx)
	assert.Equal(t, []float64{5, 8}, fy)
}

func TestPairwiseComplete_AllMissing(t *testing.T) {
	nan := math.NaN()
	fx, fy := PairwiseComplete([]float64{nan, nan}, []float64{1, 2})
	assert.Empty(t, fx)
	assert.Empty(t, fy)
}
