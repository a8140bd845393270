package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the standard deviation of a slice of float64 values
func StdDev(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Variance calculates the variance of a slice of float64 values
func Variance(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Variance(data, nil)
}

// Correlation calculates the Pearson correlation coefficient between two
// equal-length datasets. Two element-wise equal series with at least one
// nonzero value move in perfect lockstep and correlate at 1.0 even when
// they are constant (identical proportional price moves land there after
// float64 division). Otherwise a zero-variance series, such as the all-zero
// returns of a constant price, has no defined correlation and yields NaN,
// as do series with fewer than two observations.
func Correlation(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return math.NaN()
	}
	if identical(x, y) && !allZero(x) {
		return 1.0
	}
	if Variance(x) == 0 || Variance(y) == 0 {
		return math.NaN()
	}
	return stat.Correlation(x, y, nil)
}

// identical reports whether x and y are element-wise equal.
func identical(x, y []float64) bool {
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

// allZero reports whether every value in x is zero.
func allZero(x []float64) bool {
	for _, v := range x {
		if v != 0 {
			return false
		}
	}
	return true
}

// PairwiseComplete filters two aligned series down to the rows where both
// have a defined (non-NaN) value. A missing value in one series does not
// exclude that row from pairs involving other series, so the filtering is
// done per pair.
func PairwiseComplete(x, y []float64) ([]float64, []float64) {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	fx := make([]float64, 0, n)
	fy := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		fx = append(fx, x[i])
		fy = append(fy, y[i])
	}
	return fx, fy
}
