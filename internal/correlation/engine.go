// Package correlation reduces a return table to a pairwise-complete Pearson
// correlation matrix and extracts ranked most/least correlated symbol pairs.
package correlation

import (
	"github.com/quantfold/sectorscope/internal/domain"
	"github.com/quantfold/sectorscope/pkg/formulas"
)

// Matrix is a square, symmetric correlation matrix. Symbols carries the
// column order of the source return table; Values[i][j] is the correlation
// between Symbols[i] and Symbols[j], NaN when undefined.
type Matrix struct {
	Symbols []string
	Values  [][]float64
}

// Size returns the matrix dimension.
func (m *Matrix) Size() int { return len(m.Symbols) }

// At returns Values[i][j].
func (m *Matrix) At(i, j int) float64 { return m.Values[i][j] }

// Compute builds the correlation matrix for a return table using
// pairwise-complete observations: each pair of columns is correlated over
// the rows where both have a defined value, independently of other columns.
// An all-zero column yields NaN against every symbol, itself included;
// columns in exact lockstep correlate at 1.0 even when constant.
func Compute(rt *domain.ReturnTable) *Matrix {
	n := rt.NumSymbols()
	m := &Matrix{
		Symbols: append([]string(nil), rt.Symbols...),
		Values:  make([][]float64, n),
	}
	for i := range m.Values {
		m.Values[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		ci := rt.Columns[rt.Symbols[i]]
		// Diagonal through the same rule as every other pair: 1.0 for any
		// column with nonzero content, NaN for an all-zero or near-empty one.
		own, _ := formulas.PairwiseComplete(ci, ci)
		m.Values[i][i] = formulas.Correlation(own, own)

		for j := i + 1; j < n; j++ {
			cj := rt.Columns[rt.Symbols[j]]
			x, y := formulas.PairwiseComplete(ci, cj)
			v := formulas.Correlation(x, y)
			m.Values[i][j] = v
			m.Values[j][i] = v
		}
	}
	return m
}
