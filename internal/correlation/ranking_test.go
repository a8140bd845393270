package correlation

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/sectorscope/internal/domain"
)

// denseMatrix builds an n x n symmetric matrix with deterministic,
// NaN-free off-diagonal values spread across (-1, 1).
func denseMatrix(n int) *Matrix {
	symbols := make([]string, n)
	for i := range symbols {
		symbols[i] = fmt.Sprintf("S%02d", i)
	}
	m := &Matrix{Symbols: symbols, Values: make([][]float64, n)}
	for i := range m.Values {
		m.Values[i] = make([]float64, n)
		m.Values[i][i] = 1.0
	}
	k := 0
	total := n * (n - 1) / 2
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v := -0.9 + 1.8*float64(k)/float64(total-1)
			m.Values[i][j] = v
			m.Values[j][i] = v
			k++
		}
	}
	return m
}

func TestRankPairs_TopFiveOnElevenByEleven(t *testing.T) {
	m := denseMatrix(11)
	least, most := RankPairs(m, 5)

	require.Len(t, least, 5)
	require.Len(t, most, 5)

	// Ascending and descending order respectively.
	for i := 1; i < 5; i++ {
		assert.LessOrEqual(t, least[i-1].Correlation, least[i].Correlation)
		assert.GreaterOrEqual(t, most[i-1].Correlation, most[i].Correlation)
	}

	// Each pair unique and unordered (enumerated once).
	seen := make(map[string]bool)
	for _, p := range append(append([]domain.RankedPair{}, least...), most...) {
		assert.NotEqual(t, p.SymbolA, p.SymbolB)
		key := p.SymbolA + "|" + p.SymbolB
		assert.False(t, seen[key], "duplicate pair %s", key)
		seen[key] = true
	}

	// Disjoint lists: everything in least sits at or below everything in most.
	assert.LessOrEqual(t, least[4].Correlation, most[4].Correlation)
}

func TestRankPairs_TopNLargerThanPairCount(t *testing.T) {
	m := denseMatrix(3) // 3 unique pairs
	least, most := RankPairs(m, 10)
	assert.Len(t, least, 3)
	assert.Len(t, most, 3)
}

func TestRankPairs_StableTieBreaking(t *testing.T) {
	m := &Matrix{
		Symbols: []string{"A", "B", "C"},
		Values: [][]float64{
			{1.0, 0.5, 0.5},
			{0.5, 1.0, 0.2},
			{0.5, 0.2, 1.0},
		},
	}
	least, most := RankPairs(m, 3)

	// Ties keep enumeration order: (A,B) before (A,C).
	require.Len(t, most, 3)
	assert.Equal(t, "B", most[0].SymbolB)
	assert.Equal(t, "C", most[1].SymbolB)
	assert.Equal(t, 0.2, least[0].Correlation)
}

func TestRankPairs_ExcludesNaN(t *testing.T) {
	nan := math.NaN()
	m := &Matrix{
		Symbols: []string{"A", "B", "C"},
		Values: [][]float64{
			{1.0, 0.7, nan},
			{0.7, 1.0, nan},
			{nan, nan, nan},
		},
	}
	least, most := RankPairs(m, 5)
	require.Len(t, least, 1)
	require.Len(t, most, 1)
	assert.Equal(t, 0.7, least[0].Correlation)
}
