package correlation

import (
	"math"
	"sort"

	"github.com/quantfold/sectorscope/internal/domain"
)

// DefaultTopN is the number of pairs reported on each end of the ranking.
const DefaultTopN = 5

// RankPairs enumerates the unique unordered symbol pairs of a matrix (i<j
// under the matrix's stable symbol ordering) and returns the topN least and
// topN most correlated pairs. Sorting is stable, so ties keep their
// enumeration order. Pairs with a NaN correlation cannot be ordered and are
// excluded from both lists; they remain in the raw matrix. When fewer than
// topN rankable pairs exist, both lists contain all of them.
func RankPairs(m *Matrix, topN int) (least, most []domain.RankedPair) {
	if topN <= 0 {
		topN = DefaultTopN
	}

	n := m.Size()
	pairs := make([]domain.RankedPair, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v := m.Values[i][j]
			if math.IsNaN(v) {
				continue
			}
			pairs = append(pairs, domain.RankedPair{
				SymbolA:     m.Symbols[i],
				SymbolB:     m.Symbols[j],
				Correlation: v,
			})
		}
	}

	asc := append([]domain.RankedPair(nil), pairs...)
	sort.SliceStable(asc, func(a, b int) bool { return asc[a].Correlation < asc[b].Correlation })

	desc := append([]domain.RankedPair(nil), pairs...)
	sort.SliceStable(desc, func(a, b int) bool { return desc[a].Correlation > desc[b].Correlation })

	k := topN
	if k > len(pairs) {
		k = len(pairs)
	}
	return asc[:k], desc[:k]
}
