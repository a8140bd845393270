package labels

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quantfold/sectorscope/internal/domain"
)

func TestSector(t *testing.T) {
	assert.Equal(t, "Technology", Sector("XLK"))
	assert.Equal(t, "Real Estate", Sector("XLRE"))
	assert.Equal(t, "Communication Services", Sector("XLC"))
	// Unmapped tickers pass through.
	assert.Equal(t, "SPY", Sector("SPY"))
}

func TestSectors_PreservesOrder(t *testing.T) {
	got := Sectors([]string{"XLF", "XLK", "QQQ"})
	assert.Equal(t, []string{"Financials", "Technology", "QQQ"}, got)
}

func TestLabelPairs(t *testing.T) {
	pairs := []domain.RankedPair{
		{SymbolA: "XLK", SymbolB: "XLE", Correlation: 0.12},
		{SymbolA: "XLU", SymbolB: "FOO", Correlation: -0.3},
	}
	got := LabelPairs(pairs)

	assert.Equal(t, "Technology", got[0].SymbolA)
	assert.Equal(t, "Energy", got[0].SymbolB)
	assert.Equal(t, 0.12, got[0].Correlation)
	assert.Equal(t, "Utilities", got[1].SymbolA)
	assert.Equal(t, "FOO", got[1].SymbolB)

	// Input is untouched.
	assert.Equal(t, "XLK", pairs[0].SymbolA)
}
