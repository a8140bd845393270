// Package labels maps sector ETF tickers to human-readable sector names.
// The table is fixed at process start and never mutated, so it is safe to
// read from any goroutine without locking.
package labels

import "github.com/quantfold/sectorscope/internal/domain"

// sectorNames is the ticker -> GICS sector display name table.
var sectorNames = map[string]string{
	"XLK":  "Technology",
	"XLF":  "Financials",
	"XLE":  "Energy",
	"XLI":  "Industrials",
	"XLP":  "Consumer Staples",
	"XLU":  "Utilities",
	"XLV":  "Health Care",
	"XLY":  "Consumer Discretionary",
	"XLB":  "Materials",
	"XLRE": "Real Estate",
	"XLC":  "Communication Services",
}

// Sector returns the display name for a ticker. Unmapped tickers pass
// through unchanged.
func Sector(symbol string) string {
	if name, ok := sectorNames[symbol]; ok {
		return name
	}
	return symbol
}

// Sectors maps a slice of tickers to display names, preserving order.
func Sectors(symbols []string) []string {
	out := make([]string, len(symbols))
	for i, s := range symbols {
		out[i] = Sector(s)
	}
	return out
}

// LabelPairs returns a copy of pairs with symbols replaced by sector names.
// Total function: unmapped symbols keep their raw ticker.
func LabelPairs(pairs []domain.RankedPair) []domain.RankedPair {
	out := make([]domain.RankedPair, len(pairs))
	for i, p := range pairs {
		out[i] = domain.RankedPair{
			SymbolA:     Sector(p.SymbolA),
			SymbolB:     Sector(p.SymbolB),
			Correlation: p.Correlation,
		}
	}
	return out
}
