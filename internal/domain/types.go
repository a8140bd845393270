// Package domain holds the core data types shared by the pipeline stages.
// All tables use the same column-oriented shape: a sorted date axis and one
// float64 column per symbol, with math.NaN() marking missing observations.
package domain

import (
	"math"
	"sort"
)

// ClosePrice is a single daily closing-price observation from a price source.
type ClosePrice struct {
	Date  string // YYYY-MM-DD
	Close float64
}

// Table is a date-indexed table of float64 columns keyed by symbol.
// Dates are strictly increasing. Symbols preserves the order in which
// columns first appeared - ranking and CSV output depend on it being stable.
type Table struct {
	Dates   []string
	Symbols []string
	Columns map[string][]float64
}

// PriceTable is a Table of closing prices. Built once per run, read-only after.
type PriceTable = Table

// ReturnTable is a Table of period-over-period returns (or absolute returns
// for the volatility view).
type ReturnTable = Table

// NewTable creates an empty table with the given date axis and symbol order.
// Every column is allocated and initialized to NaN.
func NewTable(dates []string, symbols []string) *Table {
	t := &Table{
		Dates:   dates,
		Symbols: symbols,
		Columns: make(map[string][]float64, len(symbols)),
	}
	for _, sym := range symbols {
		col := make([]float64, len(dates))
		for i := range col {
			col[i] = math.NaN()
		}
		t.Columns[sym] = col
	}
	return t
}

// NumRows returns the number of rows (dates) in the table.
func (t *Table) NumRows() int { return len(t.Dates) }

// NumSymbols returns the number of symbol columns.
func (t *Table) NumSymbols() int { return len(t.Symbols) }

// Value returns the value for a symbol at a row index, or NaN when the
// symbol is unknown.
func (t *Table) Value(symbol string, row int) float64 {
	col, ok := t.Columns[symbol]
	if !ok || row < 0 || row >= len(col) {
		return math.NaN()
	}
	return col[row]
}

// DateIndex returns the row index of a date, or -1 when absent.
func (t *Table) DateIndex(date string) int {
	i := sort.SearchStrings(t.Dates, date)
	if i < len(t.Dates) && t.Dates[i] == date {
		return i
	}
	return -1
}

// TrimLeadingEmptyRows drops leading rows where every column is NaN.
// Transforms that consume a prior reference point produce such rows.
func (t *Table) TrimLeadingEmptyRows() {
	start := 0
	for ; start < len(t.Dates); start++ {
		empty := true
		for _, sym := range t.Symbols {
			if !math.IsNaN(t.Columns[sym][start]) {
				empty = false
				break
			}
		}
		if !empty {
			break
		}
	}
	if start == 0 {
		return
	}
	t.Dates = t.Dates[start:]
	for _, sym := range t.Symbols {
		t.Columns[sym] = t.Columns[sym][start:]
	}
}

// UsableRows counts rows that have at least one defined value.
func (t *Table) UsableRows() int {
	n := 0
	for i := range t.Dates {
		for _, sym := range t.Symbols {
			if !math.IsNaN(t.Columns[sym][i]) {
				n++
				break
			}
		}
	}
	return n
}

// RankedPair is one unordered symbol pair with its correlation value.
// Pairs are enumerated i<j under the table's stable symbol ordering.
type RankedPair struct {
	SymbolA     string  `json:"symbol_a"`
	SymbolB     string  `json:"symbol_b"`
	Correlation float64 `json:"correlation"`
}
