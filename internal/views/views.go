// Package views turns a price table into named return tables. Each view is a
// pure transformation of its input: daily, monthly, quarterly and annual
// period-over-period returns, a fixed-lag year-over-year return, absolute
// daily returns (volatility), and a short-horizon snapshot of daily returns
// (rolling).
package views

import (
	"fmt"
	"math"

	"github.com/quantfold/sectorscope/internal/domain"
)

// View names accepted by Compute.
const (
	Daily      = "daily"
	Monthly    = "monthly"
	Quarterly  = "quarterly"
	Annual     = "annual"
	YoY        = "yoy"
	Volatility = "volatility"
	Rolling    = "rolling"
)

// All lists the supported views in their canonical processing order.
var All = []string{Daily, Monthly, Quarterly, Annual, YoY, Volatility, Rolling}

// Params carries view-specific configuration.
type Params struct {
	RollingWindow int // trading days kept by the rolling view
	YoYLag        int // trading-day lag for the yoy view
}

// DefaultParams returns the standard parameters: a 60-day rolling window and
// a 252 trading-day (~1 calendar year) yoy lag.
func DefaultParams() Params {
	return Params{RollingWindow: 60, YoYLag: 252}
}

// IsSupported reports whether name is a known view.
func IsSupported(name string) bool {
	for _, v := range All {
		if v == name {
			return true
		}
	}
	return false
}

// Compute applies the named view to a price table and returns the resulting
// return table. The input table is never modified. An unsupported name fails
// with *domain.UnknownViewError; a result with fewer than 2 usable rows fails
// with domain.ErrInsufficientData.
func Compute(pt *domain.PriceTable, name string, params Params) (*domain.ReturnTable, error) {
	if params.RollingWindow <= 0 {
		params.RollingWindow = DefaultParams().RollingWindow
	}
	if params.YoYLag <= 0 {
		params.YoYLag = DefaultParams().YoYLag
	}

	var rt *domain.ReturnTable
	switch name {
	case Daily:
		rt = periodReturns(pt)
	case Monthly:
		rt = periodReturns(resample(pt, monthKey))
	case Quarterly:
		rt = periodReturns(resample(pt, quarterKey))
	case Annual:
		rt = periodReturns(resample(pt, yearKey))
	case YoY:
		rt = laggedReturns(pt, params.YoYLag)
	case Volatility:
		rt = periodReturns(pt)
		absolute(rt)
	case Rolling:
		rt = periodReturns(pt)
		truncateToLast(rt, params.RollingWindow)
	default:
		return nil, &domain.UnknownViewError{View: name}
	}

	rt.TrimLeadingEmptyRows()
	if rt.UsableRows() < 2 {
		return nil, fmt.Errorf("view %s: %w", name, domain.ErrInsufficientData)
	}
	return rt, nil
}

// periodReturns computes per-symbol returns across consecutive observed
// prices: r = p/p_prev - 1, attributed to the later observation's date.
// Gaps are preserved: a missing date never contributes a value, and the
// change across a gap is the literal change between the two observations
// on either side (no forward fill).
func periodReturns(pt *domain.PriceTable) *domain.ReturnTable {
	rt := domain.NewTable(append([]string(nil), pt.Dates...), append([]string(nil), pt.Symbols...))
	for _, sym := range pt.Symbols {
		prices := pt.Columns[sym]
		out := rt.Columns[sym]
		prev := math.NaN()
		for i, p := range prices {
			if math.IsNaN(p) {
				continue
			}
			if !math.IsNaN(prev) && prev != 0 {
				out[i] = p/prev - 1
			}
			prev = p
		}
	}
	return rt
}

// laggedReturns computes r[t] = p[t]/p[t-lag] - 1 over the table's row axis.
// Rows where either endpoint is undefined stay NaN; rows before the lag is
// satisfiable are dropped by the caller's leading-row trim.
func laggedReturns(pt *domain.PriceTable, lag int) *domain.ReturnTable {
	rt := domain.NewTable(append([]string(nil), pt.Dates...), append([]string(nil), pt.Symbols...))
	for _, sym := range pt.Symbols {
		prices := pt.Columns[sym]
		out := rt.Columns[sym]
		for i := lag; i < len(prices); i++ {
			base := prices[i-lag]
			if math.IsNaN(prices[i]) || math.IsNaN(base) || base == 0 {
				continue
			}
			out[i] = prices[i]/base - 1
		}
	}
	return rt
}

// absolute replaces every defined value with its absolute value.
func absolute(rt *domain.ReturnTable) {
	for _, sym := range rt.Symbols {
		col := rt.Columns[sym]
		for i, v := range col {
			if !math.IsNaN(v) {
				col[i] = math.Abs(v)
			}
		}
	}
}

// truncateToLast keeps only the most recent n rows.
func truncateToLast(rt *domain.ReturnTable, n int) {
	if rt.NumRows() <= n {
		return
	}
	start := rt.NumRows() - n
	rt.Dates = rt.Dates[start:]
	for _, sym := range rt.Symbols {
		rt.Columns[sym] = rt.Columns[sym][start:]
	}
}

// bucketKey maps a YYYY-MM-DD date to its calendar bucket.
type bucketKey func(date string) string

func monthKey(date string) string {
	if len(date) < 7 {
		return date
	}
	return date[:7] // YYYY-MM
}

func quarterKey(date string) string {
	if len(date) < 7 {
		return date
	}
	q := (int(date[5]-'0')*10 + int(date[6]-'0') - 1) / 3 // month 1-12 -> quarter 0-3
	return fmt.Sprintf("%s-Q%d", date[:4], q+1)
}

func yearKey(date string) string {
	if len(date) < 4 {
		return date
	}
	return date[:4] // YYYY
}

// resample reduces the table to one row per calendar bucket, holding each
// symbol's last observed price within that bucket. The bucket's row is keyed
// by the last table date falling inside it, so resampled axes stay ordered
// and comparable across symbols.
func resample(pt *domain.PriceTable, key bucketKey) *domain.PriceTable {
	if pt.NumRows() == 0 {
		return domain.NewTable(nil, append([]string(nil), pt.Symbols...))
	}

	// One pass over the ascending date axis: bucket boundaries are where the
	// key changes. The last date of each bucket becomes the resampled date.
	var bucketDates []string
	var bucketEnds []int // inclusive row index of each bucket's last date
	current := key(pt.Dates[0])
	for i := 1; i < len(pt.Dates); i++ {
		k := key(pt.Dates[i])
		if k != current {
			bucketDates = append(bucketDates, pt.Dates[i-1])
			bucketEnds = append(bucketEnds, i-1)
			current = k
		}
	}
	bucketDates = append(bucketDates, pt.Dates[len(pt.Dates)-1])
	bucketEnds = append(bucketEnds, len(pt.Dates)-1)

	out := domain.NewTable(bucketDates, append([]string(nil), pt.Symbols...))
	for _, sym := range pt.Symbols {
		prices := pt.Columns[sym]
		col := out.Columns[sym]
		start := 0
		for b, end := range bucketEnds {
			// Last observed (non-NaN) price within [start, end].
			for i := end; i >= start; i-- {
				if !math.IsNaN(prices[i]) {
					col[b] = prices[i]
					break
				}
			}
			start = end + 1
		}
	}
	return out
}
