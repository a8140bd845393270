// Package marketdata assembles the run's price table from a price source.
package marketdata

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/quantfold/sectorscope/internal/domain"
)

// PriceSource fetches the daily close series for one symbol. Implemented by
// the Stooq client; tests inject fakes.
type PriceSource interface {
	Fetch(ctx context.Context, symbol, start, end string) ([]domain.ClosePrice, error)
}

// PriceCache is the optional write-through cache consulted when a fetch
// fails. Implemented by store.PriceDB.
type PriceCache interface {
	SyncPrices(symbol string, prices []domain.ClosePrice) error
	GetDailyPrices(symbol, start, end string) ([]domain.ClosePrice, error)
}

// SkippedSymbol is the diagnostic for a symbol dropped from the run.
type SkippedSymbol struct {
	Symbol string
	Reason error
}

// Options configures the fetch pool. The rate limit is the provider's
// allowance; the concurrency limit is how the loop is structured. Keeping
// them separate lets a strict provider run with a wide pool and vice versa.
type Options struct {
	Concurrency    int           // max in-flight fetches, default 4
	RequestsPerMin int           // provider allowance, 0 = unlimited
	FetchTimeout   time.Duration // per-symbol timeout, default 30s
}

// Builder fetches every symbol in the universe and aligns the results into
// a single date-indexed price table.
type Builder struct {
	source  PriceSource
	cache   PriceCache // optional
	limiter *rate.Limiter
	opts    Options
	log     zerolog.Logger
}

// NewBuilder creates a price table builder over a price source. cache may
// be nil to disable fallback caching.
func NewBuilder(source PriceSource, cache PriceCache, opts Options, log zerolog.Logger) *Builder {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 30 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerMin > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(opts.RequestsPerMin)/60.0), 1)
	}
	return &Builder{
		source:  source,
		cache:   cache,
		limiter: limiter,
		opts:    opts,
		log:     log.With().Str("component", "price_table_builder").Logger(),
	}
}

// BuildPriceTable fetches closes for every symbol in universe over
// [start, end] and outer-joins them on the union of dates, ascending.
// Per-symbol failures (including timeouts) are non-fatal: the symbol is
// skipped and reported in the returned diagnostics. Fewer than 2 successful
// symbols fails the run with domain.ErrInsufficientData.
func (b *Builder) BuildPriceTable(ctx context.Context, universe []string, start, end string) (*domain.PriceTable, []SkippedSymbol, error) {
	if len(universe) == 0 {
		return nil, nil, fmt.Errorf("empty universe")
	}

	var mu sync.Mutex
	series := make(map[string][]domain.ClosePrice, len(universe))
	var skipped []SkippedSymbol

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Concurrency)

	for _, symbol := range universe {
		symbol := symbol
		g.Go(func() error {
			prices, err := b.fetchOne(gctx, symbol, start, end)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				fe := &domain.FetchError{Symbol: symbol, Err: err}
				b.log.Warn().Err(err).Str("symbol", symbol).Msg("Skipping symbol")
				skipped = append(skipped, SkippedSymbol{Symbol: symbol, Reason: fe})
				return nil
			}
			series[symbol] = prices
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, skipped, err
	}

	if len(series) < 2 {
		return nil, skipped, fmt.Errorf("only %d of %d symbols usable: %w",
			len(series), len(universe), domain.ErrInsufficientData)
	}

	table := alignSeries(universe, series)
	b.log.Info().
		Int("symbols", table.NumSymbols()).
		Int("dates", table.NumRows()).
		Int("skipped", len(skipped)).
		Msg("Built price table")

	return table, skipped, nil
}

// fetchOne runs a single rate-limited, timeout-bounded fetch, falling back
// to the price cache on provider failure.
func (b *Builder) fetchOne(ctx context.Context, symbol, start, end string) ([]domain.ClosePrice, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	fctx, cancel := context.WithTimeout(ctx, b.opts.FetchTimeout)
	defer cancel()

	prices, err := b.source.Fetch(fctx, symbol, start, end)
	if err == nil {
		if b.cache != nil {
			if cerr := b.cache.SyncPrices(symbol, prices); cerr != nil {
				b.log.Warn().Err(cerr).Str("symbol", symbol).Msg("Failed to cache prices")
			}
		}
		return prices, nil
	}

	if b.cache != nil {
		cached, cerr := b.cache.GetDailyPrices(symbol, start, end)
		if cerr == nil && len(cached) > 0 {
			b.log.Warn().
				Err(err).
				Str("symbol", symbol).
				Int("count", len(cached)).
				Msg("Fetch failed, using cached prices")
			return cached, nil
		}
	}
	return nil, err
}

// alignSeries outer-joins per-symbol series into one table. Symbol order
// follows the universe (successful symbols only), dates are the sorted
// union, and absent observations stay NaN.
func alignSeries(universe []string, series map[string][]domain.ClosePrice) *domain.PriceTable {
	dateSet := make(map[string]bool)
	for _, prices := range series {
		for _, p := range prices {
			dateSet[p.Date] = true
		}
	}
	dates := make([]string, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	symbols := make([]string, 0, len(series))
	for _, sym := range universe {
		if _, ok := series[sym]; ok {
			symbols = append(symbols, sym)
		}
	}

	table := domain.NewTable(dates, symbols)
	index := make(map[string]int, len(dates))
	for i, d := range dates {
		index[d] = i
	}
	for _, sym := range symbols {
		col := table.Columns[sym]
		for _, p := range series[sym] {
			col[index[p.Date]] = p.Close
		}
	}
	return table
}
