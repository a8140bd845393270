package store

import (
	"database/sql"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/sectorscope/internal/correlation"
	"github.com/quantfold/sectorscope/internal/domain"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func testLog() zerolog.Logger {
	return zerolog.New(nil).Level(zerolog.Disabled)
}

func TestPriceDB_SyncAndGet(t *testing.T) {
	p, err := NewPriceDB(testDB(t), testLog())
	require.NoError(t, err)

	prices := []domain.ClosePrice{
		{Date: "2024-01-02", Close: 100.5},
		{Date: "2024-01-03", Close: 101.25},
		{Date: "2024-01-04", Close: 99.75},
	}
	require.NoError(t, p.SyncPrices("XLK", prices))

	got, err := p.GetDailyPrices("XLK", "2024-01-01", "2024-01-31")
	require.NoError(t, err)
	assert.Equal(t, prices, got)

	// Range bounds are inclusive and string-comparable.
	got, err = p.GetDailyPrices("XLK", "2024-01-03", "2024-01-03")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 101.25, got[0].Close)
}

func TestPriceDB_SyncUpserts(t *testing.T) {
	p, err := NewPriceDB(testDB(t), testLog())
	require.NoError(t, err)

	require.NoError(t, p.SyncPrices("XLF", []domain.ClosePrice{{Date: "2024-01-02", Close: 40.0}}))
	require.NoError(t, p.SyncPrices("XLF", []domain.ClosePrice{{Date: "2024-01-02", Close: 41.0}}))

	got, err := p.GetDailyPrices("XLF", "2024-01-01", "2024-01-31")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 41.0, got[0].Close)
}

func TestPriceDB_SymbolsDoNotLeak(t *testing.T) {
	p, err := NewPriceDB(testDB(t), testLog())
	require.NoError(t, err)

	require.NoError(t, p.SyncPrices("XLK", []domain.ClosePrice{{Date: "2024-01-02", Close: 100}}))

	got, err := p.GetDailyPrices("XLE", "2024-01-01", "2024-01-31")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResultCache_RoundTrip(t *testing.T) {
	c, err := NewResultCache(testDB(t), testLog())
	require.NoError(t, err)

	m := &correlation.Matrix{
		Symbols: []string{"XLK", "XLF"},
		Values:  [][]float64{{1.0, 0.7}, {0.7, 1.0}},
	}
	least := []domain.RankedPair{{SymbolA: "XLK", SymbolB: "XLF", Correlation: 0.7}}
	most := []domain.RankedPair{{SymbolA: "XLK", SymbolB: "XLF", Correlation: 0.7}}

	hash := HashInputs(m.Symbols, "2024-01-01", "2024-12-31")
	require.NoError(t, c.Set("daily", hash, m, least, most))

	gotM, gotLeast, gotMost, ok := c.Get("daily", hash)
	require.True(t, ok)
	assert.Equal(t, m.Symbols, gotM.Symbols)
	assert.Equal(t, m.Values, gotM.Values)
	assert.Equal(t, least, gotLeast)
	assert.Equal(t, most, gotMost)
}

func TestResultCache_MissOnUnknownKey(t *testing.T) {
	c, err := NewResultCache(testDB(t), testLog())
	require.NoError(t, err)

	_, _, _, ok := c.Get("daily", "deadbeef")
	assert.False(t, ok)
}

func TestResultCache_ShortKeyRoundTrip(t *testing.T) {
	// Keys shorter than the abbreviated form logged on hits/stores must
	// round-trip without tripping the cache.
	c, err := NewResultCache(testDB(t), testLog())
	require.NoError(t, err)

	m := &correlation.Matrix{Symbols: []string{"A"}, Values: [][]float64{{1.0}}}
	require.NoError(t, c.Set("daily", "abc", m, nil, nil))

	gotM, _, _, ok := c.Get("daily", "abc")
	require.True(t, ok)
	assert.Equal(t, m.Symbols, gotM.Symbols)
}

func TestResultCache_ExpiredEntryIsStale(t *testing.T) {
	c, err := NewResultCache(testDB(t), testLog())
	require.NoError(t, err)

	m := &correlation.Matrix{Symbols: []string{"A"}, Values: [][]float64{{1.0}}}
	require.NoError(t, c.Set("daily", "abc", m, nil, nil))

	c.now = func() time.Time { return time.Now().Add(TTLCorrelation + time.Minute) }
	_, _, _, ok := c.Get("daily", "abc")
	assert.False(t, ok)
}

func TestResultCache_ViewsAreIndependent(t *testing.T) {
	c, err := NewResultCache(testDB(t), testLog())
	require.NoError(t, err)

	m := &correlation.Matrix{Symbols: []string{"A"}, Values: [][]float64{{1.0}}}
	require.NoError(t, c.Set("daily", "abc", m, nil, nil))

	_, _, _, ok := c.Get("monthly", "abc")
	assert.False(t, ok)
}

func TestResultCache_PreservesNaN(t *testing.T) {
	c, err := NewResultCache(testDB(t), testLog())
	require.NoError(t, err)

	m := &correlation.Matrix{
		Symbols: []string{"A", "B"},
		Values:  [][]float64{{1.0, math.NaN()}, {math.NaN(), math.NaN()}},
	}
	require.NoError(t, c.Set("daily", "abc", m, nil, nil))

	gotM, _, _, ok := c.Get("daily", "abc")
	require.True(t, ok)
	assert.True(t, math.IsNaN(gotM.Values[0][1]))
	assert.True(t, math.IsNaN(gotM.Values[1][1]))
}

func TestHashInputs_OrderIndependent(t *testing.T) {
	a := HashInputs([]string{"XLK", "XLF", "XLE"}, "2024-01-01", "2024-12-31")
	b := HashInputs([]string{"XLE", "XLK", "XLF"}, "2024-01-01", "2024-12-31")
	assert.Equal(t, a, b)

	c := HashInputs([]string{"XLK", "XLF"}, "2024-01-01", "2024-12-31")
	assert.NotEqual(t, a, c)

	d := HashInputs([]string{"XLK", "XLF", "XLE"}, "2024-01-02", "2024-12-31")
	assert.NotEqual(t, a, d)
}
