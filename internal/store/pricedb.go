package store

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/quantfold/sectorscope/internal/domain"
)

// PriceDB is a write-through SQLite cache of fetched daily closes. The
// builder records every successful fetch here and falls back to cached
// prices when a provider fails (stale data > no data).
type PriceDB struct {
	db  *sql.DB
	log zerolog.Logger
}

// OpenPriceDB opens (and migrates) the price cache at path. Use
// "file::memory:?cache=shared" for tests.
func OpenPriceDB(path string, log zerolog.Logger) (*PriceDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open price cache: %w", err)
	}
	p := &PriceDB{
		db:  db,
		log: log.With().Str("component", "price_db").Logger(),
	}
	if err := p.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

// NewPriceDB wraps an existing connection (used by tests).
func NewPriceDB(db *sql.DB, log zerolog.Logger) (*PriceDB, error) {
	p := &PriceDB{db: db, log: log.With().Str("component", "price_db").Logger()}
	if err := p.migrate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *PriceDB) migrate() error {
	_, err := p.db.Exec(`
		CREATE TABLE IF NOT EXISTS daily_prices (
			symbol TEXT NOT NULL,
			date   TEXT NOT NULL,
			close  REAL NOT NULL,
			PRIMARY KEY (symbol, date)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to migrate price cache: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (p *PriceDB) Close() error { return p.db.Close() }

// SyncPrices upserts a symbol's close series in one transaction.
func (p *PriceDB) SyncPrices(symbol string, prices []domain.ClosePrice) error {
	tx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin price sync: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO daily_prices (symbol, date, close) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare price sync: %w", err)
	}
	defer stmt.Close()

	for _, pr := range prices {
		if _, err := stmt.Exec(symbol, pr.Date, pr.Close); err != nil {
			return fmt.Errorf("failed to upsert price %s/%s: %w", symbol, pr.Date, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit price sync: %w", err)
	}

	p.log.Debug().Str("symbol", symbol).Int("count", len(prices)).Msg("Synced prices to cache")
	return nil
}

// GetDailyPrices returns a symbol's cached closes within [start, end],
// ordered by date ascending. Dates are YYYY-MM-DD, so string comparison
// matches chronological order.
func (p *PriceDB) GetDailyPrices(symbol, start, end string) ([]domain.ClosePrice, error) {
	rows, err := p.db.Query(`
		SELECT date, close
		FROM daily_prices
		WHERE symbol = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query cached prices: %w", err)
	}
	defer rows.Close()

	var prices []domain.ClosePrice
	for rows.Next() {
		var pr domain.ClosePrice
		if err := rows.Scan(&pr.Date, &pr.Close); err != nil {
			return nil, fmt.Errorf("failed to scan cached price: %w", err)
		}
		prices = append(prices, pr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cached prices: %w", err)
	}
	return prices, nil
}
