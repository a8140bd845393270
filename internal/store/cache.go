package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/quantfold/sectorscope/internal/correlation"
	"github.com/quantfold/sectorscope/internal/domain"
)

// TTLCorrelation bounds how long a cached correlation result is considered
// fresh. One trading day: a new close invalidates everything anyway.
const TTLCorrelation = 24 * time.Hour

// ResultCache caches computed correlation artifacts in SQLite, keyed by
// (view, input hash), so repeated runs over unchanged inputs skip the
// recomputation. Payloads are msgpack-encoded.
type ResultCache struct {
	db  *sql.DB
	log zerolog.Logger
	now func() time.Time
}

// cachedResult is the msgpack payload stored per (view, hash) key.
type cachedResult struct {
	Symbols []string            `msgpack:"symbols"`
	Values  [][]float64         `msgpack:"values"`
	Least   []domain.RankedPair `msgpack:"least"`
	Most    []domain.RankedPair `msgpack:"most"`
}

// OpenResultCache opens (and migrates) the result cache at path.
func OpenResultCache(path string, log zerolog.Logger) (*ResultCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open result cache: %w", err)
	}
	c := &ResultCache{
		db:  db,
		log: log.With().Str("component", "result_cache").Logger(),
		now: time.Now,
	}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// NewResultCache wraps an existing connection (used by tests).
func NewResultCache(db *sql.DB, log zerolog.Logger) (*ResultCache, error) {
	c := &ResultCache{db: db, log: log.With().Str("component", "result_cache").Logger(), now: time.Now}
	if err := c.migrate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *ResultCache) migrate() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS correlation_results (
			view       TEXT NOT NULL,
			input_hash TEXT NOT NULL,
			payload    BLOB NOT NULL,
			cached_at  INTEGER NOT NULL,
			PRIMARY KEY (view, input_hash)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to migrate result cache: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (c *ResultCache) Close() error { return c.db.Close() }

// HashInputs produces a deterministic key for a run's inputs: the sorted
// symbol set and the date range. Sorting makes the hash order-independent.
func HashInputs(symbols []string, start, end string) string {
	sorted := make([]string, len(symbols))
	copy(sorted, symbols)
	sort.Strings(sorted)
	h := sha256.Sum256([]byte(strings.Join(sorted, ",") + "|" + start + "|" + end))
	return hex.EncodeToString(h[:16])
}

// Get returns the cached result for (view, inputHash) when present and
// fresh, or ok=false otherwise.
func (c *ResultCache) Get(view, inputHash string) (*correlation.Matrix, []domain.RankedPair, []domain.RankedPair, bool) {
	var payload []byte
	var cachedAt int64
	err := c.db.QueryRow(`
		SELECT payload, cached_at FROM correlation_results
		WHERE view = ? AND input_hash = ?
	`, view, inputHash).Scan(&payload, &cachedAt)
	if err != nil {
		return nil, nil, nil, false
	}
	if c.now().Sub(time.Unix(cachedAt, 0)) > TTLCorrelation {
		return nil, nil, nil, false
	}

	var result cachedResult
	if err := msgpack.Unmarshal(payload, &result); err != nil {
		c.log.Warn().Err(err).Str("view", view).Msg("Failed to decode cached result, recalculating")
		return nil, nil, nil, false
	}

	m := &correlation.Matrix{Symbols: result.Symbols, Values: result.Values}
	c.log.Debug().Str("view", view).Str("hash", shortHash(inputHash)).Msg("Result cache hit")
	return m, result.Least, result.Most, true
}

// Set stores a computed result for (view, inputHash).
func (c *ResultCache) Set(view, inputHash string, m *correlation.Matrix, least, most []domain.RankedPair) error {
	payload, err := msgpack.Marshal(cachedResult{
		Symbols: m.Symbols,
		Values:  m.Values,
		Least:   least,
		Most:    most,
	})
	if err != nil {
		return fmt.Errorf("failed to encode result for cache: %w", err)
	}

	_, err = c.db.Exec(`
		INSERT OR REPLACE INTO correlation_results (view, input_hash, payload, cached_at)
		VALUES (?, ?, ?, ?)
	`, view, inputHash, payload, c.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to store cached result: %w", err)
	}

	c.log.Debug().Str("view", view).Str("hash", shortHash(inputHash)).Msg("Cached correlation result")
	return nil
}

// shortHash abbreviates a hash for log fields. Keys shorter than the
// abbreviation are passed through as-is.
func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}
