// Package store persists pipeline artifacts: return tables and correlation
// matrices as human-diffable CSV files, fetched prices in a SQLite cache,
// and computed correlation results in a TTL cache.
package store

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/quantfold/sectorscope/internal/correlation"
	"github.com/quantfold/sectorscope/internal/domain"
)

// Artifact naming scheme. Correlation matrices and return tables share the
// output directory, keyed by view name.
func ReturnsName(view string) string     { return view + "_returns" }
func CorrelationName(view string) string { return "correlation_" + view }

// CSVStore reads and writes named tables in a single output directory.
type CSVStore struct {
	dir string
	log zerolog.Logger
}

// NewCSVStore creates a store rooted at dir, creating it when absent.
func NewCSVStore(dir string, log zerolog.Logger) (*CSVStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &CSVStore{
		dir: abs,
		log: log.With().Str("component", "csv_store").Logger(),
	}, nil
}

// Dir returns the absolute output directory.
func (s *CSVStore) Dir() string { return s.dir }

// Path returns the on-disk path for a named table.
func (s *CSVStore) Path(name string) string {
	return filepath.Join(s.dir, name+".csv")
}

// Purge removes stale CSV and PNG outputs so a fresh run never mixes with a
// previous one's artifacts.
func (s *CSVStore) Purge() error {
	for _, pattern := range []string{"*.csv", "*.png"} {
		matches, err := filepath.Glob(filepath.Join(s.dir, pattern))
		if err != nil {
			return fmt.Errorf("failed to glob %s: %w", pattern, err)
		}
		for _, path := range matches {
			if err := os.Remove(path); err != nil {
				s.log.Warn().Err(err).Str("path", path).Msg("Failed to remove stale output")
				continue
			}
			s.log.Debug().Str("path", path).Msg("Removed stale output")
		}
	}
	return nil
}

// formatValue prints a value with 4 decimal digits; NaN becomes an empty
// cell so missing observations survive a round trip.
func formatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func parseValue(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// StoreTable writes a date-indexed table: header row of symbol names with a
// leading "date" key column, one row per date.
func (s *CSVStore) StoreTable(name string, t *domain.Table) error {
	f, err := os.Create(s.Path(name))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{"date"}, t.Symbols...)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header for %s: %w", name, err)
	}
	for i, date := range t.Dates {
		row := make([]string, 0, len(header))
		row = append(row, date)
		for _, sym := range t.Symbols {
			row = append(row, formatValue(t.Columns[sym][i]))
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", name, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", name, err)
	}

	s.log.Debug().Str("name", name).Int("rows", t.NumRows()).Int("symbols", t.NumSymbols()).Msg("Stored table")
	return nil
}

// LoadTable reads a table previously written by StoreTable. The recovered
// symbol set and values match the original within the persisted precision.
func (s *CSVStore) LoadTable(name string) (*domain.Table, error) {
	records, err := s.readAll(name)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 || len(records[0]) < 2 {
		return nil, fmt.Errorf("%s: empty or malformed table", name)
	}

	symbols := records[0][1:]
	dates := make([]string, 0, len(records)-1)
	for _, row := range records[1:] {
		dates = append(dates, row[0])
	}

	t := domain.NewTable(dates, symbols)
	for r, row := range records[1:] {
		for c, sym := range symbols {
			if c+1 < len(row) {
				t.Columns[sym][r] = parseValue(row[c+1])
			}
		}
	}
	return t, nil
}

// StoreMatrix writes a correlation matrix: header row of symbols with an
// empty leading cell, one row per symbol with the symbol as key column.
func (s *CSVStore) StoreMatrix(name string, m *correlation.Matrix) error {
	f, err := os.Create(s.Path(name))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(append([]string{""}, m.Symbols...)); err != nil {
		return fmt.Errorf("failed to write header for %s: %w", name, err)
	}
	for i, sym := range m.Symbols {
		row := make([]string, 0, m.Size()+1)
		row = append(row, sym)
		for j := range m.Symbols {
			row = append(row, formatValue(m.Values[i][j]))
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", name, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", name, err)
	}

	s.log.Debug().Str("name", name).Int("size", m.Size()).Msg("Stored correlation matrix")
	return nil
}

// LoadMatrix reads a correlation matrix and validates its shape. A
// non-square file, or one whose row labels disagree with its header, fails
// with *domain.ShapeMismatchError.
func (s *CSVStore) LoadMatrix(name string) (*correlation.Matrix, error) {
	records, err := s.readAll(name)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 || len(records[0]) < 2 {
		return nil, fmt.Errorf("%s: empty or malformed matrix", name)
	}

	symbols := records[0][1:]
	rows := len(records) - 1
	if rows != len(symbols) {
		return nil, &domain.ShapeMismatchError{Name: name, Rows: rows, Cols: len(symbols)}
	}

	m := &correlation.Matrix{
		Symbols: symbols,
		Values:  make([][]float64, rows),
	}
	for i, row := range records[1:] {
		if len(row) != len(symbols)+1 {
			return nil, &domain.ShapeMismatchError{Name: name, Rows: rows, Cols: len(row) - 1}
		}
		if row[0] != symbols[i] {
			return nil, &domain.ShapeMismatchError{Name: name, Rows: rows, Cols: len(symbols)}
		}
		m.Values[i] = make([]float64, len(symbols))
		for j := range symbols {
			m.Values[i][j] = parseValue(row[j+1])
		}
	}
	return m, nil
}

// ListMatrices returns the names (without extension) of correlation matrix
// artifacts present in the output directory, sorted by filename.
func (s *CSVStore) ListMatrices() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "correlation_*.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to list matrices: %w", err)
	}
	names := make([]string, 0, len(matches))
	for _, path := range matches {
		names = append(names, strings.TrimSuffix(filepath.Base(path), ".csv"))
	}
	return names, nil
}

func (s *CSVStore) readAll(name string) ([][]string, error) {
	f, err := os.Open(s.Path(name))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return records, nil
}
