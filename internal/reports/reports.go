// Package reports formats correlation artifacts for display: ranked-pair
// tables and directory-wide summaries over stored correlation CSVs.
package reports

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog"

	"github.com/quantfold/sectorscope/internal/correlation"
	"github.com/quantfold/sectorscope/internal/domain"
	"github.com/quantfold/sectorscope/internal/labels"
)

// MatrixLoader is the slice of the store the reporter needs.
type MatrixLoader interface {
	ListMatrices() ([]string, error)
	LoadMatrix(name string) (*correlation.Matrix, error)
}

// DeriveTitle infers a human-friendly title from an artifact stem, e.g.
// "correlation_annual" -> "Annual % Correlation".
func DeriveTitle(stem string) string {
	s := strings.ToLower(stem)
	switch {
	case strings.Contains(s, "annual"):
		return "Annual % Correlation"
	case strings.Contains(s, "yoy"), strings.Contains(s, "year"):
		return "Year-over-Year % Correlation"
	case strings.Contains(s, "vol"):
		return "Volatility Correlation"
	case strings.Contains(s, "quarter"):
		return "Quarterly % Correlation"
	case strings.Contains(s, "month"):
		return "Monthly % Correlation"
	case strings.Contains(s, "rolling"):
		return "Rolling % Correlation"
	default:
		return "Daily % Correlation"
	}
}

// WritePairs prints a ranked-pair table. Pairs are expected to already
// carry display labels.
func WritePairs(w io.Writer, heading string, pairs []domain.RankedPair) error {
	if _, err := fmt.Fprintln(w, heading); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Sector1\tSector2\tCorrelation")
	for _, p := range pairs {
		fmt.Fprintf(tw, "%s\t%s\t%.4f\n", p.SymbolA, p.SymbolB, p.Correlation)
	}
	return tw.Flush()
}

// Reporter summarizes correlation artifacts in an output directory.
type Reporter struct {
	store MatrixLoader
	topN  int
	log   zerolog.Logger
}

// NewReporter creates a reporter over a matrix store.
func NewReporter(store MatrixLoader, topN int, log zerolog.Logger) *Reporter {
	if topN <= 0 {
		topN = correlation.DefaultTopN
	}
	return &Reporter{
		store: store,
		topN:  topN,
		log:   log.With().Str("component", "reporter").Logger(),
	}
}

// AnalyzeAll loads every correlation artifact in the store, printing the
// top-N least and most correlated sector pairs per artifact. Non-square
// artifacts are skipped with a diagnostic; zero artifacts is an error so
// the command surface can exit non-zero.
func (r *Reporter) AnalyzeAll(w io.Writer) error {
	names, err := r.store.ListMatrices()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return fmt.Errorf("no correlation artifacts found")
	}

	for _, name := range names {
		if err := r.analyzeOne(w, name); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reporter) analyzeOne(w io.Writer, name string) error {
	title := DeriveTitle(name)
	fmt.Fprintf(w, "\n=== %s ===\n", name)
	fmt.Fprintf(w, "Title: %s\n\n", title)

	m, err := r.store.LoadMatrix(name)
	if err != nil {
		var shapeErr *domain.ShapeMismatchError
		if errors.As(err, &shapeErr) {
			r.log.Warn().Str("name", name).Int("rows", shapeErr.Rows).Int("cols", shapeErr.Cols).
				Msg("Skipping non-square matrix")
			fmt.Fprintf(w, "skipped: %v\n", err)
			return nil
		}
		return err
	}

	least, most := correlation.RankPairs(m, r.topN)
	if err := WritePairs(w, fmt.Sprintf("Top %d least-correlated pairs:", r.topN), labels.LabelPairs(least)); err != nil {
		return err
	}
	fmt.Fprintln(w)
	if err := WritePairs(w, fmt.Sprintf("Top %d most-correlated pairs:", r.topN), labels.LabelPairs(most)); err != nil {
		return err
	}
	return nil
}
