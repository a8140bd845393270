package domain

import (
	"errors"
	"fmt"
)

// ErrInsufficientData is returned when fewer than 2 usable symbols (or fewer
// than 2 usable rows in a view) are available. Correlation is undefined below
// that, so this is fatal to the run.
var ErrInsufficientData = errors.New("insufficient data for correlation (need at least 2 usable series)")

// FetchError wraps a per-symbol price source failure. Fetch failures are
// non-fatal: the builder skips the symbol and reports the error alongside
// the price table.
type FetchError struct {
	Symbol string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed for %s: %v", e.Symbol, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// UnknownViewError is returned when a caller requests an unsupported view name.
type UnknownViewError struct {
	View string
}

func (e *UnknownViewError) Error() string {
	return fmt.Sprintf("unknown view: %q", e.View)
}

// ShapeMismatchError is returned when a loaded matrix is not square or its
// row and column labels disagree. The correlation engine always produces
// square output, so this only surfaces at the load/report boundary.
type ShapeMismatchError struct {
	Name string
	Rows int
	Cols int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%s: not a square matrix (%dx%d)", e.Name, e.Rows, e.Cols)
}
