// Package pipeline orchestrates a full correlation run: build the price
// table, then per view transform, correlate, rank, label, persist and
// render. Views are independent of each other.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quantfold/sectorscope/internal/correlation"
	"github.com/quantfold/sectorscope/internal/domain"
	"github.com/quantfold/sectorscope/internal/labels"
	"github.com/quantfold/sectorscope/internal/marketdata"
	"github.com/quantfold/sectorscope/internal/reports"
	"github.com/quantfold/sectorscope/internal/store"
	"github.com/quantfold/sectorscope/internal/views"
)

// Renderer draws a correlation heatmap to a file. Implemented by
// render.Heatmap; nil disables rendering.
type Renderer interface {
	Render(m *correlation.Matrix, labels []string, title, path string) error
}

// Uploader publishes the output directory after a successful run.
// Implemented by reliability.ArtifactUploader; nil disables backup.
type Uploader interface {
	UploadDir(ctx context.Context, dir string) error
}

// Config holds one run's parameters.
type Config struct {
	Universe     []string
	LookbackDays int // calendar days of history to request
	Views        []string
	Params       views.Params
	TopN         int
}

// Pipeline wires the run stages together.
type Pipeline struct {
	builder  *marketdata.Builder
	csv      *store.CSVStore
	cache    *store.ResultCache // optional
	renderer Renderer           // optional
	uploader Uploader           // optional
	cfg      Config
	now      func() time.Time
	log      zerolog.Logger
}

// Result summarizes a completed run.
type Result struct {
	RunID    string
	Views    []string
	Skipped  []marketdata.SkippedSymbol
	Duration time.Duration
}

// New creates a pipeline. cache, renderer and uploader may each be nil.
func New(
	builder *marketdata.Builder,
	csv *store.CSVStore,
	cache *store.ResultCache,
	renderer Renderer,
	uploader Uploader,
	cfg Config,
	log zerolog.Logger,
) *Pipeline {
	if len(cfg.Views) == 0 {
		cfg.Views = views.All
	}
	if cfg.TopN <= 0 {
		cfg.TopN = correlation.DefaultTopN
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 3650
	}
	return &Pipeline{
		builder:  builder,
		csv:      csv,
		cache:    cache,
		renderer: renderer,
		uploader: uploader,
		cfg:      cfg,
		now:      time.Now,
		log:      log.With().Str("component", "pipeline").Logger(),
	}
}

// Run executes one full correlation run, writing artifacts into the store's
// directory and printing ranked-pair reports to out. Fatal error kinds
// (insufficient data, unknown view) propagate; per-symbol fetch failures
// are reported in the result only.
func (p *Pipeline) Run(ctx context.Context, out io.Writer) (*Result, error) {
	runID := uuid.NewString()
	start := p.now()
	log := p.log.With().Str("run_id", runID).Logger()

	// Validate requested views up front: an unsupported name fails the run
	// before any network traffic.
	for _, name := range p.cfg.Views {
		if !views.IsSupported(name) {
			return nil, &domain.UnknownViewError{View: name}
		}
	}

	if err := p.csv.Purge(); err != nil {
		return nil, fmt.Errorf("failed to purge stale outputs: %w", err)
	}

	end := start.Format("2006-01-02")
	from := start.AddDate(0, 0, -p.cfg.LookbackDays).Format("2006-01-02")
	log.Info().
		Strs("universe", p.cfg.Universe).
		Str("from", from).
		Str("to", end).
		Msg("Building price table")

	table, skipped, err := p.builder.BuildPriceTable(ctx, p.cfg.Universe, from, end)
	if err != nil {
		return nil, err
	}
	for _, sk := range skipped {
		fmt.Fprintf(out, "skipped %s: %v\n", sk.Symbol, sk.Reason)
	}

	inputHash := store.HashInputs(table.Symbols, from, end)

	for _, name := range p.cfg.Views {
		if err := p.runView(log, out, table, name, inputHash); err != nil {
			return nil, err
		}
	}

	if p.uploader != nil {
		if err := p.uploader.UploadDir(ctx, p.csv.Dir()); err != nil {
			log.Warn().Err(err).Msg("Artifact backup failed")
		}
	}

	res := &Result{
		RunID:    runID,
		Views:    p.cfg.Views,
		Skipped:  skipped,
		Duration: p.now().Sub(start),
	}
	log.Info().Dur("duration", res.Duration).Int("views", len(res.Views)).Msg("Run complete")
	return res, nil
}

// RunOnce runs the pipeline and discards the result summary. It satisfies
// the scheduler's Runner contract.
func (p *Pipeline) RunOnce(ctx context.Context, out io.Writer) error {
	_, err := p.Run(ctx, out)
	return err
}

// runView processes one view end to end. The correlation step consults the
// result cache; the return table is always recomputed and stored since the
// transforms are cheap relative to a fetch.
func (p *Pipeline) runView(log zerolog.Logger, out io.Writer, table *domain.PriceTable, name, inputHash string) error {
	rt, err := views.Compute(table, name, p.cfg.Params)
	if err != nil {
		return err
	}
	if err := p.csv.StoreTable(store.ReturnsName(name), rt); err != nil {
		return err
	}

	var m *correlation.Matrix
	var least, most []domain.RankedPair
	cached := false
	if p.cache != nil {
		m, least, most, cached = p.cache.Get(name, inputHash)
	}
	if !cached {
		m = correlation.Compute(rt)
		least, most = correlation.RankPairs(m, p.cfg.TopN)
		if p.cache != nil {
			if err := p.cache.Set(name, inputHash, m, least, most); err != nil {
				log.Warn().Err(err).Str("view", name).Msg("Failed to cache result")
			}
		}
	}

	corrName := store.CorrelationName(name)
	if err := p.csv.StoreMatrix(corrName, m); err != nil {
		return err
	}

	title := reports.DeriveTitle(corrName)
	if p.renderer != nil {
		pngPath := p.csv.Path(corrName)
		pngPath = pngPath[:len(pngPath)-len(".csv")] + ".png"
		if err := p.renderer.Render(m, labels.Sectors(m.Symbols), title, pngPath); err != nil {
			return fmt.Errorf("failed to render %s: %w", corrName, err)
		}
	}

	fmt.Fprintf(out, "\n=== %s ===\n", title)
	if err := reports.WritePairs(out, fmt.Sprintf("Top %d least-correlated pairs:", p.cfg.TopN), labels.LabelPairs(least)); err != nil {
		return err
	}
	fmt.Fprintln(out)
	if err := reports.WritePairs(out, fmt.Sprintf("Top %d most-correlated pairs:", p.cfg.TopN), labels.LabelPairs(most)); err != nil {
		return err
	}

	log.Info().
		Str("view", name).
		Int("rows", rt.NumRows()).
		Int("symbols", rt.NumSymbols()).
		Bool("cached", cached).
		Msg("View processed")
	return nil
}
