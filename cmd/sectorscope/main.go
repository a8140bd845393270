// Package main is the entry point for sectorscope, a sector-ETF correlation
// analyzer. It fetches historical closes for a fixed ETF universe, derives
// return views, computes pairwise correlation matrices, and writes CSV and
// heatmap artifacts.
//
// Modes:
//   - default: run the pipeline once and print ranked-pair reports
//   - -analyze <dir>: report over existing correlation CSVs without fetching
//   - -serve: HTTP surface over the artifacts plus a cron refresh
package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantfold/sectorscope/internal/clients/stooq"
	"github.com/quantfold/sectorscope/internal/config"
	"github.com/quantfold/sectorscope/internal/marketdata"
	"github.com/quantfold/sectorscope/internal/pipeline"
	"github.com/quantfold/sectorscope/internal/reliability"
	"github.com/quantfold/sectorscope/internal/render"
	"github.com/quantfold/sectorscope/internal/reports"
	"github.com/quantfold/sectorscope/internal/scheduler"
	"github.com/quantfold/sectorscope/internal/server"
	"github.com/quantfold/sectorscope/internal/store"
	"github.com/quantfold/sectorscope/pkg/logger"
)

func main() {
	serve := flag.Bool("serve", false, "serve artifacts over HTTP with scheduled refresh")
	analyzeDir := flag.String("analyze", "", "report over existing correlation CSVs in this directory")
	outDir := flag.String("out", "", "override the artifact output directory")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info", Pretty: true})
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *outDir != "" {
		cfg.OutputDir = *outDir
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.DevMode})
	logger.SetGlobalLogger(log)

	if *analyzeDir != "" {
		runAnalyze(*analyzeDir, cfg.TopN, log)
		return
	}

	p, closeFn := buildPipeline(cfg, log)
	defer closeFn()

	if *serve {
		runServe(cfg, p, log)
		return
	}

	if _, err := p.Run(context.Background(), os.Stdout); err != nil {
		log.Error().Err(err).Msg("Pipeline run failed")
		os.Exit(1)
	}
}

// runAnalyze is the report-only mode over an existing artifact directory.
// Exits non-zero when the directory holds no correlation artifacts.
func runAnalyze(dir string, topN int, log zerolog.Logger) {
	csvStore, err := store.NewCSVStore(dir, log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open artifact directory")
		os.Exit(1)
	}
	reporter := reports.NewReporter(csvStore, topN, log)
	if err := reporter.AnalyzeAll(os.Stdout); err != nil {
		log.Error().Err(err).Msg("Analysis failed")
		os.Exit(1)
	}
}

// buildPipeline wires the pipeline dependencies from configuration. The
// returned close function releases the SQLite handles.
func buildPipeline(cfg *config.Config, log zerolog.Logger) (*pipeline.Pipeline, func()) {
	csvStore, err := store.NewCSVStore(cfg.OutputDir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open output directory")
	}

	priceDB, err := store.OpenPriceDB(filepath.Join(cfg.DataDir, "prices.db"), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open price cache")
	}
	resultCache, err := store.OpenResultCache(filepath.Join(cfg.DataDir, "cache.db"), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open result cache")
	}

	builder := marketdata.NewBuilder(
		stooq.NewClient(log),
		priceDB,
		marketdata.Options{
			Concurrency:    cfg.FetchConcurrency,
			RequestsPerMin: cfg.FetchRequestsPerMin,
			FetchTimeout:   time.Duration(cfg.FetchTimeoutSec) * time.Second,
		},
		log,
	)

	var renderer pipeline.Renderer
	if cfg.RenderHeatmaps {
		renderer = render.NewHeatmap(log)
	}

	var uploader pipeline.Uploader
	if cfg.Backup != nil {
		up, err := reliability.NewArtifactUploader(context.Background(), cfg.Backup, log)
		if err != nil {
			log.Warn().Err(err).Msg("Artifact backup disabled")
		} else {
			uploader = up
		}
	}

	p := pipeline.New(builder, csvStore, resultCache, renderer, uploader, pipeline.Config{
		Universe:     cfg.Universe,
		LookbackDays: cfg.LookbackDays,
		Views:        cfg.Views,
		Params:       cfg.ViewParams(),
		TopN:         cfg.TopN,
	}, log)

	return p, func() {
		priceDB.Close()
		resultCache.Close()
	}
}

// runServe starts the HTTP surface and the cron refresh, then blocks until
// SIGINT/SIGTERM.
func runServe(cfg *config.Config, p *pipeline.Pipeline, log zerolog.Logger) {
	csvStore, err := store.NewCSVStore(cfg.OutputDir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open output directory")
	}

	srv := server.New(server.Config{
		Port:  cfg.Port,
		Store: csvStore,
		Refresh: func(ctx context.Context) error {
			return p.RunOnce(ctx, io.Discard)
		},
		Views: cfg.Views,
		TopN:  cfg.TopN,
		Log:   log,
	})

	sched := scheduler.New(p, io.Discard, log)
	if err := sched.Start(cfg.CronSchedule); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.CronSchedule).Msg("Invalid cron schedule")
	}

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")
	sched.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
}
