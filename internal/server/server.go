// Package server provides the read-only HTTP surface over run artifacts.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/quantfold/sectorscope/internal/store"
)

// Config holds server configuration.
type Config struct {
	Port    int
	Store   *store.CSVStore
	Refresh RefreshFunc
	Views   []string
	TopN    int
	Log     zerolog.Logger
}

// RefreshFunc triggers a pipeline run. nil disables the refresh endpoint.
type RefreshFunc func(ctx context.Context) error

// Server serves matrices, ranked pairs and heatmaps over HTTP.
type Server struct {
	router *chi.Mux
	server *http.Server
	cfg    Config
	log    zerolog.Logger
}

// New creates the HTTP server and mounts all routes.
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		log:    cfg.Log.With().Str("component", "server").Logger(),
	}

	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
	}))

	h := &handlers{store: cfg.Store, refresh: cfg.Refresh, views: cfg.Views, topN: cfg.TopN, startup: time.Now(), log: s.log}

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", h.health)
		r.Get("/views", h.listViews)
		r.Get("/correlation/{view}", h.matrix)
		r.Get("/pairs/{view}", h.pairs)
		r.Post("/refresh", h.triggerRefresh)
	})
	s.router.Get("/heatmaps/{view}.png", h.heatmap)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Start begins serving. Blocks until the server stops.
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("HTTP server listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
