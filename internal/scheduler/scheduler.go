// Package scheduler triggers periodic pipeline refreshes in serve mode.
package scheduler

import (
	"context"
	"io"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Runner is the slice of the pipeline the scheduler needs.
type Runner interface {
	RunOnce(ctx context.Context, out io.Writer) error
}

// Scheduler re-runs the pipeline on a cron schedule. Overlapping runs are
// skipped: a refresh that fires while the previous one is still going is a
// no-op, not a queue entry.
type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	out     io.Writer
	running bool
	mu      sync.Mutex
	log     zerolog.Logger
}

// New creates a scheduler over a pipeline runner.
func New(runner Runner, out io.Writer, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		runner: runner,
		out:    out,
		log:    log.With().Str("component", "scheduler").Logger(),
	}
}

// Start registers the refresh job under spec (standard 5-field cron
// expression) and starts the cron loop.
func (s *Scheduler) Start(spec string) error {
	_, err := s.cron.AddFunc(spec, s.refresh)
	if err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info().Str("schedule", spec).Msg("Scheduled pipeline refresh")
	return nil
}

// Stop stops the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) refresh() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.log.Warn().Msg("Previous refresh still running, skipping")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.log.Info().Msg("Starting scheduled refresh")
	if err := s.runner.RunOnce(context.Background(), s.out); err != nil {
		s.log.Error().Err(err).Msg("Scheduled refresh failed")
		return
	}
	s.log.Info().Msg("Scheduled refresh complete")
}
