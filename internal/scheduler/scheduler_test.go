package scheduler

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingRunner struct {
	started chan struct{}
	release chan struct{}
	runs    atomic.Int32
}

func (r *blockingRunner) RunOnce(ctx context.Context, out io.Writer) error {
	r.runs.Add(1)
	close(r.started)
	<-r.release
	return nil
}

func TestStart_RejectsInvalidSpec(t *testing.T) {
	s := New(&blockingRunner{}, io.Discard, zerolog.New(nil).Level(zerolog.Disabled))
	err := s.Start("not a cron spec")
	require.Error(t, err)
}

func TestRefresh_SkipsOverlappingRuns(t *testing.T) {
	runner := &blockingRunner{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := New(runner, io.Discard, zerolog.New(nil).Level(zerolog.Disabled))

	go s.refresh()
	select {
	case <-runner.started:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh never started")
	}

	// A second trigger while the first is in flight is a no-op.
	s.refresh()
	assert.Equal(t, int32(1), runner.runs.Load())

	close(runner.release)

	// Once the first run finishes the guard resets.
	assert.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return !s.running
	}, 2*time.Second, 10*time.Millisecond)
}
