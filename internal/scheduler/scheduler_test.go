package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/crew-planner/internal/model"
)

type countingSweeper struct {
	runs     int
	err      error
	deadline bool
}

func (s *countingSweeper) SweepConfirmations(ctx context.Context) (model.SweepResult, error) {
	s.runs++
	_, s.deadline = ctx.Deadline()
	return model.SweepResult{}, s.err
}

type stubLock struct {
	ok       bool
	err      error
	released int
}

func (l *stubLock) TryLock(context.Context, time.Duration) (func(context.Context) error, bool, error) {
	if l.err != nil || !l.ok {
		return nil, false, l.err
	}
	return func(context.Context) error {
		l.released++
		return nil
	}, true, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestJobRun(t *testing.T) {
	tests := []struct {
		name         string
		lock         *stubLock
		sweepErr     error
		wantRuns     int
		wantReleases int
	}{
		{name: "sweeps and releases when the lock is free", lock: &stubLock{ok: true}, wantRuns: 1, wantReleases: 1},
		{name: "releases after a failed sweep", lock: &stubLock{ok: true}, sweepErr: errors.New("boom"), wantRuns: 1, wantReleases: 1},
		{name: "skips when another replica holds the lock", lock: &stubLock{}, wantRuns: 0},
		{name: "skips when the lock store is down", lock: &stubLock{err: errors.New("redis down")}, wantRuns: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sweeper := &countingSweeper{err: tt.sweepErr}
			NewJob(sweeper, tt.lock, time.Minute, discardLogger()).Run(context.Background())

			assert.Equal(t, tt.wantRuns, sweeper.runs)
			assert.Equal(t, tt.wantReleases, tt.lock.released)
			if tt.wantRuns > 0 {
				assert.True(t, sweeper.deadline, "sweep should be bounded by the lock ttl")
			}
		})
	}
}

func TestLocalLock(t *testing.T) {
	var lock LocalLock
	ctx := context.Background()

	release, ok, err := lock.TryLock(ctx, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = lock.TryLock(ctx, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, release(ctx))
	_, ok, _ = lock.TryLock(ctx, time.Minute)
	assert.True(t, ok)
}

func TestNew(t *testing.T) {
	job := NewJob(&countingSweeper{}, &LocalLock{}, time.Minute, discardLogger())

	t.Run("rejects a malformed schedule", func(t *testing.T) {
		_, err := New(job, "every morning", time.UTC, discardLogger())
		assert.Error(t, err)
	})

	t.Run("stops when the context ends", func(t *testing.T) {
		s, err := New(job, "0 7 * * *", time.UTC, discardLogger())
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- s.Run(ctx) }()
		cancel()

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("scheduler did not stop")
		}
	})
}
