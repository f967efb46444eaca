package batch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestPoolRunsSubmittedJobs(t *testing.T) {
	pool := NewPool(2, 0, time.Millisecond, zerolog.Nop())

	var count int64
	for i := 0; i < 10; i++ {
		err := pool.Submit(func(ctx context.Context) error {
			atomic.AddInt64(&count, 1)
			return nil
		}, nil)
		require.NoError(t, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, pool.Shutdown(ctx))
	require.EqualValues(t, 10, atomic.LoadInt64(&count))
}

func TestPoolRetriesFailedJobs(t *testing.T) {
	pool := NewPool(1, 2, time.Millisecond, zerolog.Nop())

	var attempts int64
	var exhausted int64
	err := pool.Submit(func(ctx context.Context) error {
		if atomic.AddInt64(&attempts, 1) < 3 {
			return errors.New("transient")
		}
		return nil
	}, func(error) {
		atomic.AddInt64(&exhausted, 1)
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, pool.Shutdown(ctx))
	require.EqualValues(t, 3, atomic.LoadInt64(&attempts))
	// Jobs that eventually succeed never report exhaustion.
	require.EqualValues(t, 0, atomic.LoadInt64(&exhausted))
}

func TestPoolReportsExhaustionAfterConfiguredRetries(t *testing.T) {
	pool := NewPool(1, 1, time.Millisecond, zerolog.Nop())

	var attempts int64
	var exhausted int64
	var lastErr error
	err := pool.Submit(func(ctx context.Context) error {
		atomic.AddInt64(&attempts, 1)
		return errors.New("permanent")
	}, func(err error) {
		atomic.AddInt64(&exhausted, 1)
		lastErr = err
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, pool.Shutdown(ctx))
	require.EqualValues(t, 2, atomic.LoadInt64(&attempts))
	require.EqualValues(t, 1, atomic.LoadInt64(&exhausted))
	require.EqualError(t, lastErr, "permanent")
}

func TestPoolRejectsSubmitAfterShutdown(t *testing.T) {
	pool := NewPool(1, 0, time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, pool.Shutdown(ctx))

	err := pool.Submit(func(ctx context.Context) error { return nil }, nil)
	require.ErrorIs(t, err, ErrPoolClosed)
}

func TestPoolShutdownDuringBlockedSubmit(t *testing.T) {
	pool := NewPool(1, 0, time.Millisecond, zerolog.Nop())

	release := make(chan struct{})
	waiting := func(ctx context.Context) error {
		<-release
		return nil
	}

	// Occupy the single worker and fill the buffered queue so the next
	// Submit blocks in the channel send.
	for i := 0; i < 5; i++ {
		require.NoError(t, pool.Submit(waiting, nil))
	}

	blocked := make(chan error, 1)
	go func() {
		blocked <- pool.Submit(waiting, nil)
	}()
	time.Sleep(20 * time.Millisecond)

	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		done <- pool.Shutdown(ctx)
	}()
	close(release)

	require.NoError(t, <-done)
	// The blocked Submit must finish cleanly instead of panicking on a
	// closed channel; either outcome is acceptable depending on timing.
	err := <-blocked
	if err != nil {
		require.ErrorIs(t, err, ErrPoolClosed)
	}
}
