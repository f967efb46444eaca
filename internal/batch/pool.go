// Package batch runs background file-processing jobs on a bounded worker pool
// with per-job retry and exponential backoff.
package batch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrPoolClosed is returned when submitting to a pool that has been shut down.
var ErrPoolClosed = errors.New("worker pool closed")

// Job is a unit of background work. It is retried on error up to the pool's
// configured attempt count.
type Job func(ctx context.Context) error

type task struct {
	run Job
	// onExhausted fires once when every attempt has failed, so the caller
	// can record a terminal outcome for the job.
	onExhausted func(error)
}

// Pool executes jobs on a fixed number of workers.
type Pool struct {
	jobs    chan task
	wg      sync.WaitGroup
	retries int
	backoff time.Duration
	logger  zerolog.Logger

	mu         sync.Mutex
	closed     bool
	submitters sync.WaitGroup
	cancel     context.CancelFunc
}

// NewPool starts workers goroutines consuming submitted jobs. Retries is the
// number of additional attempts after the first failure; backoff doubles after
// each failed attempt.
func NewPool(workers, retries int, backoff time.Duration, logger zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if retries < 0 {
		retries = 0
	}
	if backoff <= 0 {
		backoff = time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		jobs:    make(chan task, workers*4),
		retries: retries,
		backoff: backoff,
		logger:  logger.With().Str("component", "batch_pool").Logger(),
		cancel:  cancel,
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker(ctx)
	}

	return p
}

// Submit enqueues a job, blocking while the queue is full. onExhausted may be
// nil; otherwise it runs exactly once if the job fails on every attempt.
// The submitter is registered before the queue send so Shutdown cannot close
// the channel underneath a blocked Submit.
func (p *Pool) Submit(job Job, onExhausted func(error)) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.submitters.Add(1)
	p.mu.Unlock()
	defer p.submitters.Done()

	p.jobs <- task{run: job, onExhausted: onExhausted}
	return nil
}

// Shutdown stops accepting jobs, lets in-flight submitters finish their queue
// sends, and waits for workers to drain, or for ctx to expire, whichever comes
// first.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	// Workers keep draining while blocked submitters complete their sends.
	p.submitters.Wait()
	close(p.jobs)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		p.cancel()
		return ctx.Err()
	}
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for t := range p.jobs {
		p.run(ctx, t)
	}
}

func (p *Pool) run(ctx context.Context, t task) {
	delay := p.backoff
	for attempt := 0; ; attempt++ {
		err := t.run(ctx)
		if err == nil {
			return
		}
		if attempt >= p.retries || ctx.Err() != nil {
			p.logger.Error().Err(err).Int("attempts", attempt+1).Msg("job failed permanently")
			if t.onExhausted != nil {
				t.onExhausted(err)
			}
			return
		}

		p.logger.Warn().Err(err).Int("attempt", attempt+1).Dur("retry_in", delay).Msg("job failed, retrying")
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			if t.onExhausted != nil {
				t.onExhausted(err)
			}
			return
		}
		delay *= 2
	}
}
