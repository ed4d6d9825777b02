// Package dispatch runs store mutations handed off by editor sessions. Callers never
// wait on a mutation: they enqueue it and learn the result through the done callback.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/inqbatorchris/aimee-sub007/internal/metrics"
)

var (
	ErrQueueFull = errors.New("mutation queue is full")
	ErrStopped   = errors.New("mutation dispatcher stopped")
)

type task struct {
	op   string
	fn   func(ctx context.Context) error
	done func(err error)
}

type Worker struct {
	log     zerolog.Logger
	queue   chan task
	workers int
	timeout time.Duration
	metrics *metrics.Metrics

	mu      sync.RWMutex
	stopped bool
}

type Options struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

func New(log zerolog.Logger, opts Options, m *metrics.Metrics) *Worker {
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Worker{
		log:     log,
		queue:   make(chan task, queueSize),
		workers: workers,
		timeout: timeout,
		metrics: m,
	}
}

// Dispatch enqueues fn without blocking. done, if non-nil, is called from a worker
// goroutine with fn's result. Nothing is retried.
func (w *Worker) Dispatch(op string, fn func(ctx context.Context) error, done func(err error)) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return ErrStopped
	}

	select {
	case w.queue <- task{op: op, fn: fn, done: done}:
		return nil
	default:
		w.metrics.IncMutationRejected(op)
		w.log.Warn().Str("op", op).Int("queue_size", cap(w.queue)).Msg("mutation queue full")
		return fmt.Errorf("%s: %w", op, ErrQueueFull)
	}
}

// Run processes the queue until ctx is done. Tasks still queued at that point are
// drained with their own timeout so accepted mutations are not lost on shutdown.
func (w *Worker) Run(ctx context.Context) {
	if w == nil {
		return
	}

	var wg sync.WaitGroup
	for i := 0; i < w.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case t := <-w.queue:
					w.runTask(context.WithoutCancel(ctx), t)
				}
			}
		}()
	}
	wg.Wait()

	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()

	drained := 0
	for {
		select {
		case t := <-w.queue:
			w.runTask(context.WithoutCancel(ctx), t)
			drained++
		default:
			if drained > 0 {
				w.log.Info().Int("drained", drained).Msg("mutation queue drained on shutdown")
			}
			return
		}
	}
}

func (w *Worker) runTask(parent context.Context, t task) {
	ctx, cancel := context.WithTimeout(parent, w.timeout)
	defer cancel()

	start := time.Now()
	err := safeCall(ctx, t.fn)
	elapsed := time.Since(start)
	w.metrics.ObserveMutation(t.op, err, elapsed)

	if err != nil {
		w.log.Error().Err(err).Str("op", t.op).Int64("duration_ms", elapsed.Milliseconds()).Msg("mutation failed")
	} else {
		w.log.Debug().Str("op", t.op).Int64("duration_ms", elapsed.Milliseconds()).Msg("mutation applied")
	}

	if t.done != nil {
		t.done(err)
	}
}

func safeCall(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mutation panicked: %v", r)
		}
	}()
	return fn(ctx)
}
