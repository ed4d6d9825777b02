package dispatch

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestWorker(opts Options) *Worker {
	return New(zerolog.New(io.Discard), opts, nil)
}

func TestDispatch_RunsTaskAndReportsResult(t *testing.T) {
	w := newTestWorker(Options{Workers: 2})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	results := make(chan error, 2)
	boom := errors.New("boom")
	if err := w.Dispatch("ok", func(ctx context.Context) error { return nil }, func(err error) { results <- err }); err != nil {
		t.Fatal(err)
	}
	if err := w.Dispatch("fail", func(ctx context.Context) error { return boom }, func(err error) { results <- err }); err != nil {
		t.Fatal(err)
	}

	var got []error
	for i := 0; i < 2; i++ {
		select {
		case err := <-results:
			got = append(got, err)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for task results")
		}
	}
	var sawNil, sawBoom bool
	for _, err := range got {
		if err == nil {
			sawNil = true
		}
		if errors.Is(err, boom) {
			sawBoom = true
		}
	}
	if !sawNil || !sawBoom {
		t.Fatalf("expected one success and one failure, got %v", got)
	}
}

func TestDispatch_QueueFull(t *testing.T) {
	w := newTestWorker(Options{Workers: 1, QueueSize: 1})

	noop := func(ctx context.Context) error { return nil }
	if err := w.Dispatch("first", noop, nil); err != nil {
		t.Fatal(err)
	}
	if err := w.Dispatch("second", noop, nil); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestDispatch_PanicBecomesError(t *testing.T) {
	w := newTestWorker(Options{Workers: 1})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	done := make(chan error, 1)
	_ = w.Dispatch("panics", func(ctx context.Context) error { panic("nope") }, func(err error) { done <- err })

	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("expected panic to surface as error")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out")
	}
}

func TestRun_DrainsQueueOnShutdown(t *testing.T) {
	w := newTestWorker(Options{Workers: 1, QueueSize: 8})

	var mu sync.Mutex
	ran := 0
	for i := 0; i < 3; i++ {
		_ = w.Dispatch("queued", func(ctx context.Context) error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			mu.Lock()
			ran++
			mu.Unlock()
			return nil
		}, nil)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Run(ctx)

	mu.Lock()
	defer mu.Unlock()
	if ran != 3 {
		t.Fatalf("expected all queued tasks to run, got %d", ran)
	}
	if err := w.Dispatch("late", func(ctx context.Context) error { return nil }, nil); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped after shutdown, got %v", err)
	}
}
