package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/inqbatorchris/aimee-sub007/internal/config"
	"github.com/inqbatorchris/aimee-sub007/internal/db"
	"github.com/inqbatorchris/aimee-sub007/internal/dispatch"
	"github.com/inqbatorchris/aimee-sub007/internal/httpapi"
	"github.com/inqbatorchris/aimee-sub007/internal/metrics"
	"github.com/inqbatorchris/aimee-sub007/internal/session"
	"github.com/inqbatorchris/aimee-sub007/internal/store"
	"github.com/inqbatorchris/aimee-sub007/internal/surface"
)

func main() {
	cfg, err := config.Load(os.Getenv)
	if err != nil {
		fallback := httpapi.NewLogger("info")
		fallback.Fatal().Err(err).Msg("invalid configuration")
	}

	logger := httpapi.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		pool   *db.Pool
		stores surface.Stores
	)
	if cfg.DatabaseURL != "" {
		p, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer p.Close()
		pool = p
		stores = store.New(p.Queries(), store.Options{ListLimit: cfg.ListLimit})
	} else {
		logger.Warn().Msg("DATABASE_URL not set; using in-memory store")
		stores = store.NewMemory()
	}

	m := metrics.New()

	worker := dispatch.New(logger, dispatch.Options{
		Workers:   cfg.Dispatch.Workers,
		QueueSize: cfg.Dispatch.QueueSize,
		Timeout:   cfg.Dispatch.Timeout,
	}, m)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Run(ctx)
	}()

	sessions := session.NewRegistry(logger, func(n surface.Notifier) *surface.Surface {
		return surface.New(logger, stores, worker, n, surface.Options{
			Taxonomy: cfg.Taxonomy,
			Metrics:  m,
			Filter:   cfg.DefaultFilter,
		})
	}, session.Options{
		TTL:       cfg.Session.TTL,
		InboxSize: cfg.Session.InboxSize,
		Metrics:   m,
	})
	go sessions.Run(ctx)

	h := httpapi.NewHandler(logger, pool, sessions, m)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("topology-editor listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	// Let queued mutations finish before the pool closes.
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		logger.Warn().Msg("dispatcher did not drain before shutdown deadline")
	}
	logger.Info().Msg("shutdown complete")
}
