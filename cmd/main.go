// cmd/main.go is the application entry point.
// It wires together all layers and runs the HTTP server, the confirmation
// sweep scheduler and the notification worker until a shutdown signal.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/Shivanand-hulikatti/crew-planner/internal/config"
	"github.com/Shivanand-hulikatti/crew-planner/internal/database"
	"github.com/Shivanand-hulikatti/crew-planner/internal/handler"
	"github.com/Shivanand-hulikatti/crew-planner/internal/metrics"
	"github.com/Shivanand-hulikatti/crew-planner/internal/model"
	"github.com/Shivanand-hulikatti/crew-planner/internal/notification"
	"github.com/Shivanand-hulikatti/crew-planner/internal/repository"
	"github.com/Shivanand-hulikatti/crew-planner/internal/scheduler"
	"github.com/Shivanand-hulikatti/crew-planner/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("crew planner stopped with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)
	readiness := map[string]func(context.Context) error{}

	// ── 1. Storage ────────────────────────────────────────────────────────
	var store service.EventStore
	if cfg.Database.URL == "" {
		logger.Warn("DATABASE_URL not set, events are kept in memory")
		store = repository.NewMemoryEventRepository()
	} else {
		pool, err := database.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("database: %w", err)
		}
		logger.Info("connected to PostgreSQL")
		readiness["postgres"] = pool.Ping
		store = repository.NewEventRepository(pool)
	}

	// ── 2. Notifications and sweep lock ───────────────────────────────────
	var (
		notifier service.Notifier = notification.NewLogNotifier(logger)
		lock     scheduler.Locker = &scheduler.LocalLock{}
		worker   *asynq.Server
	)
	rdb, err := database.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if rdb != nil {
		defer rdb.Close()
		readiness["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		lock = scheduler.NewRedisLock(rdb, scheduler.SweepLockKey)

		connOpt, err := asynq.ParseRedisURI(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		queue := asynq.NewClient(connOpt)
		defer queue.Close()
		notifier = notification.NewQueueNotifier(queue, logger, m)
		worker = asynq.NewServer(connOpt, asynq.Config{
			Concurrency: cfg.Redis.WorkerConcurrency,
			Queues:      map[string]int{notification.Queue: 1},
		})
		logger.Info("connected to Redis, notifications are queued")
	} else {
		logger.Warn("REDIS_URL not set, notifications are only logged")
	}

	// ── 3. Wire up layers ────────────────────────────────────────────────
	managers := make([]model.UserKey, 0, len(cfg.CrewManagers))
	for _, raw := range cfg.CrewManagers {
		key, err := model.ParseUserKey(raw)
		if err != nil {
			return fmt.Errorf("CREW_MANAGER_KEYS: %w", err)
		}
		managers = append(managers, key)
	}
	eventSvc, err := service.NewEventService(store, notifier,
		service.WithLogger(logger),
		service.WithMetrics(m),
		service.WithCrewManagers(managers...),
	)
	if err != nil {
		return err
	}
	eventHandler := handler.NewEventHandler(eventSvc, logger)

	loc, err := time.LoadLocation(cfg.Sweep.Timezone)
	if err != nil {
		return fmt.Errorf("SWEEP_TIMEZONE: %w", err)
	}
	sweeps, err := scheduler.New(
		scheduler.NewJob(eventSvc, lock, cfg.Sweep.LockTTL, logger),
		cfg.Sweep.Schedule, loc, logger,
	)
	if err != nil {
		return err
	}

	// ── 4. Build the router ───────────────────────────────────────────────
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(handler.Logger(logger))  // structured access log
	r.Use(handler.CORS)
	r.Use(handler.Identity)

	r.Get("/health", handler.HealthCheck)
	r.Get("/ready", handler.ReadinessCheck(readiness))
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	r.Mount("/events", eventHandler.Routes())

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ── 5. Run until SIGINT or SIGTERM ────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return sweeps.Run(gctx)
	})
	if worker != nil {
		g.Go(func() error {
			mux := notification.NewServeMux(notification.NewTaskHandler(notification.NewLogSender(logger), logger, m))
			if err := worker.Start(mux); err != nil {
				return fmt.Errorf("notification worker: %w", err)
			}
			<-gctx.Done()
			worker.Shutdown()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
