package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quote_assistant_backend/internal/bootstrap"
	"quote_assistant_backend/internal/events"
	apphttp "quote_assistant_backend/internal/http"
	"quote_assistant_backend/internal/http/router"
	"quote_assistant_backend/internal/inbound"
	"quote_assistant_backend/internal/metrics"
	"quote_assistant_backend/internal/scheduler"
	"quote_assistant_backend/internal/webhook"
	"quote_assistant_backend/migrations"
	"quote_assistant_backend/platform/config"
	"quote_assistant_backend/platform/db"
	"quote_assistant_backend/platform/logger"
	"quote_assistant_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	var pool *pgxpool.Pool
	if err := bootstrap.WithRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	if err := db.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)
	metrics.Subscribe(eventBus)

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	pipeline, err := bootstrap.Build(ctx, cfg, pool, eventBus, val, log)
	if err != nil {
		log.Error("failed to initialize modules", "error", err)
		panic("failed to initialize modules: " + err.Error())
	}
	defer pipeline.Close()

	modules := []apphttp.Module{
		pipeline.Catalog,
		pipeline.Conversation,
		pipeline.LedgerModule,
	}

	var asyncDispatcher *inbound.AsyncDispatcher
	if pipeline.Processor != nil {
		asyncDispatcher = inbound.NewAsyncDispatcher(pipeline.Processor, inbound.DefaultProcessTimeout, log)
		dispatcher, closeQueue := inboundDispatcher(cfg, asyncDispatcher, log)
		if closeQueue != nil {
			defer closeQueue()
		}
		modules = append(modules, webhook.NewModule(cfg, dispatcher, asyncDispatcher, val, log))
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules:  modules,
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		if asyncDispatcher != nil {
			asyncDispatcher.Wait()
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// inboundDispatcher queues webhook messages on asynq when Redis is set,
// falling back to in-process handling.
func inboundDispatcher(cfg config.RedisConfig, fallback *inbound.AsyncDispatcher, log *logger.Logger) (inbound.Dispatcher, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; inbound messages are processed in-process")
		return fallback, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize inbound queue client", "error", err)
		return fallback, nil
	}

	return client, func() {
		_ = client.Close()
	}
}
