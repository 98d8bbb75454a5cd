package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"quote_assistant_backend/internal/bootstrap"
	"quote_assistant_backend/internal/events"
	"quote_assistant_backend/internal/metrics"
	"quote_assistant_backend/internal/scheduler"
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

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)
	metrics.Subscribe(eventBus)

	val := validator.New()

	pipeline, err := bootstrap.Build(ctx, cfg, pool, eventBus, val, log)
	if err != nil {
		log.Error("failed to initialize modules", "error", err)
		panic("failed to initialize modules: " + err.Error())
	}
	defer pipeline.Close()

	var wg sync.WaitGroup
	run := func(name string, fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info("scheduler job started", "job", name)
			fn(ctx)
			log.Info("scheduler job stopped", "job", name)
		}()
	}

	sweeper := scheduler.NewConversationSweeper(
		pipeline.Conversation.Service(),
		log,
		cfg.GetConversationSweepInterval(),
		cfg.GetConversationStaleAfter(),
	)
	run("conversation-sweeper", sweeper.Run)

	janitor := scheduler.NewLedgerJanitor(pipeline.Ledger, log, 0)
	run("ledger-janitor", janitor.Run)

	if worker := initWorker(cfg, pipeline, log); worker != nil {
		run("inbound-worker", worker.Run)
	}

	<-ctx.Done()
	log.Info("shutdown signal received, stopping scheduler")
	wg.Wait()
	eventBus.Wait()
}

func initWorker(cfg config.SchedulerConfig, pipeline *bootstrap.Pipeline, log *logger.Logger) *scheduler.Worker {
	if pipeline.Processor == nil {
		log.Warn("WhatsApp not configured; inbound worker disabled")
		return nil
	}
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; inbound worker disabled")
		return nil
	}

	worker, err := scheduler.NewWorker(cfg, pipeline.Processor, log)
	if err != nil {
		log.Error("failed to initialize inbound worker", "error", err)
		return nil
	}
	return worker
}
