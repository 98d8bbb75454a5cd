package scheduler

import (
	"context"
	"fmt"

	"quote_assistant_backend/internal/inbound"
	"quote_assistant_backend/platform/config"
	"quote_assistant_backend/platform/logger"

	"github.com/hibiken/asynq"
)

const defaultConcurrency = 10

// Worker consumes the inbound queue.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor inbound.MessageProcessor
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, processor inbound.MessageProcessor, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetInboundQueueConcurrency()
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueInbound: 1,
		},
		Logger: newAsynqLogger(log),
	})

	w := &Worker{
		server:    server,
		processor: processor,
		log:       log,
	}
	w.mux = w.routes()
	return w, nil
}

func (w *Worker) routes() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskInboundMessage, w.handleInboundMessage)
	return mux
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleInboundMessage(ctx context.Context, task *asynq.Task) error {
	msg, err := ParseInboundMessagePayload(task)
	if err != nil {
		return fmt.Errorf("parse inbound payload: %v: %w", err, asynq.SkipRetry)
	}
	if msg.ID == "" || msg.From == "" {
		return fmt.Errorf("inbound payload without message id or sender: %w", asynq.SkipRetry)
	}
	return w.processor.Process(ctx, msg)
}

// asynqLogger routes asynq's own logging through the service logger.
type asynqLogger struct {
	log *logger.Logger
}

func newAsynqLogger(log *logger.Logger) asynq.Logger {
	return asynqLogger{log: log.WithComponent("asynq")}
}

func (l asynqLogger) Debug(args ...any) { l.log.Debug(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...any)  { l.log.Info(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...any)  { l.log.Warn(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...any) { l.log.Error(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...any) { l.log.Error(fmt.Sprint(args...)) }
