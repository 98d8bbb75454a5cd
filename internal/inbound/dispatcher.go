package inbound

import (
	"context"
	"sync"
	"time"

	"quote_assistant_backend/platform/logger"
)

// DefaultProcessTimeout bounds one detached Process call.
const DefaultProcessTimeout = 2 * time.Minute

// MessageProcessor is implemented by Processor.
type MessageProcessor interface {
	Process(ctx context.Context, msg Message) error
}

// AsyncDispatcher runs each message on its own goroutine, detached from the
// webhook request. It is used when no queue is configured.
type AsyncDispatcher struct {
	processor MessageProcessor
	timeout   time.Duration
	log       *logger.Logger
	wg        sync.WaitGroup
}

var _ Dispatcher = (*AsyncDispatcher)(nil)

func NewAsyncDispatcher(processor MessageProcessor, timeout time.Duration, log *logger.Logger) *AsyncDispatcher {
	if timeout <= 0 {
		timeout = DefaultProcessTimeout
	}
	return &AsyncDispatcher{processor: processor, timeout: timeout, log: log}
}

// Dispatch never blocks on processing and never fails.
func (d *AsyncDispatcher) Dispatch(_ context.Context, msg Message) error {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.log.Error("panic while processing message", "messageId", msg.ID, "panic", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.processor.Process(ctx, msg); err != nil {
			d.log.WithMessageID(msg.ID).Error("message processing failed", "error", err)
		}
	}()
	return nil
}

// Wait blocks until every dispatched message finished. Used on shutdown.
func (d *AsyncDispatcher) Wait() {
	d.wg.Wait()
}
