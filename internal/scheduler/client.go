package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quote_assistant_backend/internal/inbound"
	"quote_assistant_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const (
	inboundMaxRetry  = 5
	inboundTimeout   = 2 * time.Minute
	inboundRetention = time.Hour
)

// Client enqueues inbound messages for the worker.
type Client struct {
	client *asynq.Client
	queue  string
}

var _ inbound.Dispatcher = (*Client)(nil)

func NewClient(cfg config.RedisConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  QueueInbound,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Dispatch implements inbound.Dispatcher.
func (c *Client) Dispatch(ctx context.Context, msg inbound.Message) error {
	return c.EnqueueInbound(ctx, msg)
}

// EnqueueInbound queues msg under its message id, so a redelivered webhook
// inside the retention window is dropped by the queue itself.
func (c *Client) EnqueueInbound(ctx context.Context, msg inbound.Message) error {
	task, err := NewInboundMessageTask(msg)
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.TaskID(msg.ID),
		asynq.MaxRetry(inboundMaxRetry),
		asynq.Timeout(inboundTimeout),
		asynq.Retention(inboundRetention),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}

func redisClientOpt(redisURL string) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Username:  opt.Username,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}
