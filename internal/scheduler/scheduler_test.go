package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"

	"quote_assistant_backend/internal/inbound"
	"quote_assistant_backend/platform/logger"
)

type recordingProcessor struct {
	msgs []inbound.Message
	err  error
}

func (r *recordingProcessor) Process(ctx context.Context, msg inbound.Message) error {
	r.msgs = append(r.msgs, msg)
	return r.err
}

func TestInboundTaskRoundTrip(t *testing.T) {
	msg := inbound.Message{ID: "wamid.1", From: "+15551234567", Type: inbound.TypeInteractive, Text: "Yes", ReplyID: "yes"}
	task, err := NewInboundMessageTask(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Type() != TaskInboundMessage {
		t.Fatalf("unexpected task type %q", task.Type())
	}

	proc := &recordingProcessor{}
	w := &Worker{processor: proc, log: logger.Discard()}
	if err := w.handleInboundMessage(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(proc.msgs) != 1 || proc.msgs[0].ReplyID != "yes" || proc.msgs[0].From != msg.From {
		t.Fatalf("unexpected processed messages %+v", proc.msgs)
	}
}

func TestInboundTaskBadPayloadSkipsRetry(t *testing.T) {
	w := &Worker{processor: &recordingProcessor{}, log: logger.Discard()}

	tests := []struct {
		name    string
		payload []byte
	}{
		{name: "garbage", payload: []byte("{nope")},
		{name: "no id", payload: []byte(`{"from":"+15551234567","type":"text"}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := w.handleInboundMessage(context.Background(), asynq.NewTask(TaskInboundMessage, tt.payload))
			if !errors.Is(err, asynq.SkipRetry) {
				t.Fatalf("expected SkipRetry, got %v", err)
			}
		})
	}
}

func TestInboundTaskProcessErrorIsRetried(t *testing.T) {
	boom := errors.New("db down")
	w := &Worker{processor: &recordingProcessor{err: boom}, log: logger.Discard()}
	task, _ := NewInboundMessageTask(inbound.Message{ID: "wamid.2", From: "+15551234567", Type: inbound.TypeText})

	err := w.handleInboundMessage(context.Background(), task)
	if !errors.Is(err, boom) || errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected a retryable error, got %v", err)
	}
}

type fakeSweeper struct {
	cutoffs []time.Time
	swept   int64
}

func (f *fakeSweeper) SweepStale(ctx context.Context, cutoff time.Time) (int64, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	return f.swept, nil
}

func TestConversationSweeperUsesStaleCutoff(t *testing.T) {
	fake := &fakeSweeper{swept: 3}
	s := NewConversationSweeper(fake, logger.Discard(), 0, 2*time.Hour)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.sweep(context.Background())
	if len(fake.cutoffs) != 1 || !fake.cutoffs[0].Equal(now.Add(-2*time.Hour)) {
		t.Fatalf("unexpected cutoffs %v", fake.cutoffs)
	}
	if s.interval != defaultSweepInterval {
		t.Fatalf("expected default interval, got %s", s.interval)
	}
}

func TestConversationSweeperRunStopsWithContext(t *testing.T) {
	fake := &fakeSweeper{}
	s := NewConversationSweeper(fake, logger.Discard(), time.Hour, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("sweeper did not stop")
	}
	if len(fake.cutoffs) != 1 {
		t.Fatalf("expected an immediate sweep on start, got %d", len(fake.cutoffs))
	}
}

type fakePurger struct {
	calls int
	err   error
}

func (f *fakePurger) PurgeExpired(ctx context.Context) (int64, error) {
	f.calls++
	return 2, f.err
}

func TestLedgerJanitorPurges(t *testing.T) {
	purger := &fakePurger{}
	j := NewLedgerJanitor(purger, logger.Discard(), 0)
	j.purge(context.Background())

	purger.err = errors.New("timeout")
	j.purge(context.Background())

	if purger.calls != 2 {
		t.Fatalf("expected two purge calls, got %d", purger.calls)
	}
	if j.interval != defaultJanitorInterval {
		t.Fatalf("expected default interval, got %s", j.interval)
	}
}
