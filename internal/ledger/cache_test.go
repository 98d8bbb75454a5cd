package ledger

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"quote_assistant_backend/platform/apperr"
	"quote_assistant_backend/platform/logger"
)

// memoryStore mirrors the conditional transitions of Repository.
type memoryStore struct {
	mu      sync.Mutex
	entries map[string]*Entry
	calls   map[string]int
	purged  int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{entries: make(map[string]*Entry), calls: make(map[string]int)}
}

func (m *memoryStore) track(op string) {
	m.calls[op]++
}

func (m *memoryStore) get(id string) (*Entry, error) {
	e, ok := m.entries[id]
	if !ok {
		return nil, apperr.NotFound("ledger entry not found")
	}
	return e, nil
}

func (m *memoryStore) Begin(ctx context.Context, messageID, identity, messageType string) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.track("Begin")
	if e, ok := m.entries[messageID]; ok {
		return *e, false, nil
	}
	e := &Entry{MessageID: messageID, Identity: identity, MessageType: messageType,
		ProcessingStatus: ProcessingPending, ResponseStatus: ResponseNotSent}
	m.entries[messageID] = e
	return *e, true, nil
}

func (m *memoryStore) Get(ctx context.Context, messageID string) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.get(messageID)
	if err != nil {
		return Entry{}, err
	}
	return *e, nil
}

func (m *memoryStore) move(op, id string, allowed func(*Entry) bool, apply func(*Entry)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.track(op)
	e, err := m.get(id)
	if err != nil {
		return err
	}
	if !allowed(e) {
		return ErrAlreadyClaimed
	}
	apply(e)
	return nil
}

func (m *memoryStore) ClaimProcessing(ctx context.Context, id string) error {
	return m.move("ClaimProcessing", id,
		func(e *Entry) bool {
			return e.ProcessingStatus == ProcessingPending || e.ProcessingStatus == ProcessingFailed
		},
		func(e *Entry) { e.ProcessingStatus = ProcessingInProgress; e.Attempts++ })
}

func (m *memoryStore) MarkProcessed(ctx context.Context, id string) error {
	return m.move("MarkProcessed", id,
		func(e *Entry) bool { return e.ProcessingStatus == ProcessingInProgress },
		func(e *Entry) { e.ProcessingStatus = ProcessingDone })
}

func (m *memoryStore) MarkProcessingFailed(ctx context.Context, id string, cause error) error {
	return m.move("MarkProcessingFailed", id,
		func(e *Entry) bool { return e.ProcessingStatus == ProcessingInProgress },
		func(e *Entry) { e.ProcessingStatus = ProcessingFailed; e.LastError = errorText(cause) })
}

func (m *memoryStore) CanSend(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.track("CanSend")
	e, err := m.get(id)
	if err != nil {
		return false, err
	}
	return e.ResponseStatus.Sendable(), nil
}

func (m *memoryStore) ClaimSend(ctx context.Context, id string) error {
	return m.move("ClaimSend", id,
		func(e *Entry) bool { return e.ResponseStatus.Sendable() },
		func(e *Entry) { e.ResponseStatus = ResponseSending })
}

func (m *memoryStore) MarkSent(ctx context.Context, id, providerID string) error {
	return m.move("MarkSent", id,
		func(e *Entry) bool { return e.ResponseStatus == ResponseSending },
		func(e *Entry) { e.ResponseStatus = ResponseSent; e.ResponseMessageID = providerID })
}

func (m *memoryStore) MarkSendFailed(ctx context.Context, id string, cause error) error {
	return m.move("MarkSendFailed", id,
		func(e *Entry) bool { return e.ResponseStatus == ResponseSending },
		func(e *Entry) { e.ResponseStatus = ResponseFailed; e.LastError = errorText(cause) })
}

func (m *memoryStore) PurgeExpired(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.purged
	for id := range m.entries {
		delete(m.entries, id)
	}
	m.purged = 0
	return n, nil
}

func newCached(t *testing.T) (*CachedStore, *memoryStore) {
	t.Helper()
	mem := newMemoryStore()
	cached, err := NewCachedStore(mem, 16, logger.Discard())
	if err != nil {
		t.Fatalf("NewCachedStore: %v", err)
	}
	return cached, mem
}

func TestResponseStatusSendable(t *testing.T) {
	tests := map[ResponseStatus]bool{
		ResponseNotSent: true,
		ResponseFailed:  true,
		ResponseSending: false,
		ResponseSent:    false,
	}
	for status, want := range tests {
		if got := status.Sendable(); got != want {
			t.Errorf("%s.Sendable() = %v, want %v", status, got, want)
		}
	}
}

func TestCachedStoreFullLifecycle(t *testing.T) {
	store, _ := newCached(t)
	ctx := context.Background()

	if _, created, err := store.Begin(ctx, "wamid.1", "+15551234567", "text"); err != nil || !created {
		t.Fatalf("expected new entry, got created=%v err=%v", created, err)
	}
	if _, created, _ := store.Begin(ctx, "wamid.1", "+15551234567", "text"); created {
		t.Fatalf("second Begin must not create")
	}

	if err := store.ClaimProcessing(ctx, "wamid.1"); err != nil {
		t.Fatalf("ClaimProcessing: %v", err)
	}
	if err := store.ClaimProcessing(ctx, "wamid.1"); !IsAlreadyClaimed(err) {
		t.Fatalf("expected concurrent claim to be refused, got %v", err)
	}

	if err := store.ClaimSend(ctx, "wamid.1"); err != nil {
		t.Fatalf("ClaimSend: %v", err)
	}
	if err := store.MarkSent(ctx, "wamid.1", "wamid.out"); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}
	if err := store.MarkProcessed(ctx, "wamid.1"); err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}

	if ok, _ := store.CanSend(ctx, "wamid.1"); ok {
		t.Fatalf("sent message must not be sendable")
	}
	if err := store.ClaimSend(ctx, "wamid.1"); !IsAlreadyClaimed(err) {
		t.Fatalf("expected second send to be refused, got %v", err)
	}
}

func TestCachedStoreAnswersTerminalStatesWithoutStore(t *testing.T) {
	store, mem := newCached(t)
	ctx := context.Background()

	_, _, _ = store.Begin(ctx, "wamid.2", "+1", "text")
	_ = store.ClaimProcessing(ctx, "wamid.2")
	_ = store.ClaimSend(ctx, "wamid.2")
	_ = store.MarkSent(ctx, "wamid.2", "out")
	_ = store.MarkProcessed(ctx, "wamid.2")

	before := mem.calls["ClaimProcessing"] + mem.calls["ClaimSend"] + mem.calls["CanSend"]
	for i := 0; i < 3; i++ {
		if err := store.ClaimProcessing(ctx, "wamid.2"); !errors.Is(err, ErrAlreadyClaimed) {
			t.Fatalf("expected cached refusal, got %v", err)
		}
		if err := store.ClaimSend(ctx, "wamid.2"); !errors.Is(err, ErrAlreadyClaimed) {
			t.Fatalf("expected cached refusal, got %v", err)
		}
		if ok, _ := store.CanSend(ctx, "wamid.2"); ok {
			t.Fatalf("expected cached not-sendable")
		}
	}
	after := mem.calls["ClaimProcessing"] + mem.calls["ClaimSend"] + mem.calls["CanSend"]
	if after != before {
		t.Fatalf("expected cache hits only, store saw %d more calls", after-before)
	}
}

func TestCachedStoreFailedSendCanBeRetried(t *testing.T) {
	store, _ := newCached(t)
	ctx := context.Background()

	_, _, _ = store.Begin(ctx, "wamid.3", "+1", "text")
	_ = store.ClaimSend(ctx, "wamid.3")
	if err := store.MarkSendFailed(ctx, "wamid.3", errors.New("provider 500")); err != nil {
		t.Fatalf("MarkSendFailed: %v", err)
	}
	if ok, _ := store.CanSend(ctx, "wamid.3"); !ok {
		t.Fatalf("failed send must be sendable again")
	}
	if err := store.ClaimSend(ctx, "wamid.3"); err != nil {
		t.Fatalf("retry ClaimSend: %v", err)
	}
}

func TestCachedStorePurgeClearsCache(t *testing.T) {
	store, mem := newCached(t)
	ctx := context.Background()

	_, _, _ = store.Begin(ctx, "wamid.4", "+1", "text")
	_ = store.ClaimProcessing(ctx, "wamid.4")
	_ = store.MarkProcessed(ctx, "wamid.4")

	mem.purged = 1
	if n, err := store.PurgeExpired(ctx); err != nil || n != 1 {
		t.Fatalf("PurgeExpired = %d, %v", n, err)
	}

	if _, created, _ := store.Begin(ctx, "wamid.4", "+1", "text"); !created {
		t.Fatalf("expected purged id to be recorded again")
	}
	if err := store.ClaimProcessing(ctx, "wamid.4"); err != nil {
		t.Fatalf("purged id must be claimable, got %v", err)
	}
}

func TestErrorTextTruncates(t *testing.T) {
	long := errors.New(strings.Repeat("x", maxErrorLength+50))
	if got := errorText(long); len(got) != maxErrorLength {
		t.Fatalf("expected %d chars, got %d", maxErrorLength, len(got))
	}
	if errorText(nil) != "" {
		t.Fatalf("nil error must be empty")
	}
}
