package inbound

import (
	"context"
	"errors"
	"sync"

	"quote_assistant_backend/internal/conversation/ports"
	"quote_assistant_backend/internal/conversation/service"
	"quote_assistant_backend/internal/ledger"
	"quote_assistant_backend/internal/whatsapp"
	"quote_assistant_backend/platform/apperr"
)

var errBoom = errors.New("boom")

// fakeLedger applies the same conditional transitions as the Postgres store.
type fakeLedger struct {
	mu         sync.Mutex
	entries    map[string]*ledger.Entry
	sendClaims int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{entries: make(map[string]*ledger.Entry)}
}

func (f *fakeLedger) Begin(ctx context.Context, messageID, identity, messageType string) (ledger.Entry, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.entries[messageID]; ok {
		return *e, false, nil
	}
	e := &ledger.Entry{MessageID: messageID, Identity: identity, MessageType: messageType,
		ProcessingStatus: ledger.ProcessingPending, ResponseStatus: ledger.ResponseNotSent}
	f.entries[messageID] = e
	return *e, true, nil
}

func (f *fakeLedger) Get(ctx context.Context, messageID string) (ledger.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[messageID]
	if !ok {
		return ledger.Entry{}, apperr.NotFound("ledger entry not found")
	}
	return *e, nil
}

func (f *fakeLedger) move(id string, allowed func(*ledger.Entry) bool, apply func(*ledger.Entry)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok {
		return apperr.NotFound("ledger entry not found")
	}
	if allowed != nil && !allowed(e) {
		return ledger.ErrAlreadyClaimed
	}
	apply(e)
	return nil
}

func (f *fakeLedger) ClaimProcessing(ctx context.Context, id string) error {
	return f.move(id,
		func(e *ledger.Entry) bool {
			return e.ProcessingStatus == ledger.ProcessingPending || e.ProcessingStatus == ledger.ProcessingFailed
		},
		func(e *ledger.Entry) { e.ProcessingStatus = ledger.ProcessingInProgress; e.Attempts++ })
}

func (f *fakeLedger) MarkProcessed(ctx context.Context, id string) error {
	return f.move(id, nil, func(e *ledger.Entry) { e.ProcessingStatus = ledger.ProcessingDone })
}

func (f *fakeLedger) MarkProcessingFailed(ctx context.Context, id string, cause error) error {
	return f.move(id, nil, func(e *ledger.Entry) {
		e.ProcessingStatus = ledger.ProcessingFailed
		e.LastError = cause.Error()
	})
}

func (f *fakeLedger) CanSend(ctx context.Context, id string) (bool, error) {
	e, err := f.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return e.ResponseStatus.Sendable(), nil
}

func (f *fakeLedger) ClaimSend(ctx context.Context, id string) error {
	f.mu.Lock()
	f.sendClaims++
	f.mu.Unlock()
	return f.move(id,
		func(e *ledger.Entry) bool { return e.ResponseStatus.Sendable() },
		func(e *ledger.Entry) { e.ResponseStatus = ledger.ResponseSending })
}

func (f *fakeLedger) MarkSent(ctx context.Context, id, providerMessageID string) error {
	return f.move(id, nil, func(e *ledger.Entry) {
		e.ResponseStatus = ledger.ResponseSent
		e.ResponseMessageID = providerMessageID
	})
}

func (f *fakeLedger) MarkSendFailed(ctx context.Context, id string, cause error) error {
	return f.move(id, nil, func(e *ledger.Entry) {
		e.ResponseStatus = ledger.ResponseFailed
		e.LastError = cause.Error()
	})
}

func (f *fakeLedger) PurgeExpired(ctx context.Context) (int64, error) { return 0, nil }

func (f *fakeLedger) entry(id string) ledger.Entry {
	e, _ := f.Get(context.Background(), id)
	return e
}

type outbound struct {
	to   string
	kind string
	body string
	doc  whatsapp.Document
}

// fakeSender records what would reach the Cloud API.
type fakeSender struct {
	mu       sync.Mutex
	sent     []outbound
	read     []string
	uploads  int
	sendErr  error
	media    *whatsapp.Media
	mediaErr error
}

func (f *fakeSender) record(o outbound) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = append(f.sent, o)
	return "wamid.out", nil
}

func (f *fakeSender) SendText(ctx context.Context, to, body string) (string, error) {
	return f.record(outbound{to: to, kind: "text", body: body})
}

func (f *fakeSender) SendButtons(ctx context.Context, to, body string, buttons []whatsapp.Button) (string, error) {
	return f.record(outbound{to: to, kind: "buttons", body: body})
}

func (f *fakeSender) SendList(ctx context.Context, to, body, buttonLabel string, sections []whatsapp.Section) (string, error) {
	return f.record(outbound{to: to, kind: "list", body: body})
}

func (f *fakeSender) SendDocument(ctx context.Context, to string, doc whatsapp.Document) (string, error) {
	return f.record(outbound{to: to, kind: "document", doc: doc})
}

func (f *fakeSender) UploadMedia(ctx context.Context, filename, mimeType string, content []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads++
	return "media-1", nil
}

func (f *fakeSender) DownloadMedia(ctx context.Context, mediaID string) (*whatsapp.Media, error) {
	if f.mediaErr != nil {
		return nil, f.mediaErr
	}
	return f.media, nil
}

func (f *fakeSender) MarkRead(ctx context.Context, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.read = append(f.read, messageID)
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// fakeConversation answers every turn with one text, or runs reply.
type fakeConversation struct {
	mu    sync.Mutex
	turns []service.Message
	reply func(ctx context.Context, reply ports.Responder) error
}

func (f *fakeConversation) HandleMessage(ctx context.Context, msg service.Message, reply ports.Responder) error {
	f.mu.Lock()
	f.turns = append(f.turns, msg)
	f.mu.Unlock()
	if f.reply != nil {
		return f.reply(ctx, reply)
	}
	return reply.SendText(ctx, "echo: "+msg.Text)
}

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	return f.text, f.err
}
