package inbound

import (
	"context"
	"errors"
	"fmt"

	"quote_assistant_backend/internal/conversation/ports"
	"quote_assistant_backend/internal/events"
	"quote_assistant_backend/internal/ledger"
	"quote_assistant_backend/internal/whatsapp"
	"quote_assistant_backend/platform/logger"
)

// Sender is the subset of the WhatsApp client the pipeline uses.
type Sender interface {
	SendText(ctx context.Context, to, body string) (string, error)
	SendButtons(ctx context.Context, to, body string, buttons []whatsapp.Button) (string, error)
	SendList(ctx context.Context, to, body, buttonLabel string, sections []whatsapp.Section) (string, error)
	SendDocument(ctx context.Context, to string, doc whatsapp.Document) (string, error)
	UploadMedia(ctx context.Context, filename, mimeType string, content []byte) (string, error)
	DownloadMedia(ctx context.Context, mediaID string) (*whatsapp.Media, error)
	MarkRead(ctx context.Context, messageID string) error
}

var _ Sender = (*whatsapp.Client)(nil)

// Response kinds, used for events and metrics.
const (
	kindText     = "text"
	kindButtons  = "buttons"
	kindList     = "list"
	kindDocument = "document"
)

// Responder sends the reply to one inbound message. Every send is claimed in
// the ledger first, so a second send for the same message id is refused even
// across workers and redeliveries.
type Responder struct {
	messageID string
	to        string
	ledger    ledger.Store
	sender    Sender
	bus       events.Bus
	log       *logger.Logger

	sent      bool
	attempted bool
}

var _ ports.Responder = (*Responder)(nil)

// NewResponder builds the responder for messageID, replying to the E.164
// number to.
func NewResponder(messageID, to string, store ledger.Store, sender Sender, bus events.Bus, log *logger.Logger) *Responder {
	return &Responder{
		messageID: messageID,
		to:        to,
		ledger:    store,
		sender:    sender,
		bus:       bus,
		log:       log.WithMessageID(messageID),
	}
}

// Sent reports whether a reply went out or is claimed by another attempt.
func (r *Responder) Sent() bool {
	return r.sent
}

// Attempted reports whether this responder tried to deliver anything.
func (r *Responder) Attempted() bool {
	return r.attempted
}

func (r *Responder) SendText(ctx context.Context, body string) error {
	return r.deliver(ctx, kindText, func(ctx context.Context) (string, error) {
		return r.sender.SendText(ctx, r.to, body)
	})
}

func (r *Responder) SendButtons(ctx context.Context, body string, buttons []ports.Button) error {
	out := make([]whatsapp.Button, 0, len(buttons))
	for _, b := range buttons {
		out = append(out, whatsapp.Button{ID: b.ID, Title: b.Title})
	}
	return r.deliver(ctx, kindButtons, func(ctx context.Context) (string, error) {
		return r.sender.SendButtons(ctx, r.to, body, out)
	})
}

func (r *Responder) SendList(ctx context.Context, body, buttonLabel string, sections []ports.ListSection) error {
	out := make([]whatsapp.Section, 0, len(sections))
	for _, s := range sections {
		rows := make([]whatsapp.Row, 0, len(s.Rows))
		for _, row := range s.Rows {
			rows = append(rows, whatsapp.Row{ID: row.ID, Title: row.Title, Description: row.Description})
		}
		out = append(out, whatsapp.Section{Title: s.Title, Rows: rows})
	}
	return r.deliver(ctx, kindList, func(ctx context.Context) (string, error) {
		return r.sender.SendList(ctx, r.to, body, buttonLabel, out)
	})
}

// SendDocument sends by link when the document has a URL, otherwise uploads
// the content first.
func (r *Responder) SendDocument(ctx context.Context, doc ports.Document) error {
	return r.deliver(ctx, kindDocument, func(ctx context.Context) (string, error) {
		out := whatsapp.Document{Filename: doc.Filename, Caption: doc.Caption, Link: doc.URL}
		if out.Link == "" {
			if len(doc.Content) == 0 {
				return "", errors.New("document has neither url nor content")
			}
			mediaID, err := r.sender.UploadMedia(ctx, doc.Filename, doc.MimeType, doc.Content)
			if err != nil {
				return "", fmt.Errorf("upload document: %w", err)
			}
			out.MediaID = mediaID
		}
		return r.sender.SendDocument(ctx, r.to, out)
	})
}

func (r *Responder) deliver(ctx context.Context, kind string, send func(context.Context) (string, error)) error {
	if r.sent {
		return ports.ErrResponseAlreadySent
	}

	// CanSend answers sent messages from the ledger cache; ClaimSend is the
	// atomic gate.
	if ok, err := r.ledger.CanSend(ctx, r.messageID); err == nil && !ok {
		r.sent = true
		r.log.Warn("response already sent, not sending again", "kind", kind)
		return ports.ErrResponseAlreadySent
	} else if err != nil {
		r.log.Warn("send check failed, relying on claim", "error", err)
	}

	if err := r.ledger.ClaimSend(ctx, r.messageID); err != nil {
		if errors.Is(err, ledger.ErrAlreadyClaimed) {
			r.sent = true
			r.log.Warn("response already claimed, not sending again", "kind", kind)
			return ports.ErrResponseAlreadySent
		}
		return fmt.Errorf("claim send: %w", err)
	}
	r.sent = true
	r.attempted = true

	providerID, err := send(ctx)
	if err != nil {
		// A failed send leaves the entry sendable so the apology may still go out.
		r.sent = false
		if markErr := r.ledger.MarkSendFailed(ctx, r.messageID, err); markErr != nil {
			r.log.Error("failed to record send failure", "error", markErr)
		}
		r.publish(ctx, events.ResponseFailed{
			BaseEvent: events.NewBaseEvent(),
			MessageID: r.messageID,
			Kind:      kind,
			Error:     err.Error(),
		})
		return fmt.Errorf("send %s: %w", kind, err)
	}

	if err := r.ledger.MarkSent(ctx, r.messageID, providerID); err != nil {
		r.log.Error("response sent but not recorded", "providerMessageId", providerID, "error", err)
	}
	r.publish(ctx, events.ResponseDelivered{
		BaseEvent: events.NewBaseEvent(),
		MessageID: r.messageID,
		Kind:      kind,
	})
	r.log.Info("response sent", "kind", kind, "providerMessageId", providerID)
	return nil
}

func (r *Responder) publish(ctx context.Context, event events.Event) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(ctx, event)
}
