package inbound

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"quote_assistant_backend/internal/conversation/ports"
	"quote_assistant_backend/internal/conversation/service"
	"quote_assistant_backend/internal/events"
	"quote_assistant_backend/internal/ledger"
	"quote_assistant_backend/platform/logger"
)

const (
	msgUnsupported    = "Sorry, I can only read text messages. Please type your request."
	msgTranscribeFail = "Sorry, I couldn't understand that voice note. Please type your request."
)

// Conversation runs one conversational turn.
type Conversation interface {
	HandleMessage(ctx context.Context, msg service.Message, reply ports.Responder) error
}

// Transcriber turns a voice note into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

var _ Conversation = (*service.Service)(nil)

// Processor takes an inbound message from first sight in the ledger to its
// single reply.
type Processor struct {
	ledger       ledger.Store
	conversation Conversation
	sender       Sender
	transcriber  Transcriber
	bus          events.Bus
	log          *logger.Logger
}

// NewProcessor wires the pipeline. Transcription is optional and set with
// SetTranscriber.
func NewProcessor(store ledger.Store, conversation Conversation, sender Sender, log *logger.Logger) *Processor {
	return &Processor{
		ledger:       store,
		conversation: conversation,
		sender:       sender,
		log:          log,
	}
}

// SetTranscriber enables voice notes.
func (p *Processor) SetTranscriber(transcriber Transcriber) {
	p.transcriber = transcriber
}

// SetEventBus sets the bus for message events.
func (p *Processor) SetEventBus(bus events.Bus) {
	p.bus = bus
}

// Process handles msg at most once. Redelivered or concurrently claimed
// messages are skipped without error. An error is returned only when the
// message failed before anything was sent, so it is safe to retry.
func (p *Processor) Process(ctx context.Context, msg Message) error {
	ctx = logger.ContextWithMessage(ctx, msg.ID, msg.From)
	log := p.log.WithContext(ctx)

	entry, created, err := p.ledger.Begin(ctx, msg.ID, msg.From, msg.Type)
	if err != nil {
		return fmt.Errorf("record message: %w", err)
	}
	if created {
		p.publish(ctx, events.InboundMessageReceived{
			BaseEvent:   events.NewBaseEvent(),
			MessageID:   msg.ID,
			MessageType: msg.Type,
		})
	}
	if entry.ProcessingStatus == ledger.ProcessingDone {
		p.skipDuplicate(ctx, msg.ID)
		return nil
	}

	if err := p.ledger.ClaimProcessing(ctx, msg.ID); err != nil {
		if errors.Is(err, ledger.ErrAlreadyClaimed) {
			p.skipDuplicate(ctx, msg.ID)
			return nil
		}
		return fmt.Errorf("claim message: %w", err)
	}

	if err := p.sender.MarkRead(ctx, msg.ID); err != nil {
		log.Warn("failed to mark message as read", "error", err)
	}

	reply := NewResponder(msg.ID, msg.From, p.ledger, p.sender, p.bus, p.log)
	err = p.handle(ctx, msg, reply)
	if err != nil && !reply.Attempted() {
		if markErr := p.ledger.MarkProcessingFailed(ctx, msg.ID, err); markErr != nil {
			log.Error("failed to record processing failure", "error", markErr)
		}
		return err
	}
	if err != nil {
		// The conversation already moved on; retrying would replay the turn.
		log.Error("message handled but reply delivery failed", "error", err)
	}

	if err := p.ledger.MarkProcessed(ctx, msg.ID); err != nil {
		log.Error("failed to mark message processed", "error", err)
	}
	return nil
}

func (p *Processor) handle(ctx context.Context, msg Message, reply *Responder) error {
	text, notice := p.resolveText(ctx, msg)
	if notice != "" {
		return reply.SendText(ctx, notice)
	}

	return p.conversation.HandleMessage(ctx, service.Message{
		ID:       msg.ID,
		Identity: msg.From,
		Name:     msg.Name,
		Text:     text,
		ReplyID:  msg.ReplyID,
	}, reply)
}

// resolveText returns the text to interpret, or a notice to send instead of
// running a turn.
func (p *Processor) resolveText(ctx context.Context, msg Message) (text, notice string) {
	switch msg.Type {
	case TypeText, TypeInteractive, TypeButton:
		return strings.TrimSpace(msg.Text), ""
	case TypeAudio:
		return p.transcribe(ctx, msg)
	default:
		return "", msgUnsupported
	}
}

func (p *Processor) transcribe(ctx context.Context, msg Message) (string, string) {
	log := p.log.WithContext(ctx)
	if p.transcriber == nil || msg.MediaID == "" {
		return "", msgUnsupported
	}

	media, err := p.sender.DownloadMedia(ctx, msg.MediaID)
	if err != nil {
		log.Warn("voice note download failed", "mediaId", msg.MediaID, "error", err)
		return "", msgTranscribeFail
	}
	mimeType := media.MimeType
	if mimeType == "" {
		mimeType = msg.MimeType
	}

	text, err := p.transcriber.Transcribe(ctx, media.Content, mimeType)
	if err != nil {
		log.Warn("voice note transcription failed", "error", err)
		return "", msgTranscribeFail
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", msgTranscribeFail
	}
	log.Info("voice note transcribed", "length", len(text))
	return text, ""
}

func (p *Processor) skipDuplicate(ctx context.Context, messageID string) {
	p.log.WithContext(ctx).Info("duplicate message skipped")
	p.publish(ctx, events.DuplicateMessageSkipped{
		BaseEvent: events.NewBaseEvent(),
		MessageID: messageID,
	})
}

func (p *Processor) publish(ctx context.Context, event events.Event) {
	if p.bus == nil {
		return
	}
	p.bus.Publish(ctx, event)
}
