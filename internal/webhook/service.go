package webhook

import (
	"context"

	"quote_assistant_backend/internal/inbound"
	"quote_assistant_backend/platform/logger"
	"quote_assistant_backend/platform/phone"
	"quote_assistant_backend/platform/validator"
)

// Service turns webhook deliveries into dispatched inbound messages.
type Service struct {
	dispatcher inbound.Dispatcher
	fallback   inbound.Dispatcher
	val        *validator.Validator
	region     string
	log        *logger.Logger
}

// NewService creates a new webhook service. fallback, when set, receives
// messages the primary dispatcher refused.
func NewService(dispatcher, fallback inbound.Dispatcher, val *validator.Validator, region string, log *logger.Logger) *Service {
	return &Service{
		dispatcher: dispatcher,
		fallback:   fallback,
		val:        val,
		region:     region,
		log:        log,
	}
}

// Accept parses body and dispatches every message. It returns how many
// messages were handed off; a malformed envelope is an error, a single
// failed dispatch is logged and skipped.
func (s *Service) Accept(ctx context.Context, body []byte) (int, error) {
	messages, err := ParseEnvelope(body)
	if err != nil {
		return 0, err
	}

	dispatched := 0
	for _, msg := range messages {
		msg.From = phone.FromWhatsAppID(msg.From, s.region)
		if err := s.val.Struct(msg); err != nil {
			s.log.Warn("webhook message skipped", "messageId", msg.ID, "error", err)
			continue
		}

		log := s.log.WithMessageID(msg.ID)
		if err := s.dispatcher.Dispatch(ctx, msg); err != nil {
			if s.fallback == nil {
				log.Error("inbound dispatch failed", "error", err)
				continue
			}
			log.Warn("inbound dispatch failed, processing in-process", "error", err)
			if err := s.fallback.Dispatch(ctx, msg); err != nil {
				log.Error("inbound fallback dispatch failed", "error", err)
				continue
			}
		}
		dispatched++
	}
	return dispatched, nil
}
