package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quote_assistant_backend/internal/conversation/domain"
	"quote_assistant_backend/internal/conversation/ports"
	"quote_assistant_backend/internal/events"
)

// handleQuoteGeneration walks the three quote phases: summary, pricing and
// the optional PDF.
func (s *Service) handleQuoteGeneration(ctx context.Context, t *turn) error {
	od := t.od()
	switch {
	case !od.QuoteAcknowledged || (t.arrived && !od.PricingDone):
		return s.sendSummary(ctx, t)
	case !od.PricingDone:
		return s.confirmPricing(ctx, t)
	default:
		return s.confirmDocument(ctx, t)
	}
}

func (s *Service) sendSummary(ctx context.Context, t *turn) error {
	od := t.od()
	result := domain.Validate(od)
	if !result.IsValid {
		t.notice = missingNotice(result.MissingFields)
		t.moveTo(result.OwningStep())
		return nil
	}
	od.QuoteAcknowledged = true
	od.LastPrompt = domain.StepQuoteGeneration
	return t.reply.SendButtons(ctx, withNotice(t.notice, quoteSummary(od)), yesNoButtons)
}

func (s *Service) confirmPricing(ctx context.Context, t *turn) error {
	od := t.od()
	switch {
	case t.affirmative():
	case t.negative():
		t.moveTo(domain.StepCompleted)
		return t.reply.SendText(ctx, msgFarewell)
	default:
		return t.reply.SendButtons(ctx, msgPricingReprompt, yesNoButtons)
	}

	result := domain.Validate(od)
	if !result.IsValid {
		od.QuoteAcknowledged = false
		t.notice = missingNotice(result.MissingFields)
		t.moveTo(result.OwningStep())
		return nil
	}

	started := s.now()
	data, err := s.pricing.Quote(ctx, buildPricingRequest(od))
	var inputErr *ports.PricingInputError
	if errors.As(err, &inputErr) && s.reaskPricingInputs(t, inputErr.Fields) {
		s.log.WithContext(ctx).Warn("pricing rejected order inputs", "conversationId", t.state.ID, "fields", inputErr.Fields)
		return nil
	}
	if err != nil {
		s.log.WithContext(ctx).Warn("pricing failed", "conversationId", t.state.ID, "error", err)
		s.publish(ctx, events.QuotePricingFailed{
			BaseEvent:      events.NewBaseEvent(),
			ConversationID: t.state.ID,
			Reason:         err.Error(),
		})
		return t.reply.SendButtons(ctx, msgPricingFailed, yesNoButtons)
	}
	if data.Currency == "" {
		data.Currency = s.cfg.Currency
	}
	if data.PricedAt.IsZero() {
		data.PricedAt = s.now()
	}

	od.PricingData = data
	od.PricingDone = true
	s.publish(ctx, events.QuotePriced{
		BaseEvent:      events.NewBaseEvent(),
		ConversationID: t.state.ID,
		Tiers:          len(data.Tiers),
		Latency:        s.now().Sub(started),
	})
	body := formatPricingTable(data, data.Currency) + "\n\n" + msgDocumentPrompt
	return t.reply.SendButtons(ctx, body, yesNoButtons)
}

// reaskPricingInputs clears the selections pricing rejected and routes to the
// step that collects the first of them. It reports false when nothing could
// be routed, leaving the caller to treat the error as a pricing failure.
func (s *Service) reaskPricingInputs(t *turn, fields []string) bool {
	od := t.od()
	for _, f := range fields {
		od.ClearField(f)
	}
	result := domain.Validate(od)
	if result.IsValid {
		return false
	}
	od.QuoteAcknowledged = false
	t.notice = msgPricingInputs
	t.moveTo(result.OwningStep())
	return true
}

func (s *Service) confirmDocument(ctx context.Context, t *turn) error {
	od := t.od()
	switch {
	case t.affirmative():
	case t.negative():
		t.moveTo(domain.StepCompleted)
		return t.reply.SendText(ctx, msgThanks)
	default:
		return t.reply.SendButtons(ctx, msgDocumentReprompt, yesNoButtons)
	}

	t.moveTo(domain.StepCompleted)
	if s.documents == nil {
		return t.reply.SendText(ctx, msgDocumentFailed)
	}

	buildCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	doc, err := s.documents.BuildQuoteDocument(buildCtx, *t.state)
	if err != nil {
		s.log.WithContext(ctx).Warn("quote document failed", "conversationId", t.state.ID, "error", err)
		return t.reply.SendText(ctx, msgDocumentFailed)
	}
	if doc.Caption == "" {
		doc.Caption = msgDocumentCaption
	}
	if doc.Filename == "" {
		doc.Filename = fmt.Sprintf("quote-%s.pdf", t.state.ID.String()[:8])
	}
	od.DocumentSent = true
	return t.reply.SendDocument(ctx, doc)
}

// buildPricingRequest maps the validated order onto external catalog ids.
func buildPricingRequest(od *domain.OrderData) ports.PricingRequest {
	req := ports.PricingRequest{
		ProductExternalID:  od.SelectedProduct.ExternalID,
		MaterialExternalID: od.SelectedMaterial.ExternalID,
		Quantities:         append([]int(nil), od.Quantities...),
		Dimensions:         od.DimensionValues(),
	}
	if od.SelectedCategory != nil {
		req.CategoryExternalID = od.SelectedCategory.ExternalID
	}
	req.Finishes = make([]ports.PricingFinish, len(od.SelectedFinishes))
	for i, f := range od.SelectedFinishes {
		req.Finishes[i] = ports.PricingFinish{ID: f.ExternalID, Value: f.Name}
	}
	return req
}
