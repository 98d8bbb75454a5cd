package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"quote_assistant_backend/internal/conversation/domain"
	"quote_assistant_backend/internal/conversation/ports"
	"quote_assistant_backend/internal/conversation/repository"
	"quote_assistant_backend/internal/events"
	"quote_assistant_backend/internal/nlu"
	"quote_assistant_backend/platform/logger"
)

// maxStepHops bounds how many handlers one message may pass through.
const maxStepHops = 12

var (
	errNoResponse  = errors.New("step produced no response")
	errTooManyHops = errors.New("step dispatch did not settle")
)

// Message is one inbound customer message, already reduced to text.
type Message struct {
	ID       string
	Identity string
	Name     string
	Text     string
	// ReplyID is the id of a tapped button or list row, if any.
	ReplyID string
}

// input is the text a handler should interpret.
func (m Message) input() string {
	if m.ReplyID != "" {
		return m.ReplyID
	}
	return m.Text
}

// Config holds presentation settings.
type Config struct {
	CompanyName string
	Currency    string
}

// Service is the conversation flow controller.
type Service struct {
	repo       repository.Repository
	catalog    ports.CatalogLookup
	extractor  nlu.Extractor
	pricing    ports.PricingClient
	documents  ports.QuoteDocuments
	locker     ports.IdentityLocker
	bus        events.Bus
	reconciler *Reconciler
	log        *logger.Logger
	cfg        Config
	now        func() time.Time
}

// New creates the flow controller with an in-process identity locker.
func New(repo repository.Repository, catalog ports.CatalogLookup, extractor nlu.Extractor, pricing ports.PricingClient, cfg Config, log *logger.Logger) *Service {
	if cfg.CompanyName == "" {
		cfg.CompanyName = "our shop"
	}
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	return &Service{
		repo:       repo,
		catalog:    catalog,
		extractor:  extractor,
		pricing:    pricing,
		locker:     NewLocalLocker(),
		reconciler: NewReconciler(catalog, log),
		log:        log,
		cfg:        cfg,
		now:        time.Now,
	}
}

// SetDocuments injects the PDF quote builder. Without one, PDF requests are
// answered with a text apology.
func (s *Service) SetDocuments(documents ports.QuoteDocuments) {
	s.documents = documents
}

// SetLocker replaces the identity locker, e.g. with a Redis-backed one.
func (s *Service) SetLocker(locker ports.IdentityLocker) {
	s.locker = locker
}

// SetEventBus injects the event bus.
func (s *Service) SetEventBus(bus events.Bus) {
	s.bus = bus
}

// turn carries the working state of one message through the handlers.
type turn struct {
	msg     Message
	state   *domain.ConversationState
	nlu     nlu.Result
	reply   ports.Responder
	changes Changes
	// arrived is true when the current step was entered during this turn.
	arrived bool
	// notice is prepended to the next prompt.
	notice string
}

func (t *turn) od() *domain.OrderData { return &t.state.OrderData }

func (t *turn) affirmative() bool {
	if t.msg.ReplyID != "" {
		return t.msg.ReplyID == replyYes
	}
	return t.nlu.HasIntent(nlu.IntentAffirm, minEntityConfidence)
}

func (t *turn) negative() bool {
	if t.msg.ReplyID != "" {
		return t.msg.ReplyID == replyNo
	}
	return t.nlu.HasIntent(nlu.IntentDeny, minEntityConfidence)
}

func (t *turn) moveTo(step domain.Step) {
	t.state.CurrentStep = step
}

// HandleMessage runs one conversational turn and sends exactly one reply
// through reply. The reply is delivered only after the new state is saved, so
// a lost version race retries the turn without double-sending. Errors inside
// step handlers are answered with an apology and reset the conversation; the
// returned error reports failures that left the message unanswered.
func (s *Service) HandleMessage(ctx context.Context, msg Message, reply ports.Responder) error {
	unlock, err := s.locker.Lock(ctx, msg.Identity)
	if err != nil {
		return fmt.Errorf("lock identity: %w", err)
	}
	defer unlock()

	err = s.runTurn(ctx, msg, reply)
	if errors.Is(err, repository.ErrStaleVersion) {
		s.log.WithContext(ctx).Warn("conversation changed during turn, retrying")
		err = s.runTurn(ctx, msg, reply)
	}
	return err
}

func (s *Service) runTurn(ctx context.Context, msg Message, reply ports.Responder) error {
	log := s.log.WithContext(ctx)

	state, created, err := s.repo.FindOrCreateActive(ctx, msg.Identity)
	if err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}
	if created {
		log.Info("conversation started", "conversationId", state.ID)
	}

	pending := &pendingReply{}
	t := &turn{msg: msg, state: &state, reply: pending}
	fromStep := state.CurrentStep
	state.LastMessageAt = s.now()

	t.nlu = s.extract(ctx, msg.Text)

	if msg.ReplyID == "reset" || t.nlu.HasIntent(nlu.IntentReset, minEntityConfidence) {
		s.publish(ctx, events.ConversationReset{
			BaseEvent:      events.NewBaseEvent(),
			ConversationID: state.ID,
			Identity:       state.Identity,
			Reason:         repository.ReasonReset,
		})
		state.Restart()
		t.arrived = true
	} else {
		s.prepareStep(ctx, t)
	}

	if err := s.dispatchLoop(ctx, t); err != nil {
		log.Error("conversation step failed", "step", state.CurrentStep, "conversationId", state.ID, "error", err)
		return s.resetAfterError(ctx, t, reply)
	}

	s.finishTurn(t)
	if err := s.repo.Save(ctx, &state); err != nil {
		if errors.Is(err, repository.ErrStaleVersion) {
			return err
		}
		return fmt.Errorf("save conversation: %w", err)
	}

	if err := pending.flush(ctx, reply); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}

	if fromStep != state.CurrentStep {
		log.StepTransition(state.ID.String(), string(fromStep), string(state.CurrentStep))
		s.publish(ctx, events.ConversationStepChanged{
			BaseEvent:      events.NewBaseEvent(),
			ConversationID: state.ID,
			Identity:       state.Identity,
			From:           string(fromStep),
			To:             string(state.CurrentStep),
		})
	}
	if !state.IsActive && state.DeactivatedReason == repository.ReasonCompleted {
		s.publish(ctx, events.ConversationCompleted{
			BaseEvent:      events.NewBaseEvent(),
			ConversationID: state.ID,
			Identity:       state.Identity,
			Priced:         state.OrderData.PricingDone,
			DocumentSent:   state.OrderData.DocumentSent,
		})
	}
	return nil
}

// extract runs NLU; failures degrade to an empty result.
func (s *Service) extract(ctx context.Context, text string) nlu.Result {
	if strings.TrimSpace(text) == "" {
		return nlu.NewResult()
	}
	result, err := s.extractor.Extract(ctx, text)
	if err != nil {
		s.log.WithContext(ctx).Warn("nlu failed, continuing without entities", "error", err)
		return nlu.NewResult()
	}
	return result
}

// prepareStep merges entities and applies the entry and bypass rules before
// any handler runs.
func (s *Service) prepareStep(ctx context.Context, t *turn) {
	od := t.od()
	t.changes = s.reconciler.Reconcile(ctx, od, t.nlu.Entities)

	step := t.state.CurrentStep
	if step == domain.StepCompleted {
		t.state.Restart()
		t.arrived = true
		return
	}

	if (step == domain.StepStart || step == domain.StepGreetingResponse) && od.HasOrderData() {
		od.WantsQuote = true
		step = domain.StepCategorySelection
		t.arrived = true
	}

	if step == domain.StepQuoteGeneration && t.changes.Any() {
		// The order changed after it was summarised; summarise again.
		od.ResetQuoteProgress()
		t.arrived = true
	}

	if next := domain.NextStepAfterBypass(step, od); next != step {
		step = next
		t.arrived = true
	}
	t.moveTo(step)
}

// dispatchLoop runs handlers until one of them responds.
func (s *Service) dispatchLoop(ctx context.Context, t *turn) error {
	for hop := 0; hop < maxStepHops; hop++ {
		step := t.state.CurrentStep
		if err := s.dispatch(ctx, t); err != nil {
			return fmt.Errorf("%s: %w", step, err)
		}
		if t.reply.Sent() {
			return nil
		}
		next := t.state.CurrentStep
		if next == step {
			return fmt.Errorf("%s: %w", step, errNoResponse)
		}
		t.moveTo(domain.NextStepAfterBypass(next, t.od()))
		t.arrived = true
	}
	return errTooManyHops
}

// dispatch calls the handler of the current step.
func (s *Service) dispatch(ctx context.Context, t *turn) error {
	switch t.state.CurrentStep {
	case domain.StepStart:
		return s.handleStart(ctx, t)
	case domain.StepGreetingResponse:
		return s.handleGreetingResponse(ctx, t)
	case domain.StepCategorySelection:
		return s.handleCategorySelection(ctx, t)
	case domain.StepProductSelection:
		return s.handleProductSelection(ctx, t)
	case domain.StepDimensionInput:
		return s.handleDimensionInput(ctx, t)
	case domain.StepMaterialSelection:
		return s.handleMaterialSelection(ctx, t)
	case domain.StepFinishSelection:
		return s.handleFinishSelection(ctx, t)
	case domain.StepQuantityInput:
		return s.handleQuantityInput(ctx, t)
	case domain.StepQuoteGeneration:
		return s.handleQuoteGeneration(ctx, t)
	case domain.StepCompleted:
		return s.handleCompleted(ctx, t)
	default:
		return fmt.Errorf("unknown step %q", t.state.CurrentStep)
	}
}

// finishTurn deactivates a conversation that reached the end.
func (s *Service) finishTurn(t *turn) {
	if t.state.CurrentStep != domain.StepCompleted {
		return
	}
	now := s.now()
	t.state.IsActive = false
	t.state.DeactivatedReason = repository.ReasonCompleted
	t.state.CompletedAt = &now
	t.od().Completed = true
}

// resetAfterError resets the conversation after a handler error and answers with an
// apology instead of whatever the failed turn had prepared.
func (s *Service) resetAfterError(ctx context.Context, t *turn, reply ports.Responder) error {
	log := s.log.WithContext(ctx)

	t.state.Restart()
	if err := s.repo.Save(ctx, t.state); err != nil {
		log.Error("failed to reset conversation after error", "conversationId", t.state.ID, "error", err)
	}
	s.publish(ctx, events.ConversationReset{
		BaseEvent:      events.NewBaseEvent(),
		ConversationID: t.state.ID,
		Identity:       t.state.Identity,
		Reason:         "error",
	})

	if reply.Sent() {
		return nil
	}
	if err := reply.SendText(ctx, msgApology); err != nil {
		return fmt.Errorf("send apology: %w", err)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, event)
}
