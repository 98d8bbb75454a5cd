package service

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"quote_assistant_backend/internal/conversation/domain"
	"quote_assistant_backend/internal/conversation/ports"
	"quote_assistant_backend/internal/conversation/repository"
	"quote_assistant_backend/internal/nlu"
	"quote_assistant_backend/platform/apperr"
)

func TestOneShotRequestGoesStraightToSummary(t *testing.T) {
	env := newTestEnv()
	text := "Need 5000 stand up pouches, 4x6x2, PET material, matte finish"
	env.extractor.results[text] = result([]nlu.IntentName{nlu.IntentRequestQuote}, map[nlu.EntityKind][]string{
		nlu.EntityProduct:    {"stand up pouches"},
		nlu.EntityDimensions: {"4x6x2"},
		nlu.EntityMaterial:   {"PET"},
		nlu.EntityFinishes:   {"matte"},
		nlu.EntityQuantities: {"5000"},
	})

	reply, err := env.send(Message{Text: text})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reply.sent) != 1 {
		t.Fatalf("expected exactly one response, got %d", len(reply.sent))
	}
	if got := reply.last(); got.kind != "buttons" || !strings.Contains(got.body, "order summary") {
		t.Fatalf("expected summary with buttons, got %+v", got)
	}

	state := env.state()
	if state.CurrentStep != domain.StepQuoteGeneration {
		t.Fatalf("expected quote_generation, got %s", state.CurrentStep)
	}
	od := state.OrderData
	if od.SelectedCategory == nil || od.SelectedCategory.ID != mylarID {
		t.Fatalf("expected category backfilled from product, got %+v", od.SelectedCategory)
	}
	if od.SelectedProduct == nil || od.SelectedProduct.ID != pouchID {
		t.Fatalf("expected stand-up pouch, got %+v", od.SelectedProduct)
	}
	if !od.DimensionsComplete() {
		t.Fatalf("expected complete dimensions, got %+v", od.Dimensions)
	}
	if od.SelectedMaterial == nil || od.SelectedMaterial.Name != "PET" {
		t.Fatalf("expected PET, got %+v", od.SelectedMaterial)
	}
	if len(od.SelectedFinishes) != 1 || od.SelectedFinishes[0].Name != "Matte" {
		t.Fatalf("expected matte finish, got %+v", od.SelectedFinishes)
	}
	if len(od.Quantities) != 1 || od.Quantities[0] != 5000 {
		t.Fatalf("expected quantity 5000, got %v", od.Quantities)
	}
	if !od.QuoteAcknowledged {
		t.Fatalf("expected summary to be marked as shown")
	}
}

func TestMissingMaterialPromptsOnce(t *testing.T) {
	env := newTestEnv()
	text := "Need 5000 stand up pouches, 4x6x2, matte finish"
	env.extractor.results[text] = result(nil, map[nlu.EntityKind][]string{
		nlu.EntityProduct:    {"stand up pouches"},
		nlu.EntityDimensions: {"4x6x2"},
		nlu.EntityFinishes:   {"matte"},
		nlu.EntityQuantities: {"5000"},
	})

	reply, err := env.send(Message{Text: text})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reply.sent) != 1 {
		t.Fatalf("expected exactly one response, got %d", len(reply.sent))
	}
	got := reply.last()
	if got.kind != "list" || !strings.Contains(got.body, "material") {
		t.Fatalf("expected material list, got %+v", got)
	}
	if strings.Contains(got.body, "order summary") {
		t.Fatalf("material prompt must not carry the summary")
	}
	rows := got.sections[0].Rows
	if len(rows) != 2 {
		t.Fatalf("expected the two mylar materials, got %d rows", len(rows))
	}
	for _, row := range rows {
		if !strings.HasPrefix(row.ID, ports.MaterialReplyPrefix) {
			t.Fatalf("expected material reply id, got %q", row.ID)
		}
	}
	if step := env.state().CurrentStep; step != domain.StepMaterialSelection {
		t.Fatalf("expected material_selection, got %s", step)
	}

	reply, err = env.send(Message{Text: "PET", ReplyID: ports.MaterialReplyPrefix + petID.String()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := reply.last(); !strings.Contains(got.body, "order summary") {
		t.Fatalf("expected summary after material, got %+v", got)
	}
}

func TestIncompleteDimensionsAskForTheRest(t *testing.T) {
	env := newTestEnv()
	text := "5000 stand up pouches 4x6 PET matte"
	env.extractor.results[text] = result(nil, map[nlu.EntityKind][]string{
		nlu.EntityProduct:    {"stand up pouches"},
		nlu.EntityDimensions: {"4x6"},
		nlu.EntityMaterial:   {"PET"},
		nlu.EntityFinishes:   {"matte"},
		nlu.EntityQuantities: {"5000"},
	})

	reply, err := env.send(Message{Text: text})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if step := env.state().CurrentStep; step != domain.StepDimensionInput {
		t.Fatalf("expected dimension_input, got %s", step)
	}
	if got := reply.last(); got.kind != "text" || !strings.Contains(got.body, "G") {
		t.Fatalf("expected a prompt for G, got %+v", got)
	}

	reply, err = env.send(Message{Text: "2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state := env.state()
	if state.CurrentStep != domain.StepQuoteGeneration {
		t.Fatalf("expected quote_generation after last dimension, got %s", state.CurrentStep)
	}
	if values := state.OrderData.DimensionValues(); len(values) != 3 || values[2] != 2 {
		t.Fatalf("expected G=2 appended, got %v", values)
	}
	if got := reply.last(); !strings.Contains(got.body, "order summary") {
		t.Fatalf("expected summary, got %+v", got)
	}
}

func TestOutOfRangeDimensionIsRejected(t *testing.T) {
	env := newTestEnv()
	od := completeOrder()
	od.Dimensions = nil
	env.repo.put(domain.ConversationState{Identity: testIdentity, CurrentStep: domain.StepDimensionInput, OrderData: od})

	reply, err := env.send(Message{Text: "40x6x2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state := env.state()
	if state.CurrentStep != domain.StepDimensionInput {
		t.Fatalf("expected to stay on dimension_input, got %s", state.CurrentStep)
	}
	if state.OrderData.HasDimension("W") {
		t.Fatalf("out of range width must not be stored")
	}
	if got := reply.last(); !strings.Contains(got.body, "W must be at most 20") {
		t.Fatalf("expected range notice, got %q", got.body)
	}
}

func TestGuidedFlowWalksEveryStep(t *testing.T) {
	env := newTestEnv()
	env.extractor.results["hi"] = result([]nlu.IntentName{nlu.IntentGreeting}, nil)

	reply, err := env.send(Message{Text: "hi", Name: "Dana"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := reply.last(); got.kind != "buttons" || !strings.Contains(got.body, "Hi Dana") || !strings.Contains(got.body, "Acme Packaging") {
		t.Fatalf("expected personalised welcome, got %+v", got)
	}

	steps := []struct {
		msg      Message
		wantStep domain.Step
		wantKind string
	}{
		{Message{Text: "Yes", ReplyID: replyYes}, domain.StepCategorySelection, "list"},
		{Message{Text: "Mylar Bag", ReplyID: ports.CategoryReplyPrefix + mylarID.String()}, domain.StepProductSelection, "list"},
		{Message{Text: "Stand-Up Pouch", ReplyID: ports.ProductReplyPrefix + pouchID.String()}, domain.StepDimensionInput, "text"},
		{Message{Text: "4x6x2"}, domain.StepMaterialSelection, "list"},
		{Message{Text: "Silver Foil", ReplyID: ports.MaterialReplyPrefix + foilID.String()}, domain.StepFinishSelection, "list"},
		{Message{Text: "Gloss", ReplyID: ports.FinishReplyPrefix + glossID.String()}, domain.StepQuantityInput, "text"},
		{Message{Text: "1000, 5000"}, domain.StepQuoteGeneration, "buttons"},
	}
	for _, step := range steps {
		reply, err := env.send(step.msg)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", step.wantStep, err)
		}
		if len(reply.sent) != 1 {
			t.Fatalf("%s: expected one response, got %d", step.wantStep, len(reply.sent))
		}
		if got := env.state().CurrentStep; got != step.wantStep {
			t.Fatalf("after %q expected %s, got %s", step.msg.Text, step.wantStep, got)
		}
		if got := reply.last().kind; got != step.wantKind {
			t.Fatalf("%s: expected %s response, got %s", step.wantStep, step.wantKind, got)
		}
	}

	od := env.state().OrderData
	if len(od.Quantities) != 2 || od.Quantities[0] != 1000 || od.Quantities[1] != 5000 {
		t.Fatalf("expected quantities in mention order, got %v", od.Quantities)
	}
}

func TestUnknownCategoryIsReprompted(t *testing.T) {
	env := newTestEnv()
	env.repo.put(domain.ConversationState{Identity: testIdentity, CurrentStep: domain.StepCategorySelection, OrderData: domain.OrderData{WantsQuote: true}})

	reply, err := env.send(Message{Text: "spaceships"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := reply.last()
	if got.kind != "list" || !strings.Contains(got.body, `"spaceships"`) {
		t.Fatalf("expected not-found notice with the category list, got %+v", got)
	}
	if step := env.state().CurrentStep; step != domain.StepCategorySelection {
		t.Fatalf("expected to stay on category_selection, got %s", step)
	}
}

func TestRequestedProductOutsideCatalogShowsNotice(t *testing.T) {
	env := newTestEnv()
	text := "I need mylar bags, the rocket shaped ones"
	env.extractor.results[text] = result(nil, map[nlu.EntityKind][]string{
		nlu.EntityCategory: {"mylar bags"},
		nlu.EntityProduct:  {"rocket pouch"},
	})

	reply, err := env.send(Message{Text: text})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state := env.state()
	if state.CurrentStep != domain.StepProductSelection {
		t.Fatalf("expected product_selection, got %s", state.CurrentStep)
	}
	if state.OrderData.RequestedProductName != "" {
		t.Fatalf("expected requested product name to be consumed")
	}
	got := reply.last()
	if got.kind != "list" || !strings.Contains(got.body, "rocket pouch") {
		t.Fatalf("expected product list with notice, got %+v", got)
	}
}

func TestGreetingDeclinedCompletesConversation(t *testing.T) {
	env := newTestEnv()
	if _, err := env.send(Message{Text: "hello"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	created := env.state()

	reply, err := env.send(Message{Text: "No", ReplyID: replyNo})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := reply.last(); got.body != msgFarewell {
		t.Fatalf("expected farewell, got %q", got.body)
	}
	stored, _ := env.repo.Get(context.Background(), created.ID)
	if stored.IsActive || stored.DeactivatedReason != repository.ReasonCompleted || stored.CompletedAt == nil {
		t.Fatalf("expected completed and inactive, got %+v", stored)
	}
	if _, ok := env.repo.activeState(testIdentity); ok {
		t.Fatalf("expected no active conversation after completion")
	}
}

func TestPricingFailureKeepsQuoteOpen(t *testing.T) {
	env := newTestEnv()
	env.pricing.err = apperr.Unavailable("pricing api returned 500", errBoom)
	od := completeOrder()
	od.QuoteAcknowledged = true
	env.repo.put(domain.ConversationState{Identity: testIdentity, CurrentStep: domain.StepQuoteGeneration, OrderData: od})

	reply, err := env.send(Message{Text: "Yes", ReplyID: replyYes})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reply.sent) != 1 {
		t.Fatalf("expected a single response, got %d", len(reply.sent))
	}
	if got := reply.last(); !strings.Contains(got.body, "couldn't get pricing") {
		t.Fatalf("expected pricing apology, got %q", got.body)
	}
	state := env.state()
	if state.OrderData.PricingDone {
		t.Fatalf("pricingDone must stay false")
	}
	if state.CurrentStep == domain.StepCompleted || !state.IsActive {
		t.Fatalf("conversation must not complete, got %s active=%v", state.CurrentStep, state.IsActive)
	}
	if len(env.pricing.calls) != 1 {
		t.Fatalf("expected one pricing call, got %d", len(env.pricing.calls))
	}
}

func TestPricingAndDocumentCompleteTheQuote(t *testing.T) {
	env := newTestEnv()
	od := completeOrder()
	od.QuoteAcknowledged = true
	created := env.repo.put(domain.ConversationState{Identity: testIdentity, CurrentStep: domain.StepQuoteGeneration, OrderData: od})

	reply, err := env.send(Message{Text: "Yes", ReplyID: replyYes})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := reply.last()
	if !strings.Contains(got.body, "5,000 pcs: USD 0.42 each, total USD 2100.00") {
		t.Fatalf("expected price table, got %q", got.body)
	}
	if !strings.Contains(got.body, msgDocumentPrompt) {
		t.Fatalf("expected PDF prompt, got %q", got.body)
	}

	req := env.pricing.calls[0]
	if req.CategoryExternalID != 10 || req.ProductExternalID != 101 || req.MaterialExternalID != 502 {
		t.Fatalf("unexpected external ids: %+v", req)
	}
	if len(req.Finishes) != 1 || req.Finishes[0].ID != 701 || req.Finishes[0].Value != "Matte" {
		t.Fatalf("unexpected finishes: %+v", req.Finishes)
	}
	if len(req.Dimensions) != 3 || req.Dimensions[0] != 4 || req.Dimensions[1] != 6 || req.Dimensions[2] != 2 {
		t.Fatalf("expected dimensions in declaration order, got %v", req.Dimensions)
	}
	if !env.state().OrderData.PricingDone {
		t.Fatalf("expected pricingDone")
	}

	reply, err = env.send(Message{Text: "Yes", ReplyID: replyYes})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got = reply.last()
	if got.kind != "document" || got.document.Caption != msgDocumentCaption {
		t.Fatalf("expected document with caption, got %+v", got)
	}
	stored, _ := env.repo.Get(context.Background(), created.ID)
	if stored.IsActive || !stored.OrderData.DocumentSent || stored.CurrentStep != domain.StepCompleted {
		t.Fatalf("expected completed conversation with document sent, got %+v", stored)
	}
}

func TestDocumentFailureStillCompletes(t *testing.T) {
	env := newTestEnv()
	env.svc.SetDocuments(&fakeDocuments{err: errBoom})
	od := completeOrder()
	od.QuoteAcknowledged = true
	od.PricingDone = true
	od.PricingData = env.pricing.data
	created := env.repo.put(domain.ConversationState{Identity: testIdentity, CurrentStep: domain.StepQuoteGeneration, OrderData: od})

	reply, err := env.send(Message{Text: "yes", ReplyID: replyYes})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := reply.last(); got.body != msgDocumentFailed {
		t.Fatalf("expected document apology, got %q", got.body)
	}
	stored, _ := env.repo.Get(context.Background(), created.ID)
	if stored.IsActive || stored.OrderData.DocumentSent {
		t.Fatalf("expected completed without document, got %+v", stored)
	}
}

func TestChangedOrderIsSummarisedAgain(t *testing.T) {
	env := newTestEnv()
	od := completeOrder()
	od.QuoteAcknowledged = true
	od.PricingDone = true
	od.PricingData = env.pricing.data
	env.repo.put(domain.ConversationState{Identity: testIdentity, CurrentStep: domain.StepQuoteGeneration, OrderData: od})
	env.extractor.results["make it 10000 instead"] = result(nil, map[nlu.EntityKind][]string{
		nlu.EntityQuantities: {"10000"},
	})

	reply, err := env.send(Message{Text: "make it 10000 instead"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := reply.last(); !strings.Contains(got.body, "order summary") || !strings.Contains(got.body, "10,000") {
		t.Fatalf("expected refreshed summary, got %q", got.body)
	}
	state := env.state()
	if state.OrderData.PricingDone || state.OrderData.PricingData != nil {
		t.Fatalf("expected pricing to be cleared after a change")
	}
}

func TestResetIntentRestartsConversation(t *testing.T) {
	env := newTestEnv()
	od := completeOrder()
	od.SelectedMaterial = nil
	env.repo.put(domain.ConversationState{Identity: testIdentity, CurrentStep: domain.StepMaterialSelection, OrderData: od})
	env.extractor.results["start over"] = result([]nlu.IntentName{nlu.IntentReset}, map[nlu.EntityKind][]string{
		nlu.EntityMaterial: {"PET"},
	})

	reply, err := env.send(Message{Text: "start over"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state := env.state()
	if state.CurrentStep != domain.StepGreetingResponse {
		t.Fatalf("expected greeting_response after reset, got %s", state.CurrentStep)
	}
	if state.OrderData.HasOrderData() {
		t.Fatalf("expected empty order after reset, got %+v", state.OrderData)
	}
	if got := reply.last(); !strings.Contains(got.body, "Welcome") {
		t.Fatalf("expected welcome, got %q", got.body)
	}
}

func TestHandlerErrorResetsWithSingleApology(t *testing.T) {
	env := newTestEnv()
	env.catalog.listErr = errBoom
	od := completeOrder()
	od.SelectedMaterial = nil
	env.repo.put(domain.ConversationState{Identity: testIdentity, CurrentStep: domain.StepFinishSelection, OrderData: od})

	reply, err := env.send(Message{Text: "hmm"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reply.sent) != 1 || reply.last().body != msgApology {
		t.Fatalf("expected a single apology, got %+v", reply.sent)
	}
	state := env.state()
	if state.CurrentStep != domain.StepStart || state.OrderData.HasOrderData() {
		t.Fatalf("expected reset to start, got %s %+v", state.CurrentStep, state.OrderData)
	}
}

func TestNLUFailureDegradesToEmptyResult(t *testing.T) {
	env := newTestEnv()
	env.extractor.err = errBoom

	reply, err := env.send(Message{Text: "hello there"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := reply.last(); got.kind != "buttons" {
		t.Fatalf("expected welcome despite NLU failure, got %+v", got)
	}
}

func TestStaleVersionRetriesWithoutDoubleSend(t *testing.T) {
	env := newTestEnv()
	env.repo.staleSaves = 1

	reply, err := env.send(Message{Text: "hello"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reply.sent) != 1 {
		t.Fatalf("expected exactly one response after retry, got %d", len(reply.sent))
	}
	if env.repo.saves != 1 {
		t.Fatalf("expected one successful save, got %d", env.repo.saves)
	}
}

func TestStaleVersionTwiceFails(t *testing.T) {
	env := newTestEnv()
	env.repo.staleSaves = 2

	reply, err := env.send(Message{Text: "hello"})
	if err == nil {
		t.Fatalf("expected stale version error")
	}
	if len(reply.sent) != 0 {
		t.Fatalf("nothing may be sent when the state could not be saved, got %d", len(reply.sent))
	}
}

func TestEveryStepHasAHandler(t *testing.T) {
	env := newTestEnv()
	for _, step := range domain.Steps {
		state := domain.ConversationState{Identity: testIdentity, CurrentStep: step}
		tr := &turn{state: &state, reply: &pendingReply{}, nlu: nlu.NewResult(), changes: Changes{}}
		err := env.svc.dispatch(context.Background(), tr)
		if err != nil && strings.Contains(err.Error(), "unknown step") {
			t.Fatalf("step %s has no handler", step)
		}
	}

	state := domain.ConversationState{CurrentStep: domain.Step("bogus")}
	tr := &turn{state: &state, reply: &pendingReply{}}
	if err := env.svc.dispatch(context.Background(), tr); err == nil {
		t.Fatalf("expected an error for an unknown step")
	}
}

func TestPendingReplyRefusesSecondMessage(t *testing.T) {
	p := &pendingReply{}
	ctx := context.Background()
	if err := p.SendText(ctx, "one"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.SendText(ctx, "two"); err != ports.ErrResponseAlreadySent {
		t.Fatalf("expected ErrResponseAlreadySent, got %v", err)
	}

	out := &recordingResponder{}
	if err := p.flush(ctx, out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.sent) != 1 || out.sent[0].body != "one" {
		t.Fatalf("expected the first message only, got %+v", out.sent)
	}
}

func TestResetConversationByOperator(t *testing.T) {
	env := newTestEnv()
	created := env.repo.put(domain.ConversationState{Identity: testIdentity, CurrentStep: domain.StepQuantityInput})

	resp, err := env.svc.ResetConversation(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Reason != repository.ReasonAdminReset {
		t.Fatalf("expected admin_reset, got %s", resp.Reason)
	}
	if _, err := env.svc.ResetConversation(context.Background(), created.ID); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict on second reset, got %v", err)
	}
}

func TestQuantityListIsReadItemByItem(t *testing.T) {
	tests := []struct {
		text string
		want []int
	}{
		{text: "250,500,1000", want: []int{250, 500, 1000}},
		{text: "500,1000", want: []int{500, 1000}},
		{text: "1,500 pcs", want: []int{1500}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			env := newTestEnv()
			od := completeOrder()
			od.Quantities = nil
			env.repo.put(domain.ConversationState{Identity: testIdentity, CurrentStep: domain.StepQuantityInput, OrderData: od})

			if _, err := env.send(Message{Text: tt.text}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			state := env.state()
			got := state.OrderData.Quantities
			if len(got) != len(tt.want) {
				t.Fatalf("quantities = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("quantities = %v, want %v", got, tt.want)
				}
			}
			if state.CurrentStep != domain.StepQuoteGeneration {
				t.Fatalf("expected quote_generation, got %s", state.CurrentStep)
			}
		})
	}
}

func TestProductWithoutDimensionsIsPriced(t *testing.T) {
	env := newTestEnv()
	varnishID := uuid.New()
	env.catalog.finishes = append(env.catalog.finishes, domain.OptionRef{ID: varnishID, ExternalID: 801, CategoryID: boxID, Name: "Varnish"})
	text := "500 tuck end boxes in kraft with varnish"
	env.extractor.results[text] = result([]nlu.IntentName{nlu.IntentRequestQuote}, map[nlu.EntityKind][]string{
		nlu.EntityProduct:    {"tuck end box"},
		nlu.EntityMaterial:   {"kraft"},
		nlu.EntityFinishes:   {"varnish"},
		nlu.EntityQuantities: {"500"},
	})

	reply, err := env.send(Message{Text: text})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := reply.last(); !strings.Contains(got.body, "order summary") {
		t.Fatalf("expected summary without a dimension prompt, got %+v", got)
	}

	reply, err = env.send(Message{Text: "Yes", ReplyID: replyYes})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(env.pricing.calls) != 1 {
		t.Fatalf("expected one pricing call, got %d", len(env.pricing.calls))
	}
	req := env.pricing.calls[0]
	if req.CategoryExternalID != 20 || req.ProductExternalID != 201 || len(req.Dimensions) != 0 {
		t.Fatalf("unexpected pricing request %+v", req)
	}
	if !env.state().OrderData.PricingDone {
		t.Fatalf("expected pricingDone, reply %q", reply.last().body)
	}
}

func TestRejectedPricingInputsReaskOwningStep(t *testing.T) {
	env := newTestEnv()
	env.pricing.err = &ports.PricingInputError{Fields: []string{domain.FieldMaterial}}
	od := completeOrder()
	od.QuoteAcknowledged = true
	env.repo.put(domain.ConversationState{Identity: testIdentity, CurrentStep: domain.StepQuoteGeneration, OrderData: od})

	reply, err := env.send(Message{Text: "Yes", ReplyID: replyYes})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reply.sent) != 1 {
		t.Fatalf("expected a single response, got %d", len(reply.sent))
	}
	got := reply.last()
	if got.kind != "list" || !strings.Contains(got.body, msgPricingInputs) {
		t.Fatalf("expected material list with notice, got %+v", got)
	}
	state := env.state()
	if state.CurrentStep != domain.StepMaterialSelection {
		t.Fatalf("expected material_selection, got %s", state.CurrentStep)
	}
	if state.OrderData.SelectedMaterial != nil || state.OrderData.QuoteAcknowledged || state.OrderData.PricingDone {
		t.Fatalf("expected material cleared and summary reset, got %+v", state.OrderData)
	}
}

func TestProductWithUnresolvedCategoryAsksForCategory(t *testing.T) {
	env := newTestEnv()
	env.catalog.products = append(env.catalog.products, domain.ProductRef{ID: uuid.New(), ExternalID: 301, CategoryID: uuid.New(), Name: "Hex Tin"})
	text := "1000 hex tins, PET, matte"
	env.extractor.results[text] = result([]nlu.IntentName{nlu.IntentRequestQuote}, map[nlu.EntityKind][]string{
		nlu.EntityProduct:    {"hex tin"},
		nlu.EntityQuantities: {"1000"},
	})

	reply, err := env.send(Message{Text: text})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := reply.last(); got.kind != "list" || strings.Contains(got.body, "order summary") {
		t.Fatalf("expected category list, got %+v", got)
	}
	if step := env.state().CurrentStep; step != domain.StepCategorySelection {
		t.Fatalf("expected category_selection, got %s", step)
	}
	if len(env.pricing.calls) != 0 {
		t.Fatalf("pricing must not be called")
	}
}
