package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"quote_assistant_backend/internal/conversation/domain"
	"quote_assistant_backend/internal/conversation/ports"
	"quote_assistant_backend/internal/conversation/repository"
	"quote_assistant_backend/internal/nlu"
	"quote_assistant_backend/internal/shared/textfold"
	"quote_assistant_backend/platform/apperr"
	"quote_assistant_backend/platform/logger"
)

var (
	mylarID  = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	boxID    = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	pouchID  = uuid.MustParse("33333333-3333-3333-3333-333333333333")
	tuckID   = uuid.MustParse("44444444-4444-4444-4444-444444444444")
	petID    = uuid.MustParse("55555555-5555-5555-5555-555555555555")
	foilID   = uuid.MustParse("66666666-6666-6666-6666-666666666666")
	matteID  = uuid.MustParse("77777777-7777-7777-7777-777777777777")
	glossID  = uuid.MustParse("88888888-8888-8888-8888-888888888888")
	kraftID  = uuid.MustParse("99999999-9999-9999-9999-999999999999")
	maxWidth = 20.0
)

// fakeRepo is an in-memory conversation store with version checks.
type fakeRepo struct {
	mu     sync.Mutex
	byID   map[uuid.UUID]domain.ConversationState
	active map[string]uuid.UUID
	// staleSaves makes the next n saves fail with ErrStaleVersion.
	staleSaves int
	saves      int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: make(map[uuid.UUID]domain.ConversationState), active: make(map[string]uuid.UUID)}
}

func (f *fakeRepo) put(state domain.ConversationState) domain.ConversationState {
	f.mu.Lock()
	defer f.mu.Unlock()
	if state.ID == uuid.Nil {
		state.ID = uuid.New()
	}
	if state.Version == 0 {
		state.Version = 1
	}
	state.IsActive = true
	f.byID[state.ID] = state
	f.active[state.Identity] = state.ID
	return state
}

func (f *fakeRepo) activeState(identity string) (domain.ConversationState, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.active[identity]
	if !ok {
		return domain.ConversationState{}, false
	}
	return f.byID[id], true
}

func (f *fakeRepo) FindActive(ctx context.Context, identity string) (domain.ConversationState, error) {
	if state, ok := f.activeState(identity); ok {
		return state, nil
	}
	return domain.ConversationState{}, apperr.NotFound("conversation not found")
}

func (f *fakeRepo) FindOrCreateActive(ctx context.Context, identity string) (domain.ConversationState, bool, error) {
	if state, ok := f.activeState(identity); ok {
		return state, false, nil
	}
	now := time.Now()
	state := f.put(domain.ConversationState{
		Identity:    identity,
		CurrentStep: domain.StepStart,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	return state, true, nil
}

func (f *fakeRepo) Save(ctx context.Context, state *domain.ConversationState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.staleSaves > 0 {
		f.staleSaves--
		return repository.ErrStaleVersion
	}
	stored, ok := f.byID[state.ID]
	if !ok || stored.Version != state.Version {
		return repository.ErrStaleVersion
	}
	state.Version++
	state.UpdatedAt = time.Now()
	f.byID[state.ID] = *state
	if !state.IsActive && f.active[state.Identity] == state.ID {
		delete(f.active, state.Identity)
	}
	f.saves++
	return nil
}

func (f *fakeRepo) Deactivate(ctx context.Context, id uuid.UUID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.byID[id]
	if !ok || !state.IsActive {
		return apperr.NotFound("conversation not found")
	}
	state.IsActive = false
	state.DeactivatedReason = reason
	state.Version++
	f.byID[id] = state
	delete(f.active, state.Identity)
	return nil
}

func (f *fakeRepo) Get(ctx context.Context, id uuid.UUID) (domain.ConversationState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.byID[id]
	if !ok {
		return domain.ConversationState{}, apperr.NotFound("conversation not found")
	}
	return state, nil
}

func (f *fakeRepo) ListActive(ctx context.Context, params repository.ListParams) ([]domain.ConversationState, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]domain.ConversationState, 0, len(f.active))
	for _, id := range f.active {
		items = append(items, f.byID[id])
	}
	total := len(items)
	if params.Offset >= len(items) {
		return []domain.ConversationState{}, total, nil
	}
	items = items[params.Offset:]
	if params.Limit > 0 && len(items) > params.Limit {
		items = items[:params.Limit]
	}
	return items, total, nil
}

func (f *fakeRepo) DeactivateStale(ctx context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for identity, id := range f.active {
		state := f.byID[id]
		if state.LastMessageAt.Before(before) {
			state.IsActive = false
			state.DeactivatedReason = repository.ReasonStale
			f.byID[id] = state
			delete(f.active, identity)
			n++
		}
	}
	return n, nil
}

// fakeCatalog matches folded names the way the catalog service does for
// the simple cases these tests need.
type fakeCatalog struct {
	categories []domain.CategoryRef
	products   []domain.ProductRef
	materials  []domain.OptionRef
	finishes   []domain.OptionRef
	listErr    error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		categories: []domain.CategoryRef{
			{ID: mylarID, ExternalID: 10, Name: "Mylar Bag"},
			{ID: boxID, ExternalID: 20, Name: "Folding Carton"},
		},
		products: []domain.ProductRef{
			{ID: pouchID, ExternalID: 101, CategoryID: mylarID, Name: "Stand-Up Pouch", Dimensions: []domain.DimensionSpec{
				{Name: "W", Unit: "in", Required: true, Max: &maxWidth},
				{Name: "H", Unit: "in", Required: true},
				{Name: "G", Unit: "in", Required: true},
			}},
			{ID: tuckID, ExternalID: 201, CategoryID: boxID, Name: "Tuck End Box"},
		},
		materials: []domain.OptionRef{
			{ID: petID, ExternalID: 502, CategoryID: mylarID, Name: "PET"},
			{ID: foilID, ExternalID: 501, CategoryID: mylarID, Name: "Silver Foil"},
			{ID: kraftID, ExternalID: 601, CategoryID: boxID, Name: "Kraft"},
		},
		finishes: []domain.OptionRef{
			{ID: matteID, ExternalID: 701, CategoryID: mylarID, Name: "Matte"},
			{ID: glossID, ExternalID: 702, CategoryID: mylarID, Name: "Gloss"},
		},
	}
}

func nameMatches(text, name string) bool {
	folded := textfold.Fold(text)
	target := textfold.Fold(name)
	return folded != "" && (textfold.ContainsPhrase(folded, target) || textfold.ContainsPhrase(target, folded))
}

func replyRef(text, prefix string) (uuid.UUID, bool) {
	if !strings.HasPrefix(text, prefix) {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(strings.TrimPrefix(text, prefix))
	return id, err == nil
}

func inScope(categoryID uuid.UUID, scope *uuid.UUID) bool {
	return scope == nil || *scope == categoryID
}

func (f *fakeCatalog) FindCategory(ctx context.Context, text string) (*domain.CategoryRef, error) {
	id, byID := replyRef(text, ports.CategoryReplyPrefix)
	for _, c := range f.categories {
		if (byID && c.ID == id) || (!byID && nameMatches(text, c.Name)) {
			c := c
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeCatalog) FindProduct(ctx context.Context, text string, categoryID *uuid.UUID) (*domain.ProductRef, error) {
	id, byID := replyRef(text, ports.ProductReplyPrefix)
	for _, p := range f.products {
		if !inScope(p.CategoryID, categoryID) {
			continue
		}
		if (byID && p.ID == id) || (!byID && nameMatches(text, p.Name)) {
			p := p
			return &p, nil
		}
	}
	return nil, nil
}

func findOption(options []domain.OptionRef, prefix, text string, categoryID *uuid.UUID) *domain.OptionRef {
	id, byID := replyRef(text, prefix)
	for _, o := range options {
		if !inScope(o.CategoryID, categoryID) {
			continue
		}
		if (byID && o.ID == id) || (!byID && nameMatches(text, o.Name)) {
			o := o
			return &o
		}
	}
	return nil
}

func (f *fakeCatalog) FindMaterial(ctx context.Context, text string, categoryID *uuid.UUID) (*domain.OptionRef, error) {
	return findOption(f.materials, ports.MaterialReplyPrefix, text, categoryID), nil
}

func (f *fakeCatalog) FindFinish(ctx context.Context, text string, categoryID *uuid.UUID) (*domain.OptionRef, error) {
	return findOption(f.finishes, ports.FinishReplyPrefix, text, categoryID), nil
}

func (f *fakeCatalog) GetCategory(ctx context.Context, id uuid.UUID) (*domain.CategoryRef, error) {
	for _, c := range f.categories {
		if c.ID == id {
			c := c
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeCatalog) ListCategories(ctx context.Context) ([]domain.CategoryRef, error) {
	return f.categories, f.listErr
}

func (f *fakeCatalog) ListProducts(ctx context.Context, categoryID *uuid.UUID) ([]domain.ProductRef, error) {
	out := make([]domain.ProductRef, 0)
	for _, p := range f.products {
		if inScope(p.CategoryID, categoryID) {
			out = append(out, p)
		}
	}
	return out, f.listErr
}

func scoped(options []domain.OptionRef, categoryID *uuid.UUID) []domain.OptionRef {
	out := make([]domain.OptionRef, 0)
	for _, o := range options {
		if inScope(o.CategoryID, categoryID) {
			out = append(out, o)
		}
	}
	return out
}

func (f *fakeCatalog) ListMaterials(ctx context.Context, categoryID *uuid.UUID) ([]domain.OptionRef, error) {
	return scoped(f.materials, categoryID), f.listErr
}

func (f *fakeCatalog) ListFinishes(ctx context.Context, categoryID *uuid.UUID) ([]domain.OptionRef, error) {
	return scoped(f.finishes, categoryID), f.listErr
}

// stubExtractor returns canned results keyed by message text.
type stubExtractor struct {
	results map[string]nlu.Result
	err     error
}

func (s *stubExtractor) Extract(ctx context.Context, text string) (nlu.Result, error) {
	if s.err != nil {
		return nlu.Result{}, s.err
	}
	if r, ok := s.results[text]; ok {
		return r, nil
	}
	return nlu.NewResult(), nil
}

type fakePricing struct {
	data  *domain.PricingData
	err   error
	calls []ports.PricingRequest
}

func (f *fakePricing) Quote(ctx context.Context, req ports.PricingRequest) (*domain.PricingData, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	copied := *f.data
	return &copied, nil
}

type fakeDocuments struct {
	err error
}

func (f *fakeDocuments) BuildQuoteDocument(ctx context.Context, state domain.ConversationState) (ports.Document, error) {
	if f.err != nil {
		return ports.Document{}, f.err
	}
	return ports.Document{Filename: "quote.pdf", MimeType: "application/pdf", Content: []byte("%PDF-1.4")}, nil
}

type sentMessage struct {
	kind     string
	body     string
	buttons  []ports.Button
	sections []ports.ListSection
	document ports.Document
}

// recordingResponder captures what would go to the customer.
type recordingResponder struct {
	sent []sentMessage
	err  error
}

func (r *recordingResponder) record(m sentMessage) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, m)
	return nil
}

func (r *recordingResponder) SendText(ctx context.Context, body string) error {
	return r.record(sentMessage{kind: "text", body: body})
}

func (r *recordingResponder) SendButtons(ctx context.Context, body string, buttons []ports.Button) error {
	return r.record(sentMessage{kind: "buttons", body: body, buttons: buttons})
}

func (r *recordingResponder) SendList(ctx context.Context, body, buttonLabel string, sections []ports.ListSection) error {
	return r.record(sentMessage{kind: "list", body: body, sections: sections})
}

func (r *recordingResponder) SendDocument(ctx context.Context, doc ports.Document) error {
	return r.record(sentMessage{kind: "document", document: doc})
}

func (r *recordingResponder) Sent() bool { return len(r.sent) > 0 }

func (r *recordingResponder) last() sentMessage {
	if len(r.sent) == 0 {
		return sentMessage{}
	}
	return r.sent[len(r.sent)-1]
}

type testEnv struct {
	svc       *Service
	repo      *fakeRepo
	catalog   *fakeCatalog
	extractor *stubExtractor
	pricing   *fakePricing
}

func newTestEnv() *testEnv {
	env := &testEnv{
		repo:      newFakeRepo(),
		catalog:   newFakeCatalog(),
		extractor: &stubExtractor{results: make(map[string]nlu.Result)},
		pricing: &fakePricing{data: &domain.PricingData{
			Currency: "USD",
			Tiers: []domain.PricingTier{
				{Quantity: 5000, UnitCost: 0.42, Total: 2100},
			},
		}},
	}
	env.svc = New(env.repo, env.catalog, env.extractor, env.pricing, Config{CompanyName: "Acme Packaging"}, logger.Discard())
	env.svc.SetDocuments(&fakeDocuments{})
	return env
}

// send runs one turn and returns what the customer received.
func (e *testEnv) send(msg Message) (*recordingResponder, error) {
	if msg.Identity == "" {
		msg.Identity = testIdentity
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	reply := &recordingResponder{}
	err := e.svc.HandleMessage(context.Background(), msg, reply)
	return reply, err
}

func (e *testEnv) state() domain.ConversationState {
	state, _ := e.repo.activeState(testIdentity)
	return state
}

const testIdentity = "+15551234567"

var errBoom = errors.New("boom")

func result(intents []nlu.IntentName, entities map[nlu.EntityKind][]string) nlu.Result {
	r := nlu.NewResult()
	for _, name := range intents {
		r.AddIntent(nlu.Intent{Name: name, Confidence: 0.9})
	}
	for kind, values := range entities {
		for _, v := range values {
			r.Add(kind, nlu.Entity{Value: v, Confidence: 0.9, RawText: v})
		}
	}
	return r
}

func completeOrder() domain.OrderData {
	catalog := newFakeCatalog()
	category := catalog.categories[0]
	product := catalog.products[0]
	material := catalog.materials[0]
	return domain.OrderData{
		WantsQuote:       true,
		SelectedCategory: &category,
		SelectedProduct:  &product,
		Dimensions: []domain.Dimension{
			{Name: "W", Value: 4}, {Name: "H", Value: 6}, {Name: "G", Value: 2},
		},
		SelectedMaterial: &material,
		SelectedFinishes: []domain.OptionRef{catalog.finishes[0]},
		Quantities:       []int{5000},
	}
}
