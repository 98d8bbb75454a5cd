package nlu

import (
	"context"
	"errors"
	"testing"
	"time"

	"quote_assistant_backend/platform/logger"
)

type staticVocabulary struct {
	terms []Term
	err   error
	calls int
}

func (s *staticVocabulary) Terms(ctx context.Context) ([]Term, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.terms, nil
}

func testVocabulary() *staticVocabulary {
	return &staticVocabulary{terms: []Term{
		{Kind: EntityCategory, Text: "Mylar Bag"},
		{Kind: EntityCategory, Text: "pouch bags"},
		{Kind: EntityProduct, Text: "Stand-Up Pouch"},
		{Kind: EntityProduct, Text: "Pouch"},
		{Kind: EntityMaterial, Text: "PET"},
		{Kind: EntityMaterial, Text: "Silver Foil"},
		{Kind: EntityMaterial, Text: "Silver Foil"},
		{Kind: EntityFinishes, Text: "Matte"},
		{Kind: EntityFinishes, Text: "Spot UV"},
	}}
}

func newTestRules(t *testing.T, vocab VocabularySource) *RuleExtractor {
	t.Helper()
	lex, err := DefaultLexicon()
	if err != nil {
		t.Fatalf("load default lexicon: %v", err)
	}
	return NewRuleExtractor(lex, vocab, logger.Discard())
}

func values(list []Entity) []string {
	out := make([]string, len(list))
	for i, e := range list {
		out[i] = e.Value
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRuleExtractorFullOrderMessage(t *testing.T) {
	r := newTestRules(t, testVocabulary())

	res, err := r.Extract(context.Background(), "Need 5000 stand up pouches, 4x6x2, PET material, matte finish")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	checks := map[EntityKind][]string{
		EntityProduct:    {"Stand-Up Pouch"},
		EntityDimensions: {"4x6x2"},
		EntityMaterial:   {"PET"},
		EntityFinishes:   {"Matte"},
		EntityQuantities: {"5000"},
	}
	for kind, want := range checks {
		if got := values(res.Entities[kind]); !equalStrings(got, want) {
			t.Errorf("%s = %v, want %v", kind, got, want)
		}
	}
	if got := res.Entities[EntityQuantities][0].Confidence; got <= 0.5 {
		t.Fatalf("cued quantity confidence = %v, want > 0.5", got)
	}
	if len(res.Entities[EntityCategory]) != 0 {
		t.Fatalf("expected no category, got %v", values(res.Entities[EntityCategory]))
	}
}

func TestRuleExtractorDimensionFormats(t *testing.T) {
	r := newTestRules(t, nil)

	tests := map[string]string{
		"4x6":                 "4x6",
		"4 × 6 × 2":           "4x6x2",
		"4.5in x 6in":         "4.5x6",
		"size 100mm by 150mm": "100x150",
		"4X6X2":               "4x6x2",
	}
	for text, want := range tests {
		res, _ := r.Extract(context.Background(), text)
		got := values(res.Entities[EntityDimensions])
		if len(got) != 1 || got[0] != want {
			t.Errorf("Extract(%q) dimensions = %v, want [%s]", text, got, want)
		}
		if len(res.Entities[EntityQuantities]) != 0 {
			t.Errorf("Extract(%q) leaked quantities %v", text, values(res.Entities[EntityQuantities]))
		}
	}
}

func TestRuleExtractorQuantities(t *testing.T) {
	r := newTestRules(t, nil)

	res, _ := r.Extract(context.Background(), "qty 1000, 2000 and 1,500 pcs; 80 micron, 6\" wide, ref #20")
	got := values(res.Entities[EntityQuantities])
	want := []string{"1000", "2000", "1500"}
	if !equalStrings(got, want) {
		t.Fatalf("quantities = %v, want %v", got, want)
	}
	for _, e := range res.Entities[EntityQuantities] {
		if e.Confidence <= 0.5 {
			t.Fatalf("quantity %s should be cued, confidence %v", e.Value, e.Confidence)
		}
	}
}

func TestRuleExtractorQuantityLists(t *testing.T) {
	r := newTestRules(t, nil)

	tests := []struct {
		text string
		want []string
	}{
		{text: "qty 250,500,1000", want: []string{"250", "500", "1000"}},
		{text: "quantities 500,1000 pcs", want: []string{"500", "1000"}},
		{text: "1,500 pcs", want: []string{"1500"}},
		{text: "qty 250,000", want: []string{"250000"}},
		{text: "qty 250,500", want: []string{"250", "500"}},
		{text: "qty 10_000 pcs", want: []string{"10000"}},
	}
	for _, tt := range tests {
		res, err := r.Extract(context.Background(), tt.text)
		if err != nil {
			t.Fatalf("Extract(%q): %v", tt.text, err)
		}
		if got := values(res.Entities[EntityQuantities]); !equalStrings(got, tt.want) {
			t.Errorf("Extract(%q) quantities = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestParseQuantities(t *testing.T) {
	tests := []struct {
		text string
		want []int
	}{
		{text: "250,500,1000", want: []int{250, 500, 1000}},
		{text: "500,1000", want: []int{500, 1000}},
		{text: "1,500 pcs", want: []int{1500}},
		{text: "1,000,000", want: []int{1000000}},
		{text: "100, 200 and 300", want: []int{100, 200, 300}},
		{text: "0, 5", want: []int{5}},
		{text: "none", want: nil},
	}
	for _, tt := range tests {
		got := ParseQuantities(tt.text)
		if len(got) != len(tt.want) {
			t.Errorf("ParseQuantities(%q) = %v, want %v", tt.text, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("ParseQuantities(%q) = %v, want %v", tt.text, got, tt.want)
				break
			}
		}
	}
}

func TestRuleExtractorBareNumbersStayBelowThreshold(t *testing.T) {
	r := newTestRules(t, nil)

	res, _ := r.Extract(context.Background(), "4 6 2")
	if len(res.Entities[EntityQuantities]) != 3 {
		t.Fatalf("expected three bare numbers, got %v", values(res.Entities[EntityQuantities]))
	}
	for _, e := range res.Entities[EntityQuantities] {
		if e.Confidence > 0.5 {
			t.Fatalf("bare number %s must not pass the reconcile threshold", e.Value)
		}
	}
}

func TestRuleExtractorIntents(t *testing.T) {
	r := newTestRules(t, nil)

	tests := []struct {
		text string
		want IntentName
		not  IntentName
	}{
		{text: "Hi there!", want: IntentGreeting},
		{text: "Yes please", want: IntentAffirm, not: IntentDeny},
		{text: "no thanks", want: IntentDeny, not: IntentAffirm},
		{text: "Nope", want: IntentDeny},
		{text: "let's start over", want: IntentReset},
		{text: "how much for 500 labels?", want: IntentRequestQuote},
		{text: "not sure yet", not: IntentDeny},
	}
	for _, tt := range tests {
		res, err := r.Extract(context.Background(), tt.text)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tt.want != "" && !res.HasIntent(tt.want, 0.5) {
			t.Errorf("Extract(%q) missing intent %s, got %+v", tt.text, tt.want, res.Intents)
		}
		if tt.not != "" && res.HasIntent(tt.not, 0) {
			t.Errorf("Extract(%q) unexpectedly has intent %s", tt.text, tt.not)
		}
	}
}

func TestRuleExtractorEmptyTextIsEmptyResult(t *testing.T) {
	r := newTestRules(t, testVocabulary())
	res, err := r.Extract(context.Background(), "   ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Empty() {
		t.Fatalf("expected empty result, got %+v", res)
	}
}

func TestRuleExtractorDeduplicatesVocabulary(t *testing.T) {
	r := newTestRules(t, testVocabulary())
	res, _ := r.Extract(context.Background(), "silver foil please")
	if got := values(res.Entities[EntityMaterial]); !equalStrings(got, []string{"Silver Foil"}) {
		t.Fatalf("materials = %v, want one Silver Foil", got)
	}
}

func TestRuleExtractorCachesVocabulary(t *testing.T) {
	vocab := testVocabulary()
	r := newTestRules(t, vocab)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	ctx := context.Background()
	_, _ = r.Extract(ctx, "pet")
	_, _ = r.Extract(ctx, "matte")
	if vocab.calls != 1 {
		t.Fatalf("expected one vocabulary load, got %d", vocab.calls)
	}

	now = now.Add(defaultVocabularyTTL + time.Second)
	vocab.err = errors.New("db down")
	res, _ := r.Extract(ctx, "pet")
	if vocab.calls != 2 {
		t.Fatalf("expected reload after ttl, got %d calls", vocab.calls)
	}
	if got := values(res.Entities[EntityMaterial]); !equalStrings(got, []string{"PET"}) {
		t.Fatalf("stale vocabulary should still match, got %v", got)
	}
}

func TestParseLexiconRequiresYesNo(t *testing.T) {
	if _, err := ParseLexicon([]byte("greetings: [hi]\n")); err == nil {
		t.Fatal("expected error for lexicon without affirmatives")
	}
	lex, err := ParseLexicon([]byte("affirmatives: [\"Yes\", \"yes\"]\nnegatives: [\"No\"]\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !equalStrings(lex.Affirmatives, []string{"yes"}) {
		t.Fatalf("affirmatives = %v, want folded and deduplicated", lex.Affirmatives)
	}
}
