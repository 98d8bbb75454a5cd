package nlu

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"quote_assistant_backend/internal/shared/textfold"
	"quote_assistant_backend/platform/logger"
)

const (
	vocabularyTermConfidence = 0.9
	dimensionConfidence      = 0.85
	cuedQuantityConfidence   = 0.85
	// Bare numbers sit at the reconciler threshold so they never count as
	// quantities on their own.
	bareQuantityConfidence = 0.5
	intentConfidence       = 0.9

	defaultVocabularyTTL = 5 * time.Minute
)

var (
	dimensionPattern = regexp.MustCompile(`(?i)\d+(?:\.\d+)?\s*(?:"|inches|inch|in|mm|cm)?(?:\s*(?:x|×|\*|by)\s*\d+(?:\.\d+)?\s*(?:"|inches|inch|in|mm|cm)?){1,3}`)
	decimalPattern   = regexp.MustCompile(`\d+(?:\.\d+)?`)
	quantityPattern  = regexp.MustCompile(`(#?)(\d+(?:[,_]\d+)*)(")?(?:\s*([\p{L}]+))?`)
)

// Term is a catalog name the rule extractor should recognise.
type Term struct {
	Kind EntityKind
	Text string
}

// VocabularySource supplies catalog terms.
type VocabularySource interface {
	Terms(ctx context.Context) ([]Term, error)
}

type foldedTerm struct {
	Term
	folded string
}

// RuleExtractor recognises intents, dimensions, quantities and catalog terms
// with keyword lists and regular expressions.
type RuleExtractor struct {
	lexicon *Lexicon
	vocab   VocabularySource
	ttl     time.Duration
	log     *logger.Logger
	now     func() time.Time

	mu       sync.Mutex
	terms    map[EntityKind][]foldedTerm
	loadedAt time.Time
}

// NewRuleExtractor creates a rule-based extractor. vocab may be nil.
func NewRuleExtractor(lexicon *Lexicon, vocab VocabularySource, log *logger.Logger) *RuleExtractor {
	return &RuleExtractor{
		lexicon: lexicon,
		vocab:   vocab,
		ttl:     defaultVocabularyTTL,
		log:     log,
		now:     time.Now,
	}
}

// Compile-time check that RuleExtractor implements Extractor.
var _ Extractor = (*RuleExtractor)(nil)

// Extract never fails; vocabulary load errors fall back to the last good copy.
func (r *RuleExtractor) Extract(ctx context.Context, text string) (Result, error) {
	result := NewResult()
	text = strings.TrimSpace(text)
	if text == "" {
		return result, nil
	}
	folded := textfold.Fold(text)

	r.extractIntents(folded, &result)
	remaining := r.extractDimensions(text, &result)
	r.extractQuantities(remaining, &result)
	r.extractTerms(ctx, folded, &result)

	return result, nil
}

func (r *RuleExtractor) extractIntents(folded string, result *Result) {
	lex := r.lexicon
	if containsAny(folded, lex.Reset) {
		result.AddIntent(Intent{Name: IntentReset, Confidence: intentConfidence})
	}
	if startsWithAny(folded, lex.Greetings) {
		result.AddIntent(Intent{Name: IntentGreeting, Confidence: intentConfidence})
	}
	if containsAny(folded, lex.QuoteRequests) {
		result.AddIntent(Intent{Name: IntentRequestQuote, Confidence: intentConfidence})
	}

	switch {
	case startsWithAny(folded, lex.Negatives):
		result.AddIntent(Intent{Name: IntentDeny, Confidence: intentConfidence})
	case startsWithAny(folded, lex.Affirmatives):
		result.AddIntent(Intent{Name: IntentAffirm, Confidence: intentConfidence})
	}
}

// extractDimensions records every dimension group and returns the text with
// those spans blanked out.
func (r *RuleExtractor) extractDimensions(text string, result *Result) string {
	matches := dimensionPattern.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		raw := text[m[0]:m[1]]
		numbers := decimalPattern.FindAllString(raw, -1)
		result.Add(EntityDimensions, Entity{
			Value:      strings.Join(numbers, "x"),
			Confidence: dimensionConfidence,
			RawText:    strings.TrimSpace(raw),
		})
		b.WriteString(text[last:m[0]])
		b.WriteString(strings.Repeat(" ", m[1]-m[0]))
		last = m[1]
	}
	b.WriteString(text[last:])
	return b.String()
}

func (r *RuleExtractor) extractQuantities(text string, result *Result) {
	lex := r.lexicon
	for _, m := range quantityPattern.FindAllStringSubmatchIndex(text, -1) {
		if m[3] > m[2] || m[7] > m[6] {
			// "#12" is a catalog id and 6" is a measurement.
			continue
		}
		raw := text[m[4]:m[5]]
		var next string
		if m[8] >= 0 {
			next = textfold.Fold(text[m[8]:m[9]])
		}
		if next != "" && isOneOf(next, lex.MeasureUnits) {
			continue
		}

		values := SplitNumberRun(raw)
		if len(values) == 0 {
			continue
		}

		confidence := bareQuantityConfidence
		before := textfold.Fold(text[:m[0]])
		if (next != "" && isOneOf(next, lex.QuantityMarkers)) || containsAny(before, lex.QuantityCues) {
			confidence = cuedQuantityConfidence
		}
		rawText := strings.TrimSpace(text[m[0]:m[1]])
		for _, n := range values {
			if len(values) > 1 {
				rawText = strconv.Itoa(n)
			}
			result.Add(EntityQuantities, Entity{
				Value:      strconv.Itoa(n),
				Confidence: confidence,
				RawText:    rawText,
			})
		}
	}
}

func (r *RuleExtractor) extractTerms(ctx context.Context, folded string, result *Result) {
	terms := r.vocabulary(ctx)
	for _, kind := range Kinds {
		list := terms[kind]
		if len(list) == 0 {
			continue
		}
		working := " " + folded + " "
		for _, term := range list {
			needle := " " + term.folded + " "
			if !strings.Contains(working, needle) {
				continue
			}
			result.Add(kind, Entity{Value: term.Text, Confidence: vocabularyTermConfidence, RawText: term.Text})
			// Mask the match so shorter names inside it ("Pouch" in
			// "Stand-Up Pouch") are not reported again.
			working = strings.ReplaceAll(working, needle, " "+strings.Repeat("#", len(term.folded))+" ")
		}
	}
}

// vocabulary returns folded terms grouped by kind, longest first, reloading
// them from the source once the cached copy is older than ttl.
func (r *RuleExtractor) vocabulary(ctx context.Context) map[EntityKind][]foldedTerm {
	if r.vocab == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.terms != nil && r.now().Sub(r.loadedAt) < r.ttl {
		return r.terms
	}

	raw, err := r.vocab.Terms(ctx)
	if err != nil {
		r.log.WithContext(ctx).Warn("nlu vocabulary refresh failed", "error", err)
		return r.terms
	}

	grouped := make(map[EntityKind][]foldedTerm)
	seen := make(map[string]struct{})
	for _, t := range raw {
		folded := textfold.Fold(t.Text)
		key := string(t.Kind) + "|" + folded
		if folded == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		grouped[t.Kind] = append(grouped[t.Kind], foldedTerm{Term: t, folded: folded})
	}
	for kind := range grouped {
		list := grouped[kind]
		sort.SliceStable(list, func(i, j int) bool {
			return len(list[i].folded) > len(list[j].folded)
		})
	}

	r.terms = grouped
	r.loadedAt = r.now()
	return r.terms
}
