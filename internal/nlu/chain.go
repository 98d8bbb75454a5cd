package nlu

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"quote_assistant_backend/platform/config"
	"quote_assistant_backend/platform/logger"
)

// Chain runs a primary extractor and a fallback side by side. The primary
// result wins; fallback intents are merged in and fallback entities fill
// kinds the primary left empty. If the primary fails the fallback result is
// returned alone.
type Chain struct {
	primary  Extractor
	fallback Extractor
	log      *logger.Logger
}

// NewChain creates a chained extractor.
func NewChain(primary, fallback Extractor, log *logger.Logger) *Chain {
	return &Chain{primary: primary, fallback: fallback, log: log}
}

// Compile-time check that Chain implements Extractor.
var _ Extractor = (*Chain)(nil)

// Extract implements Extractor.
func (c *Chain) Extract(ctx context.Context, text string) (Result, error) {
	var (
		primary, fallback       Result
		primaryErr, fallbackErr error
		g                       errgroup.Group
	)
	g.Go(func() error {
		primary, primaryErr = c.primary.Extract(ctx, text)
		return nil
	})
	g.Go(func() error {
		fallback, fallbackErr = c.fallback.Extract(ctx, text)
		return nil
	})
	_ = g.Wait()

	if primaryErr != nil {
		c.log.WithContext(ctx).Warn("primary nlu failed, using fallback", "error", primaryErr)
		if fallbackErr != nil {
			return Result{}, errors.Join(primaryErr, fallbackErr)
		}
		return fallback, nil
	}
	if fallbackErr != nil {
		return primary, nil
	}

	merged := primary
	if merged.Entities == nil {
		merged.Entities = make(map[EntityKind][]Entity)
	}
	for _, in := range fallback.Intents {
		merged.AddIntent(in)
	}
	for kind, list := range fallback.Entities {
		if len(merged.Entities[kind]) == 0 && len(list) > 0 {
			merged.Entities[kind] = list
		}
	}
	return merged, nil
}

// New builds the extractor selected by configuration. The rule extractor is
// always available and backs the LLM provider.
func New(ctx context.Context, cfg config.NLUConfig, vocab VocabularySource, log *logger.Logger) (Extractor, error) {
	lexicon, err := LoadLexicon(cfg.GetNLULexiconPath())
	if err != nil {
		return nil, err
	}
	rules := NewRuleExtractor(lexicon, vocab, log)

	switch cfg.GetNLUProvider() {
	case "", "rules":
		return rules, nil
	case "gemini":
		gemini, err := NewGeminiExtractor(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		return NewChain(gemini, rules, log), nil
	default:
		return nil, fmt.Errorf("unknown nlu provider %q", cfg.GetNLUProvider())
	}
}
