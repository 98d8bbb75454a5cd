package adapters

import (
	"context"
	"fmt"

	catalogsvc "quote_assistant_backend/internal/catalog/service"
	"quote_assistant_backend/internal/catalog/transport"
	"quote_assistant_backend/internal/nlu"
)

// CatalogVocabulary feeds catalog names and aliases to the rule-based
// extractor.
type CatalogVocabulary struct {
	svc *catalogsvc.Service
}

// NewCatalogVocabulary creates a new vocabulary adapter.
func NewCatalogVocabulary(svc *catalogsvc.Service) *CatalogVocabulary {
	return &CatalogVocabulary{svc: svc}
}

// Compile-time check that CatalogVocabulary implements nlu.VocabularySource.
var _ nlu.VocabularySource = (*CatalogVocabulary)(nil)

var termKinds = map[transport.TermKind]nlu.EntityKind{
	transport.TermCategory: nlu.EntityCategory,
	transport.TermProduct:  nlu.EntityProduct,
	transport.TermMaterial: nlu.EntityMaterial,
	transport.TermFinish:   nlu.EntityFinishes,
}

// Terms lists every active catalog term tagged with its entity kind.
func (a *CatalogVocabulary) Terms(ctx context.Context) ([]nlu.Term, error) {
	vocab, err := a.svc.Vocabulary(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog vocabulary: %w", err)
	}
	terms := make([]nlu.Term, 0, len(vocab))
	for _, v := range vocab {
		kind, ok := termKinds[v.Kind]
		if !ok {
			continue
		}
		terms = append(terms, nlu.Term{Kind: kind, Text: v.Text})
	}
	return terms, nil
}
