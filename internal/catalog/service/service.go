package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"quote_assistant_backend/internal/catalog/repository"
	"quote_assistant_backend/internal/catalog/transport"
	"quote_assistant_backend/platform/apperr"
	"quote_assistant_backend/platform/logger"
)

const defaultLookupTimeout = 3 * time.Second

// Reply ids sent in interactive list rows, resolved without fuzzy matching.
const (
	CategoryRefPrefix = "category:"
	ProductRefPrefix  = "product:"
	MaterialRefPrefix = "material:"
	FinishRefPrefix   = "finish:"
)

// Service provides catalog lookups for the conversation flow and the read API.
type Service struct {
	repo    repository.Repository
	log     *logger.Logger
	timeout time.Duration
}

// New creates a new catalog service.
func New(repo repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log, timeout: defaultLookupTimeout}
}

// FindCategory resolves free text or a "category:<id>" reply to an active
// category. It returns nil without error when nothing matches.
func (s *Service) FindCategory(ctx context.Context, text string) (*repository.Category, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if id, ok := refID(text, CategoryRefPrefix); ok {
		category, err := s.repo.GetCategory(ctx, id)
		return foundOrNil(&category, err)
	}

	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]matchable, len(categories))
	for i, c := range categories {
		rows[i] = matchable{name: c.Name, aliases: c.Aliases, description: c.Description, externalID: c.ExternalID}
	}
	if idx := bestMatch(text, rows); idx >= 0 {
		return &categories[idx], nil
	}
	return nil, nil
}

// FindProduct resolves text to an active product, scoped to categoryID when set.
func (s *Service) FindProduct(ctx context.Context, text string, categoryID *uuid.UUID) (*repository.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if id, ok := refID(text, ProductRefPrefix); ok {
		product, err := s.repo.GetProduct(ctx, id)
		if err == nil && !inScope(product.CategoryID, categoryID) {
			return nil, nil
		}
		return foundOrNil(&product, err)
	}

	products, err := s.repo.ListProducts(ctx, repository.ListProductsParams{CategoryID: categoryID})
	if err != nil {
		return nil, err
	}
	rows := make([]matchable, len(products))
	for i, p := range products {
		rows[i] = matchable{name: p.Name, description: p.Description, externalID: p.ExternalID}
	}
	if idx := bestMatch(text, rows); idx >= 0 {
		return &products[idx], nil
	}
	return nil, nil
}

// FindMaterial resolves text to an active material, scoped to categoryID when set.
func (s *Service) FindMaterial(ctx context.Context, text string, categoryID *uuid.UUID) (*repository.Option, error) {
	return s.findOption(ctx, repository.OptionMaterial, MaterialRefPrefix, text, categoryID)
}

// FindFinish resolves text to an active finish, scoped to categoryID when set.
func (s *Service) FindFinish(ctx context.Context, text string, categoryID *uuid.UUID) (*repository.Option, error) {
	return s.findOption(ctx, repository.OptionFinish, FinishRefPrefix, text, categoryID)
}

func (s *Service) findOption(ctx context.Context, kind repository.OptionKind, prefix, text string, categoryID *uuid.UUID) (*repository.Option, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if id, ok := refID(text, prefix); ok {
		option, err := s.repo.GetOption(ctx, kind, id)
		if err == nil && !inScope(option.CategoryID, categoryID) {
			return nil, nil
		}
		return foundOrNil(&option, err)
	}

	options, err := s.repo.ListOptions(ctx, repository.ListOptionsParams{Kind: kind, CategoryID: categoryID})
	if err != nil {
		return nil, err
	}
	rows := make([]matchable, len(options))
	for i, o := range options {
		rows[i] = matchable{name: o.Name, description: o.Description, externalID: o.ExternalID}
	}
	if idx := bestMatch(text, rows); idx >= 0 {
		return &options[idx], nil
	}
	return nil, nil
}

// ListCategories returns active categories in catalog order.
func (s *Service) ListCategories(ctx context.Context) ([]repository.Category, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.repo.ListCategories(ctx)
}

// ListProducts returns active products, scoped to categoryID when set.
func (s *Service) ListProducts(ctx context.Context, categoryID *uuid.UUID) ([]repository.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.repo.ListProducts(ctx, repository.ListProductsParams{CategoryID: categoryID})
}

// ListMaterials returns active materials, scoped to categoryID when set.
func (s *Service) ListMaterials(ctx context.Context, categoryID *uuid.UUID) ([]repository.Option, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.repo.ListOptions(ctx, repository.ListOptionsParams{Kind: repository.OptionMaterial, CategoryID: categoryID})
}

// ListFinishes returns active finishes, scoped to categoryID when set.
func (s *Service) ListFinishes(ctx context.Context, categoryID *uuid.UUID) ([]repository.Option, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.repo.ListOptions(ctx, repository.ListOptionsParams{Kind: repository.OptionFinish, CategoryID: categoryID})
}

// GetCategory returns an active category.
func (s *Service) GetCategory(ctx context.Context, id uuid.UUID) (repository.Category, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.repo.GetCategory(ctx, id)
}

// Vocabulary lists every active catalog term so a rule-based extractor can
// spot catalog names in free text.
func (s *Service) Vocabulary(ctx context.Context) ([]transport.Term, error) {
	categories, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	products, err := s.ListProducts(ctx, nil)
	if err != nil {
		return nil, err
	}
	materials, err := s.ListMaterials(ctx, nil)
	if err != nil {
		return nil, err
	}
	finishes, err := s.ListFinishes(ctx, nil)
	if err != nil {
		return nil, err
	}

	terms := make([]transport.Term, 0, len(categories)+len(products)+len(materials)+len(finishes))
	for _, c := range categories {
		terms = append(terms, transport.Term{Kind: transport.TermCategory, Text: c.Name})
		for _, alias := range c.Aliases {
			terms = append(terms, transport.Term{Kind: transport.TermCategory, Text: alias})
		}
	}
	for _, p := range products {
		terms = append(terms, transport.Term{Kind: transport.TermProduct, Text: p.Name})
	}
	for _, m := range materials {
		terms = append(terms, transport.Term{Kind: transport.TermMaterial, Text: m.Name})
	}
	for _, f := range finishes {
		terms = append(terms, transport.Term{Kind: transport.TermFinish, Text: f.Name})
	}
	return terms, nil
}

// Read API

// ListCategoriesResponse serves GET /catalog/categories.
func (s *Service) ListCategoriesResponse(ctx context.Context) (transport.CategoryListResponse, error) {
	categories, err := s.ListCategories(ctx)
	if err != nil {
		return transport.CategoryListResponse{}, err
	}
	items := make([]transport.CategoryResponse, len(categories))
	for i, c := range categories {
		items[i] = toCategoryResponse(c)
	}
	return transport.CategoryListResponse{Items: items}, nil
}

// CategoryProductsResponse serves GET /catalog/categories/:id/products.
func (s *Service) CategoryProductsResponse(ctx context.Context, categoryID uuid.UUID) (transport.ProductListResponse, error) {
	if _, err := s.GetCategory(ctx, categoryID); err != nil {
		return transport.ProductListResponse{}, err
	}
	products, err := s.ListProducts(ctx, &categoryID)
	if err != nil {
		return transport.ProductListResponse{}, err
	}
	items := make([]transport.ProductResponse, len(products))
	for i, p := range products {
		items[i] = toProductResponse(p)
	}
	return transport.ProductListResponse{Items: items}, nil
}

// CategoryOptionsResponse serves GET /catalog/categories/:id/materials and /finishes.
func (s *Service) CategoryOptionsResponse(ctx context.Context, categoryID uuid.UUID, kind repository.OptionKind) (transport.OptionListResponse, error) {
	if _, err := s.GetCategory(ctx, categoryID); err != nil {
		return transport.OptionListResponse{}, err
	}
	var (
		options []repository.Option
		err     error
	)
	switch kind {
	case repository.OptionMaterial:
		options, err = s.ListMaterials(ctx, &categoryID)
	case repository.OptionFinish:
		options, err = s.ListFinishes(ctx, &categoryID)
	default:
		return transport.OptionListResponse{}, apperr.BadRequest("unknown catalog option kind")
	}
	if err != nil {
		return transport.OptionListResponse{}, err
	}
	items := make([]transport.OptionResponse, len(options))
	for i, o := range options {
		items[i] = transport.OptionResponse{
			ID:          o.ID,
			ExternalID:  o.ExternalID,
			Name:        o.Name,
			Description: o.Description,
		}
	}
	return transport.OptionListResponse{Kind: string(kind), Items: items}, nil
}

func toCategoryResponse(c repository.Category) transport.CategoryResponse {
	aliases := c.Aliases
	if aliases == nil {
		aliases = []string{}
	}
	return transport.CategoryResponse{
		ID:          c.ID,
		ExternalID:  c.ExternalID,
		Name:        c.Name,
		Description: c.Description,
		Aliases:     aliases,
	}
}

func toProductResponse(p repository.Product) transport.ProductResponse {
	dims := make([]transport.DimensionResponse, len(p.Dimensions))
	for i, d := range p.Dimensions {
		dims[i] = transport.DimensionResponse{Name: d.Name, Unit: d.Unit, Required: d.Required, Min: d.Min, Max: d.Max}
	}
	return transport.ProductResponse{
		ID:          p.ID,
		ExternalID:  p.ExternalID,
		CategoryID:  p.CategoryID,
		Name:        p.Name,
		Description: p.Description,
		Dimensions:  dims,
	}
}

func refID(text, prefix string) (uuid.UUID, bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, prefix) {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(strings.TrimPrefix(trimmed, prefix))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func inScope(rowCategory uuid.UUID, scope *uuid.UUID) bool {
	return scope == nil || *scope == rowCategory
}

func foundOrNil[T any](row *T, err error) (*T, error) {
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return row, nil
}
