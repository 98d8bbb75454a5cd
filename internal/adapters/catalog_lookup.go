package adapters

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	catrepo "quote_assistant_backend/internal/catalog/repository"
	catalogsvc "quote_assistant_backend/internal/catalog/service"
	"quote_assistant_backend/internal/conversation/domain"
	"quote_assistant_backend/internal/conversation/ports"
	"quote_assistant_backend/platform/apperr"
)

// CatalogLookup adapts the catalog service for the conversation domain,
// translating catalog rows into the refs stored on a conversation.
type CatalogLookup struct {
	svc *catalogsvc.Service
}

// NewCatalogLookup creates a new catalog lookup adapter.
func NewCatalogLookup(svc *catalogsvc.Service) *CatalogLookup {
	return &CatalogLookup{svc: svc}
}

// Compile-time check that CatalogLookup implements ports.CatalogLookup.
var _ ports.CatalogLookup = (*CatalogLookup)(nil)

func (a *CatalogLookup) FindCategory(ctx context.Context, text string) (*domain.CategoryRef, error) {
	c, err := a.svc.FindCategory(ctx, text)
	if err != nil || c == nil {
		return nil, wrapCatalogErr("find category", err)
	}
	ref := toCategoryRef(*c)
	return &ref, nil
}

func (a *CatalogLookup) FindProduct(ctx context.Context, text string, categoryID *uuid.UUID) (*domain.ProductRef, error) {
	p, err := a.svc.FindProduct(ctx, text, categoryID)
	if err != nil || p == nil {
		return nil, wrapCatalogErr("find product", err)
	}
	ref := toProductRef(*p)
	return &ref, nil
}

func (a *CatalogLookup) FindMaterial(ctx context.Context, text string, categoryID *uuid.UUID) (*domain.OptionRef, error) {
	o, err := a.svc.FindMaterial(ctx, text, categoryID)
	if err != nil || o == nil {
		return nil, wrapCatalogErr("find material", err)
	}
	ref := toOptionRef(*o)
	return &ref, nil
}

func (a *CatalogLookup) FindFinish(ctx context.Context, text string, categoryID *uuid.UUID) (*domain.OptionRef, error) {
	o, err := a.svc.FindFinish(ctx, text, categoryID)
	if err != nil || o == nil {
		return nil, wrapCatalogErr("find finish", err)
	}
	ref := toOptionRef(*o)
	return &ref, nil
}

// GetCategory returns nil without error for unknown or inactive categories.
func (a *CatalogLookup) GetCategory(ctx context.Context, id uuid.UUID) (*domain.CategoryRef, error) {
	c, err := a.svc.GetCategory(ctx, id)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, nil
		}
		return nil, wrapCatalogErr("get category", err)
	}
	ref := toCategoryRef(c)
	return &ref, nil
}

func (a *CatalogLookup) ListCategories(ctx context.Context) ([]domain.CategoryRef, error) {
	categories, err := a.svc.ListCategories(ctx)
	if err != nil {
		return nil, wrapCatalogErr("list categories", err)
	}
	refs := make([]domain.CategoryRef, len(categories))
	for i, c := range categories {
		refs[i] = toCategoryRef(c)
	}
	return refs, nil
}

func (a *CatalogLookup) ListProducts(ctx context.Context, categoryID *uuid.UUID) ([]domain.ProductRef, error) {
	products, err := a.svc.ListProducts(ctx, categoryID)
	if err != nil {
		return nil, wrapCatalogErr("list products", err)
	}
	refs := make([]domain.ProductRef, len(products))
	for i, p := range products {
		refs[i] = toProductRef(p)
	}
	return refs, nil
}

func (a *CatalogLookup) ListMaterials(ctx context.Context, categoryID *uuid.UUID) ([]domain.OptionRef, error) {
	options, err := a.svc.ListMaterials(ctx, categoryID)
	if err != nil {
		return nil, wrapCatalogErr("list materials", err)
	}
	return toOptionRefs(options), nil
}

func (a *CatalogLookup) ListFinishes(ctx context.Context, categoryID *uuid.UUID) ([]domain.OptionRef, error) {
	options, err := a.svc.ListFinishes(ctx, categoryID)
	if err != nil {
		return nil, wrapCatalogErr("list finishes", err)
	}
	return toOptionRefs(options), nil
}

func wrapCatalogErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("catalog adapter: %s: %w", op, err)
}

func toCategoryRef(c catrepo.Category) domain.CategoryRef {
	return domain.CategoryRef{ID: c.ID, ExternalID: c.ExternalID, Name: c.Name}
}

func toProductRef(p catrepo.Product) domain.ProductRef {
	dims := make([]domain.DimensionSpec, len(p.Dimensions))
	for i, d := range p.Dimensions {
		dims[i] = domain.DimensionSpec{Name: d.Name, Unit: d.Unit, Required: d.Required, Min: d.Min, Max: d.Max}
	}
	return domain.ProductRef{
		ID:         p.ID,
		ExternalID: p.ExternalID,
		CategoryID: p.CategoryID,
		Name:       p.Name,
		Dimensions: dims,
	}
}

func toOptionRef(o catrepo.Option) domain.OptionRef {
	return domain.OptionRef{ID: o.ID, ExternalID: o.ExternalID, CategoryID: o.CategoryID, Name: o.Name}
}

func toOptionRefs(options []catrepo.Option) []domain.OptionRef {
	refs := make([]domain.OptionRef, len(options))
	for i, o := range options {
		refs[i] = toOptionRef(o)
	}
	return refs
}
