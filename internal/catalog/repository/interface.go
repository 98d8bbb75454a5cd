package repository

import (
	"context"

	"github.com/google/uuid"
)

// Category groups products, materials and finishes (e.g. "Mylar Bag").
type Category struct {
	ID          uuid.UUID `db:"id"`
	ExternalID  int64     `db:"external_id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	Aliases     []string  `db:"aliases"`
	SortOrder   int       `db:"sort_order"`
	IsActive    bool      `db:"is_active"`
}

// DimensionSpec declares one measurement a product needs, in declaration order.
type DimensionSpec struct {
	Name     string   `json:"name"`
	Unit     string   `json:"unit,omitempty"`
	Required bool     `json:"required"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
}

// Product is a quotable catalog item.
type Product struct {
	ID          uuid.UUID       `db:"id"`
	ExternalID  int64           `db:"external_id"`
	CategoryID  uuid.UUID       `db:"category_id"`
	Name        string          `db:"name"`
	Description string          `db:"description"`
	Dimensions  []DimensionSpec `db:"dimensions"`
	SortOrder   int             `db:"sort_order"`
	IsActive    bool            `db:"is_active"`
}

// RequiredDimensions returns the names of required dimension specs in declaration order.
func (p Product) RequiredDimensions() []string {
	names := make([]string, 0, len(p.Dimensions))
	for _, spec := range p.Dimensions {
		if spec.Required {
			names = append(names, spec.Name)
		}
	}
	return names
}

// OptionKind selects between the two category-scoped option tables.
type OptionKind string

const (
	OptionMaterial OptionKind = "material"
	OptionFinish   OptionKind = "finish"
)

// Option is a material or finish belonging to a category.
type Option struct {
	ID          uuid.UUID  `db:"id"`
	Kind        OptionKind `db:"-"`
	ExternalID  int64      `db:"external_id"`
	CategoryID  uuid.UUID  `db:"category_id"`
	Name        string     `db:"name"`
	Description string     `db:"description"`
	SortOrder   int        `db:"sort_order"`
	IsActive    bool       `db:"is_active"`
}

// ListProductsParams scopes a product listing. A nil CategoryID lists all active products.
type ListProductsParams struct {
	CategoryID *uuid.UUID
}

// ListOptionsParams scopes a material or finish listing.
type ListOptionsParams struct {
	Kind       OptionKind
	CategoryID *uuid.UUID
}

// Repository defines the read-only data access the catalog lookup needs.
// Every List method returns active rows only, ordered by sort_order then name.
type Repository interface {
	ListCategories(ctx context.Context) ([]Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (Category, error)
	ListProducts(ctx context.Context, params ListProductsParams) ([]Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (Product, error)
	ListOptions(ctx context.Context, params ListOptionsParams) ([]Option, error)
	GetOption(ctx context.Context, kind OptionKind, id uuid.UUID) (Option, error)
}
