package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"quote_assistant_backend/platform/apperr"
)

const (
	categoryNotFoundMessage = "category not found"
	productNotFoundMessage  = "product not found"
	optionNotFoundMessage   = "catalog option not found"
)

var optionTables = map[OptionKind]string{
	OptionMaterial: "catalog_materials",
	OptionFinish:   "catalog_finishes",
}

// Repo implements the catalog repository.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new catalog repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// ListCategories lists active categories.
func (r *Repo) ListCategories(ctx context.Context) ([]Category, error) {
	query := `
		SELECT id, external_id, name, description, aliases, sort_order, is_active
		FROM catalog_categories
		WHERE is_active
		ORDER BY sort_order ASC, name ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]Category, 0)
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.ExternalID, &c.Name, &c.Description, &c.Aliases, &c.SortOrder, &c.IsActive); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}

// GetCategory retrieves an active category by ID.
func (r *Repo) GetCategory(ctx context.Context, id uuid.UUID) (Category, error) {
	query := `
		SELECT id, external_id, name, description, aliases, sort_order, is_active
		FROM catalog_categories
		WHERE id = $1 AND is_active`

	var c Category
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.ExternalID, &c.Name, &c.Description, &c.Aliases, &c.SortOrder, &c.IsActive,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Category{}, apperr.NotFound(categoryNotFoundMessage)
		}
		return Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

// ListProducts lists active products, optionally scoped to a category.
func (r *Repo) ListProducts(ctx context.Context, params ListProductsParams) ([]Product, error) {
	query := `
		SELECT id, external_id, category_id, name, description, dimensions, sort_order, is_active
		FROM catalog_products
		WHERE is_active AND ($1::uuid IS NULL OR category_id = $1)
		ORDER BY sort_order ASC, name ASC`

	rows, err := r.pool.Query(ctx, query, params.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

// GetProduct retrieves an active product by ID.
func (r *Repo) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	query := `
		SELECT id, external_id, category_id, name, description, dimensions, sort_order, is_active
		FROM catalog_products
		WHERE id = $1 AND is_active`

	p, err := scanProduct(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, apperr.NotFound(productNotFoundMessage)
		}
		return Product{}, err
	}
	return p, nil
}

// ListOptions lists active materials or finishes, optionally scoped to a category.
func (r *Repo) ListOptions(ctx context.Context, params ListOptionsParams) ([]Option, error) {
	table, ok := optionTables[params.Kind]
	if !ok {
		return nil, apperr.BadRequest("unknown catalog option kind")
	}

	query := `
		SELECT id, external_id, category_id, name, description, sort_order, is_active
		FROM ` + table + `
		WHERE is_active AND ($1::uuid IS NULL OR category_id = $1)
		ORDER BY sort_order ASC, name ASC`

	rows, err := r.pool.Query(ctx, query, params.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("list %s options: %w", params.Kind, err)
	}
	defer rows.Close()

	options := make([]Option, 0)
	for rows.Next() {
		o := Option{Kind: params.Kind}
		if err := rows.Scan(&o.ID, &o.ExternalID, &o.CategoryID, &o.Name, &o.Description, &o.SortOrder, &o.IsActive); err != nil {
			return nil, fmt.Errorf("scan %s option: %w", params.Kind, err)
		}
		options = append(options, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s options: %w", params.Kind, err)
	}
	return options, nil
}

// GetOption retrieves an active material or finish by ID.
func (r *Repo) GetOption(ctx context.Context, kind OptionKind, id uuid.UUID) (Option, error) {
	table, ok := optionTables[kind]
	if !ok {
		return Option{}, apperr.BadRequest("unknown catalog option kind")
	}

	query := `
		SELECT id, external_id, category_id, name, description, sort_order, is_active
		FROM ` + table + `
		WHERE id = $1 AND is_active`

	o := Option{Kind: kind}
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&o.ID, &o.ExternalID, &o.CategoryID, &o.Name, &o.Description, &o.SortOrder, &o.IsActive,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Option{}, apperr.NotFound(optionNotFoundMessage)
		}
		return Option{}, fmt.Errorf("get %s option: %w", kind, err)
	}
	return o, nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	var dimensions []byte
	if err := row.Scan(&p.ID, &p.ExternalID, &p.CategoryID, &p.Name, &p.Description, &dimensions, &p.SortOrder, &p.IsActive); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, err
		}
		return Product{}, fmt.Errorf("scan product: %w", err)
	}
	if len(dimensions) > 0 {
		if err := json.Unmarshal(dimensions, &p.Dimensions); err != nil {
			return Product{}, fmt.Errorf("decode product dimensions: %w", err)
		}
	}
	return p, nil
}
