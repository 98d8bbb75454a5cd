package service

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"quote_assistant_backend/internal/conversation/domain"
	"quote_assistant_backend/internal/conversation/ports"
	"quote_assistant_backend/internal/nlu"
	"quote_assistant_backend/platform/logger"
)

// minEntityConfidence is the confidence an entity must exceed to be merged.
const minEntityConfidence = 0.5

var numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// Changes records which order fields a reconcile pass touched.
type Changes map[nlu.EntityKind]bool

// Any reports whether anything changed.
func (c Changes) Any() bool {
	for _, changed := range c {
		if changed {
			return true
		}
	}
	return false
}

// Reconciler merges extracted entities into order data, resolving catalog
// names along the way.
type Reconciler struct {
	catalog ports.CatalogLookup
	log     *logger.Logger
}

// NewReconciler creates a reconciler.
func NewReconciler(catalog ports.CatalogLookup, log *logger.Logger) *Reconciler {
	return &Reconciler{catalog: catalog, log: log}
}

// Reconcile merges entities into od in fixed kind order. A failure for one
// kind is logged and skipped.
func (r *Reconciler) Reconcile(ctx context.Context, od *domain.OrderData, entities map[nlu.EntityKind][]nlu.Entity) Changes {
	changes := make(Changes)
	steps := []struct {
		kind nlu.EntityKind
		fn   func(context.Context, *domain.OrderData, []nlu.Entity) (bool, error)
	}{
		{nlu.EntityCategory, r.reconcileCategory},
		{nlu.EntityProduct, r.reconcileProduct},
		{nlu.EntityDimensions, r.reconcileDimensions},
		{nlu.EntityMaterial, r.reconcileMaterial},
		{nlu.EntityFinishes, r.reconcileFinishes},
		{nlu.EntityQuantities, r.reconcileQuantities},
	}

	for _, step := range steps {
		candidates := confident(entities[step.kind])
		if len(candidates) == 0 {
			continue
		}
		changed, err := step.fn(ctx, od, candidates)
		if err != nil {
			r.log.WithContext(ctx).Warn("reconcile entity failed", "kind", step.kind, "error", err)
			continue
		}
		changes[step.kind] = changed
	}
	return changes
}

func (r *Reconciler) reconcileCategory(ctx context.Context, od *domain.OrderData, candidates []nlu.Entity) (bool, error) {
	for _, e := range candidates {
		category, err := r.catalog.FindCategory(ctx, e.Value)
		if err != nil {
			return false, err
		}
		if category == nil {
			if od.SelectedCategory == nil && od.RequestedCategory != entityText(e) {
				od.RequestedCategory = entityText(e)
				return true, nil
			}
			continue
		}
		if od.SelectedProduct != nil && od.SelectedProduct.CategoryID != category.ID {
			return false, nil
		}
		if od.SelectedCategory != nil && od.SelectedCategory.ID == category.ID {
			return false, nil
		}
		selectCategory(od, *category)
		return true, nil
	}
	return false, nil
}

func (r *Reconciler) reconcileProduct(ctx context.Context, od *domain.OrderData, candidates []nlu.Entity) (bool, error) {
	if od.SelectedProduct != nil {
		return false, nil
	}
	for _, e := range candidates {
		product, err := r.catalog.FindProduct(ctx, e.Value, od.CategoryID())
		if err != nil {
			return false, err
		}
		if product == nil {
			continue
		}
		if err := r.selectProduct(ctx, od, *product); err != nil {
			return false, err
		}
		return true, nil
	}
	if requested := entityText(candidates[0]); od.RequestedProductName != requested {
		od.RequestedProductName = requested
		return true, nil
	}
	return false, nil
}

func (r *Reconciler) reconcileDimensions(ctx context.Context, od *domain.OrderData, candidates []nlu.Entity) (bool, error) {
	if od.SelectedProduct == nil {
		return false, nil
	}
	changed := false
	for _, e := range candidates {
		text := e.RawText
		if text == "" {
			text = e.Value
		}
		added, rejected := applyDimensions(od, parseNumbers(text))
		for _, name := range rejected {
			r.log.WithContext(ctx).Warn("dimension out of range", "dimension", name, "product", od.SelectedProduct.Name)
		}
		changed = changed || added > 0
	}
	return changed, nil
}

func (r *Reconciler) reconcileMaterial(ctx context.Context, od *domain.OrderData, candidates []nlu.Entity) (bool, error) {
	changed := false
	for _, e := range candidates {
		material, err := r.catalog.FindMaterial(ctx, e.Value, od.CategoryID())
		if err != nil {
			return changed, err
		}
		if material == nil {
			continue
		}
		if od.SelectedMaterial == nil || od.SelectedMaterial.ExternalID != material.ExternalID {
			od.SelectedMaterial = material
			changed = true
		}
	}
	return changed, nil
}

func (r *Reconciler) reconcileFinishes(ctx context.Context, od *domain.OrderData, candidates []nlu.Entity) (bool, error) {
	changed := false
	for _, e := range candidates {
		finish, err := r.catalog.FindFinish(ctx, e.Value, od.CategoryID())
		if err != nil {
			return changed, err
		}
		if finish != nil && od.AddFinish(*finish) {
			changed = true
		}
	}
	return changed, nil
}

func (r *Reconciler) reconcileQuantities(ctx context.Context, od *domain.OrderData, candidates []nlu.Entity) (bool, error) {
	changed := false
	for _, e := range candidates {
		for _, q := range nlu.ParseQuantities(e.Value) {
			if od.AddQuantity(q) {
				changed = true
			}
		}
	}
	return changed, nil
}

// selectProduct stores the product and backfills its category.
func (r *Reconciler) selectProduct(ctx context.Context, od *domain.OrderData, product domain.ProductRef) error {
	if od.SelectedCategory == nil || od.SelectedCategory.ID != product.CategoryID {
		category, err := r.catalog.GetCategory(ctx, product.CategoryID)
		if err != nil {
			return err
		}
		if category != nil {
			selectCategory(od, *category)
		}
	}
	od.SelectedProduct = &product
	od.RequestedProductName = ""
	od.Dimensions = nil
	return nil
}

// selectCategory stores the category and drops selections that belong to
// another category.
func selectCategory(od *domain.OrderData, category domain.CategoryRef) {
	od.SelectedCategory = &category
	od.RequestedCategory = ""

	if od.SelectedProduct != nil && od.SelectedProduct.CategoryID != category.ID {
		od.SelectedProduct = nil
		od.Dimensions = nil
	}
	if od.SelectedMaterial != nil && od.SelectedMaterial.CategoryID != category.ID {
		od.SelectedMaterial = nil
	}
	kept := od.SelectedFinishes[:0]
	for _, f := range od.SelectedFinishes {
		if f.CategoryID == category.ID {
			kept = append(kept, f)
		}
	}
	od.SelectedFinishes = kept
}

// applyDimensions maps values onto the product's required dimensions. A full
// set maps by declaration order; a shorter set fills the missing names in
// order. Values outside a spec's bounds are rejected.
func applyDimensions(od *domain.OrderData, values []float64) (added int, rejected []string) {
	if od.SelectedProduct == nil || len(values) == 0 {
		return 0, nil
	}
	required := od.SelectedProduct.RequiredDimensions()
	targets := required
	if len(values) < len(required) {
		var missing []domain.DimensionSpec
		for _, spec := range required {
			if !od.HasDimension(spec.Name) {
				missing = append(missing, spec)
			}
		}
		if len(missing) < len(required) {
			targets = missing
		}
	}

	for i, spec := range targets {
		if i >= len(values) {
			break
		}
		if !spec.InRange(values[i]) {
			rejected = append(rejected, spec.Name)
			continue
		}
		if od.AddDimension(spec.Name, values[i]) {
			added++
		}
	}
	return added, rejected
}

// parseNumbers reads a dimension group such as "4x6x2", "4 × 6" or "4, 6".
func parseNumbers(text string) []float64 {
	var values []float64
	for _, token := range numberPattern.FindAllString(text, -1) {
		v, err := strconv.ParseFloat(token, 64)
		if err == nil && v > 0 {
			values = append(values, v)
		}
	}
	return values
}

func confident(list []nlu.Entity) []nlu.Entity {
	out := make([]nlu.Entity, 0, len(list))
	for _, e := range list {
		if e.Confidence > minEntityConfidence && strings.TrimSpace(e.Value) != "" {
			out = append(out, e)
		}
	}
	return out
}

func entityText(e nlu.Entity) string {
	if strings.TrimSpace(e.RawText) != "" {
		return strings.TrimSpace(e.RawText)
	}
	return strings.TrimSpace(e.Value)
}
