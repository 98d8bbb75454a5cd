package domain

import "strings"

// Field names reported by Validate.
const (
	FieldCategory = "category"
	FieldProduct  = "product"
	FieldMaterial = "material"
	FieldFinish   = "finish"
	FieldQuantity = "quantity"
	// FieldDimensions names the dimension set as a whole.
	FieldDimensions = "dimensions"

	dimensionFieldPrefix = "missing dimension: "
)

// ValidationResult lists what a quote still lacks.
type ValidationResult struct {
	IsValid bool
	// MissingFields holds human readable field names, one per gap, with
	// dimensions reported as "missing dimension: <Name>".
	MissingFields []string
	// MissingDimensions holds the bare names of missing required dimensions.
	MissingDimensions []string
}

// DimensionField renders the field name reported for a missing dimension.
func DimensionField(name string) string {
	return dimensionFieldPrefix + name
}

// Validate checks an order against the selected product's requirements.
func Validate(od *OrderData) ValidationResult {
	var missing []string

	// Pricing needs the category's external id, so a product whose category
	// could not be resolved still routes back to category selection.
	if od.SelectedCategory == nil {
		missing = append(missing, FieldCategory)
	}
	if od.SelectedProduct == nil {
		missing = append(missing, FieldProduct)
	}

	missingDims := od.MissingDimensions()
	for _, name := range missingDims {
		missing = append(missing, DimensionField(name))
	}

	if od.SelectedMaterial == nil {
		missing = append(missing, FieldMaterial)
	}
	if len(od.SelectedFinishes) == 0 {
		missing = append(missing, FieldFinish)
	}
	if len(od.Quantities) == 0 {
		missing = append(missing, FieldQuantity)
	}

	return ValidationResult{
		IsValid:           len(missing) == 0,
		MissingFields:     missing,
		MissingDimensions: missingDims,
	}
}

// StepForField returns the step that collects field.
func StepForField(field string) Step {
	switch {
	case field == FieldCategory:
		return StepCategorySelection
	case field == FieldProduct:
		return StepProductSelection
	case field == FieldDimensions, strings.HasPrefix(field, dimensionFieldPrefix):
		return StepDimensionInput
	case field == FieldMaterial:
		return StepMaterialSelection
	case field == FieldFinish:
		return StepFinishSelection
	case field == FieldQuantity:
		return StepQuantityInput
	default:
		return StepStart
	}
}

// OwningStep returns the earliest step that owns a missing field, or quote
// generation when the order is valid.
func (r ValidationResult) OwningStep() Step {
	if r.IsValid || len(r.MissingFields) == 0 {
		return StepQuoteGeneration
	}
	return StepForField(r.MissingFields[0])
}

// ClearField drops the selection behind field so its step asks again.
// Clearing the product also clears its dimensions.
func (o *OrderData) ClearField(field string) {
	switch {
	case field == FieldCategory:
		o.SelectedCategory = nil
	case field == FieldProduct:
		o.SelectedProduct = nil
		o.Dimensions = nil
	case field == FieldDimensions, strings.HasPrefix(field, dimensionFieldPrefix):
		o.Dimensions = nil
	case field == FieldMaterial:
		o.SelectedMaterial = nil
	case field == FieldFinish:
		o.SelectedFinishes = nil
	case field == FieldQuantity:
		o.Quantities = nil
	}
}
