package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// CategoryRef is the selected catalog category.
type CategoryRef struct {
	ID         uuid.UUID `json:"id"`
	ExternalID int64     `json:"externalId"`
	Name       string    `json:"name"`
}

// DimensionSpec declares one measurable side of a product.
type DimensionSpec struct {
	Name     string   `json:"name"`
	Unit     string   `json:"unit,omitempty"`
	Required bool     `json:"required"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
}

// InRange reports whether v is within the spec's optional bounds.
func (d DimensionSpec) InRange(v float64) bool {
	if d.Min != nil && v < *d.Min {
		return false
	}
	if d.Max != nil && v > *d.Max {
		return false
	}
	return true
}

// ProductRef is the selected product with its dimension specs in declaration order.
type ProductRef struct {
	ID         uuid.UUID       `json:"id"`
	ExternalID int64           `json:"externalId"`
	CategoryID uuid.UUID       `json:"categoryId"`
	Name       string          `json:"name"`
	Dimensions []DimensionSpec `json:"dimensions"`
}

// RequiredDimensions returns the required specs in declaration order.
func (p ProductRef) RequiredDimensions() []DimensionSpec {
	out := make([]DimensionSpec, 0, len(p.Dimensions))
	for _, d := range p.Dimensions {
		if d.Required {
			out = append(out, d)
		}
	}
	return out
}

// Dimension is one captured measurement.
type Dimension struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// OptionRef is a selected material or finish.
type OptionRef struct {
	ID         uuid.UUID `json:"id"`
	ExternalID int64     `json:"externalId"`
	CategoryID uuid.UUID `json:"categoryId"`
	Name       string    `json:"name"`
}

// PricingTier is one quantity break returned by the pricing service.
type PricingTier struct {
	Quantity int     `json:"quantity"`
	UnitCost float64 `json:"unitCost"`
	Total    float64 `json:"total"`
}

// PricingData is the priced quote.
type PricingData struct {
	Tiers    []PricingTier `json:"tiers"`
	Currency string        `json:"currency"`
	PricedAt time.Time     `json:"pricedAt"`
}

// OrderData accumulates what the customer has told us so far. Fields are
// only added or overwritten, never removed, except by a full reset.
type OrderData struct {
	WantsQuote           bool         `json:"wantsQuote"`
	SelectedCategory     *CategoryRef `json:"selectedCategory,omitempty"`
	RequestedCategory    string       `json:"requestedCategory,omitempty"`
	SelectedProduct      *ProductRef  `json:"selectedProduct,omitempty"`
	RequestedProductName string       `json:"requestedProductName,omitempty"`
	Dimensions           []Dimension  `json:"dimensions"`
	SelectedMaterial     *OptionRef   `json:"selectedMaterial,omitempty"`
	SelectedFinishes     []OptionRef  `json:"selectedFinish"`
	Quantities           []int        `json:"quantity"`
	QuoteAcknowledged    bool         `json:"quoteAcknowledged"`
	PricingDone          bool         `json:"pricingDone"`
	PricingData          *PricingData `json:"pricingData,omitempty"`
	DocumentSent         bool         `json:"documentSent"`
	Completed            bool         `json:"completed"`
	LastPrompt           Step         `json:"lastPrompt,omitempty"`
}

// HasOrderData reports whether any order field has been captured.
func (o *OrderData) HasOrderData() bool {
	return o.SelectedCategory != nil ||
		o.RequestedCategory != "" ||
		o.SelectedProduct != nil ||
		o.RequestedProductName != "" ||
		len(o.Dimensions) > 0 ||
		o.SelectedMaterial != nil ||
		len(o.SelectedFinishes) > 0 ||
		len(o.Quantities) > 0
}

// CategoryID returns the selected category id, falling back to the selected
// product's category.
func (o *OrderData) CategoryID() *uuid.UUID {
	if o.SelectedCategory != nil {
		id := o.SelectedCategory.ID
		return &id
	}
	if o.SelectedProduct != nil && o.SelectedProduct.CategoryID != uuid.Nil {
		id := o.SelectedProduct.CategoryID
		return &id
	}
	return nil
}

// HasDimension reports whether a value for name was captured.
func (o *OrderData) HasDimension(name string) bool {
	for _, d := range o.Dimensions {
		if strings.EqualFold(d.Name, name) {
			return true
		}
	}
	return false
}

// AddDimension appends a value for a required dimension of the selected
// product. Unknown or already captured names are ignored.
func (o *OrderData) AddDimension(name string, value float64) bool {
	if o.SelectedProduct == nil || o.HasDimension(name) {
		return false
	}
	for _, spec := range o.SelectedProduct.RequiredDimensions() {
		if strings.EqualFold(spec.Name, name) {
			o.Dimensions = append(o.Dimensions, Dimension{Name: spec.Name, Value: value})
			return true
		}
	}
	return false
}

// MissingDimensions lists required dimension names without a value, in
// declaration order. It is empty when no product is selected.
func (o *OrderData) MissingDimensions() []string {
	if o.SelectedProduct == nil {
		return nil
	}
	var missing []string
	for _, spec := range o.SelectedProduct.RequiredDimensions() {
		if !o.HasDimension(spec.Name) {
			missing = append(missing, spec.Name)
		}
	}
	return missing
}

// DimensionsComplete reports whether a product is selected and every
// required dimension has a value.
func (o *OrderData) DimensionsComplete() bool {
	return o.SelectedProduct != nil && len(o.MissingDimensions()) == 0
}

// DimensionValues returns captured values in the product's declaration order.
func (o *OrderData) DimensionValues() []float64 {
	if o.SelectedProduct == nil {
		return nil
	}
	values := make([]float64, 0, len(o.Dimensions))
	for _, spec := range o.SelectedProduct.RequiredDimensions() {
		for _, d := range o.Dimensions {
			if strings.EqualFold(d.Name, spec.Name) {
				values = append(values, d.Value)
				break
			}
		}
	}
	return values
}

// AddFinish appends a finish unless one with the same external id is present.
func (o *OrderData) AddFinish(f OptionRef) bool {
	for _, existing := range o.SelectedFinishes {
		if existing.ExternalID == f.ExternalID {
			return false
		}
	}
	o.SelectedFinishes = append(o.SelectedFinishes, f)
	return true
}

// AddQuantity appends a positive quantity unless already present.
func (o *OrderData) AddQuantity(q int) bool {
	if q <= 0 {
		return false
	}
	for _, existing := range o.Quantities {
		if existing == q {
			return false
		}
	}
	o.Quantities = append(o.Quantities, q)
	return true
}

// ResetQuoteProgress clears confirmation and pricing flags so a changed
// order is summarised again before pricing.
func (o *OrderData) ResetQuoteProgress() {
	o.QuoteAcknowledged = false
	o.PricingDone = false
	o.PricingData = nil
	o.DocumentSent = false
}

// ConversationState is the persisted conversation of one identity.
type ConversationState struct {
	ID                uuid.UUID
	Identity          string
	CurrentStep       Step
	OrderData         OrderData
	IsActive          bool
	Version           int64
	DeactivatedReason string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	LastMessageAt     time.Time
	CompletedAt       *time.Time
}

// Restart puts the conversation back to the start with empty order data.
func (s *ConversationState) Restart() {
	s.CurrentStep = StepStart
	s.OrderData = OrderData{}
}
